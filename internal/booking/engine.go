package booking

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/availability"
	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

// HistoryAge is how old a request must be to move to the history view.
const HistoryAge = 14 * 24 * time.Hour

// Sink is the append-only meeting store. CreateMeeting fills in the ID.
type Sink interface {
	CreateMeeting(ctx context.Context, m *model.Meeting) error
}

// Reader reads meetings back.
type Reader interface {
	ListMeetingsByUser(ctx context.Context, userID string) ([]*model.Meeting, error)
	ListMeetings(ctx context.Context) ([]*model.Meeting, error)
}

// ProfileLookup finds the users/{id} profile. Returns nil, nil when absent.
type ProfileLookup interface {
	ProfileByID(ctx context.Context, id string) (*model.User, error)
}

// Request is one submission attempt.
type Request struct {
	Requester *identity.Identity
	Date      calendar.Date
	Time      string
	Topic     model.Topic
	Notes     string
}

type Engine struct {
	sink     Sink
	reader   Reader
	profiles ProfileLookup
	source   availability.Source
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

type EngineOption func(*Engine)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone "today" is computed in.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) { e.loc = loc }
}

func NewEngine(sink Sink, reader Reader, profiles ProfileLookup, source availability.Source, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		sink:     sink,
		reader:   reader,
		profiles: profiles,
		source:   source,
		loc:      time.Local,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today is the current civil date in the engine's location.
func (e *Engine) Today() calendar.Date {
	return calendar.DateOf(e.now().In(e.loc))
}

// Source returns the availability source the engine validates against.
func (e *Engine) Source() availability.Source {
	return e.source
}

// Slots lists the labels bookable on date.
func (e *Engine) Slots(ctx context.Context, date calendar.Date) ([]string, error) {
	return e.source.SlotsFor(ctx, date)
}

// Validate checks the preconditions in order; the first failure wins.
func (e *Engine) Validate(ctx context.Context, req Request) error {
	if req.Requester == nil || req.Requester.UID == "" {
		return invalid("requester", "You must be logged in to book an appointment")
	}
	if req.Date.IsZero() {
		return invalid("date", "Please select a date")
	}
	if req.Time == "" {
		return invalid("time", "Please select a time")
	}
	if !req.Topic.Valid() {
		return invalid("topic", "Please select a topic")
	}

	ok, err := availability.IsAvailable(ctx, e.source, req.Date, req.Time)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if !ok {
		return invalid("time", fmt.Sprintf("%s is not available on %s", req.Time, req.Date))
	}
	return nil
}

// Submit validates req and appends one meeting to the sink.
// Two requesters may book the same slot; no exclusivity is enforced.
func (e *Engine) Submit(ctx context.Context, req Request) (string, error) {
	if err := e.Validate(ctx, req); err != nil {
		return "", err
	}

	stored, err := availability.FormatTimeForSubmission(req.Time)
	if err != nil {
		return "", invalid("time", "Please select a valid time")
	}

	var profile *model.User
	if e.profiles != nil {
		profile, err = e.profiles.ProfileByID(ctx, req.Requester.UID)
		if err != nil {
			// name falls back to the identity; the booking still goes through
			e.logger.Warn("Failed to load requester profile",
				zap.String("uid", req.Requester.UID),
				zap.Error(err),
			)
			profile = nil
		}
	}

	meeting := &model.Meeting{
		IDNumber:              idNumber(profile),
		Name:                  requesterName(profile, req.Requester),
		Request:               string(req.Topic),
		AdditionalInformation: strings.TrimSpace(req.Notes),
		Date:                  req.Date.String(),
		Time:                  stored,
		CreatedAt:             e.now(),
		UserEmail:             req.Requester.Email,
		UserID:                req.Requester.UID,
	}

	if err := e.sink.CreateMeeting(ctx, meeting); err != nil {
		e.logger.Error("Failed to store meeting",
			zap.String("uid", req.Requester.UID),
			zap.String("date", meeting.Date),
			zap.String("time", meeting.Time),
			zap.Error(err),
		)
		return "", &SubmissionError{Err: err}
	}

	e.logger.Info("Meeting booked",
		zap.String("meeting_id", meeting.ID),
		zap.String("uid", meeting.UserID),
		zap.String("date", meeting.Date),
		zap.String("time", meeting.Time),
		zap.String("topic", meeting.Request),
	)
	return meeting.ID, nil
}

func idNumber(profile *model.User) string {
	if profile == nil {
		return ""
	}
	return profile.IDNumber
}

func requesterName(profile *model.User, who *identity.Identity) string {
	if profile != nil {
		if name := profile.FullName(); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(who.DisplayName); name != "" {
		return name
	}
	if local := who.EmailLocalPart(); local != "" {
		return local
	}
	return "Unknown"
}

// ListUpcoming returns the requester's meetings dated today or later, sorted
// by date then time. Both compare as strings, which orders correctly only
// because dates are stored YYYY-MM-DD and times as zero-padded HH:MM.
func (e *Engine) ListUpcoming(ctx context.Context, who *identity.Identity) ([]*model.Meeting, error) {
	if who == nil || who.UID == "" {
		return nil, nil
	}
	all, err := e.reader.ListMeetingsByUser(ctx, who.UID)
	if err != nil {
		return nil, fmt.Errorf("list meetings by user: %w", err)
	}

	today := e.Today().String()
	upcoming := make([]*model.Meeting, 0, len(all))
	for _, m := range all {
		if m.Date >= today {
			upcoming = append(upcoming, m)
		}
	}
	slices.SortStableFunc(upcoming, func(a, b *model.Meeting) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return upcoming, nil
}

// ListAll returns every meeting, newest first.
func (e *Engine) ListAll(ctx context.Context) ([]*model.Meeting, error) {
	all, err := e.reader.ListMeetings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	slices.SortStableFunc(all, func(a, b *model.Meeting) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return all, nil
}

// ListHistory returns the meetings created more than HistoryAge ago.
func (e *Engine) ListHistory(ctx context.Context) ([]*model.Meeting, error) {
	all, err := e.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := e.now().Add(-HistoryAge)
	history := make([]*model.Meeting, 0, len(all))
	for _, m := range all {
		if m.CreatedAt.Before(cutoff) {
			history = append(history, m)
		}
	}
	return history, nil
}
