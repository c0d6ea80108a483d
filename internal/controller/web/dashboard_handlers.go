package web

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/booking"
	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
	"github.com/Freeeeeet/ltrc_platform/internal/controller/state"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

const msgUpcomingFailed = "Failed to load your bookings. Please try again later."

type topicOption struct {
	Value model.Topic `json:"value"`
	Title string      `json:"title"`
}

func topicOptions() []topicOption {
	out := make([]topicOption, 0, len(model.Topics))
	for _, t := range model.Topics {
		out = append(out, topicOption{Value: t, Title: t.Title()})
	}
	return out
}

// listing is a read view. A failed read renders as an empty list plus a
// banner instead of an error status.
type listing struct {
	Meetings []*model.Meeting `json:"meetings"`
	Error    string           `json:"error,omitempty"`
}

func (s *Server) listingOf(r *http.Request, meetings []*model.Meeting, err error, banner string) listing {
	if err != nil {
		s.logger.Error("Failed to load meetings",
			zap.String("request_id", requestID(r)),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		return listing{Meetings: []*model.Meeting{}, Error: banner}
	}
	if meetings == nil {
		meetings = []*model.Meeting{}
	}
	return listing{Meetings: meetings}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	upcoming, err := s.engine.ListUpcoming(r.Context(), p.identity)

	writeJSON(w, http.StatusOK, map[string]any{
		"user":     p.identity,
		"profile":  p.profile,
		"upcoming": s.listingOf(r, upcoming, err, msgUpcomingFailed),
		"topics":   topicOptions(),
		"today":    s.engine.Today().String(),
	})
}

type monthRef struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type calendarResponse struct {
	Year               int      `json:"year"`
	Month              int      `json:"month"`
	Title              string   `json:"title"`
	DaysInMonth        int      `json:"daysInMonth"`
	FirstWeekdayOffset int      `json:"firstWeekdayOffset"`
	Weeks              [][]int  `json:"weeks"`
	Prev               monthRef `json:"prev"`
	Next               monthRef `json:"next"`
	Today              string   `json:"today"`
}

// handleCalendar renders a month grid. month is zero-based; both
// parameters default to the current month.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	today := s.engine.Today()
	year, month0 := today.Year, int(today.Month)-1

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month0 = n
	}

	m := calendar.NewMonth(year, month0)
	prev, next := m.Prev(), m.Next()
	writeJSON(w, http.StatusOK, calendarResponse{
		Year:               m.Year,
		Month:              m.Month0,
		Title:              m.Title(),
		DaysInMonth:        m.DaysInMonth,
		FirstWeekdayOffset: m.FirstWeekdayOffset,
		Weeks:              m.Weeks(),
		Prev:               monthRef{Year: prev.Year, Month: prev.Month0},
		Next:               monthRef{Year: next.Year, Month: next.Month0},
		Today:              today.String(),
	})
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select a date")
		return
	}

	slots, err := s.engine.Slots(r.Context(), date)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.String(),
		"slots": slots,
	})
}

func (s *Server) draftFor(p *principal) *booking.Draft {
	key := draftKeyPrefix + p.identity.SessionID
	s.drafts.Bind(key, state.Binding{UID: p.identity.UID, SessionID: p.identity.SessionID})
	return s.drafts.Draft(key)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.draftFor(principalFrom(r.Context())).State())
}

type bookingForm struct {
	Date  string      `json:"date"`
	Time  string      `json:"time"`
	Topic model.Topic `json:"topic"`
	Notes string      `json:"notes"`
}

// handleCreateBooking loads the form into the session's draft and submits
// it. A failed submission leaves the draft in place, and a request arriving
// while another submission runs is turned away without touching the draft.
func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var form bookingForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	var date calendar.Date
	if form.Date != "" {
		d, err := calendar.ParseDate(form.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Please select a date",
				"field": "date",
			})
			return
		}
		date = d
	}

	p := principalFrom(r.Context())
	draft := s.draftFor(p)
	res, err := s.fillAndSubmit(r, draft, p, date, form)
	if s.metrics != nil {
		s.metrics.ObserveSubmission(err)
	}
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       res.MeetingID,
		"message":  "Your appointment has been booked",
		"upcoming": s.listingOf(r, res.Upcoming, res.RefreshErr, msgUpcomingFailed),
	})
}

func (s *Server) fillAndSubmit(r *http.Request, draft *booking.Draft, p *principal, date calendar.Date, form bookingForm) (*booking.SubmitResult, error) {
	if err := draft.Fill(date, form.Time, form.Topic, form.Notes); err != nil {
		return nil, err
	}
	return draft.Submit(r.Context(), s.engine, p.identity)
}
