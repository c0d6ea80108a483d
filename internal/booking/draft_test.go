package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/availability"
	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

func TestDraftSelectDateResetsTime(t *testing.T) {
	var d Draft
	first := calendar.Date{Year: 2024, Month: time.March, Day: 15}
	second := first.AddDays(1)

	d.SelectDate(first)
	d.SelectTime("1:00 PM")
	d.SelectDate(first)
	assert.Equal(t, "1:00 PM", d.State().Time, "same date keeps the time")

	d.SelectDate(second)
	assert.Empty(t, d.State().Time)
	assert.Equal(t, second, d.State().Date)

	d.SelectDate(second)
	assert.Empty(t, d.State().Time)
}

func TestDraftSubmitSuccessClearsAndRefreshes(t *testing.T) {
	store := &memMeetings{}
	e := newTestEngine(store, nil, availability.AlwaysOpen{})

	var d Draft
	d.SelectDate(calendar.Date{Year: 2024, Month: time.March, Day: 15})
	d.SelectTime("1:00 PM")
	d.SetTopic(model.TopicGrammar)
	d.SetNotes("tenses")

	res, err := d.Submit(context.Background(), e, ana)
	require.NoError(t, err)
	assert.Equal(t, "m1", res.MeetingID)
	assert.NoError(t, res.RefreshErr)
	require.Len(t, res.Upcoming, 1)
	assert.Equal(t, "13:00", res.Upcoming[0].Time)

	assert.Equal(t, DraftState{}, d.State())
}

func TestDraftSubmitFailureKeepsDraft(t *testing.T) {
	store := &memMeetings{failWith: errors.New("quota exceeded")}
	e := newTestEngine(store, nil, availability.AlwaysOpen{})

	var d Draft
	d.SelectDate(calendar.Date{Year: 2024, Month: time.March, Day: 15})
	d.SelectTime("9:00 AM")
	d.SetTopic(model.TopicWriting)
	before := d.State()

	_, err := d.Submit(context.Background(), e, ana)
	require.EqualError(t, err, "quota exceeded")
	assert.Equal(t, before, d.State())

	// retry after the sink recovers
	store.failWith = nil
	_, err = d.Submit(context.Background(), e, ana)
	require.NoError(t, err)
	assert.Len(t, store.meetings, 1)
}

func TestDraftSubmitValidationKeepsDraft(t *testing.T) {
	store := &memMeetings{}
	e := newTestEngine(store, nil, availability.AlwaysOpen{})

	var d Draft
	d.SelectTime("2:00 PM")
	d.SetTopic(model.TopicVerbs)

	_, err := d.Submit(context.Background(), e, ana)
	assert.Equal(t, "date", validationField(t, err))
	assert.Equal(t, "2:00 PM", d.State().Time)
	assert.Zero(t, store.calls)
}

type blockingSink struct {
	memMeetings
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSink) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	b.entered <- struct{}{}
	<-b.release
	return b.memMeetings.CreateMeeting(ctx, m)
}

func TestDraftRejectsConcurrentSubmit(t *testing.T) {
	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	e := NewEngine(sink, &sink.memMeetings, nil, availability.AlwaysOpen{}, zap.NewNop(),
		WithClock(func() time.Time { return scenarioNow }),
		WithLocation(time.UTC),
	)

	var d Draft
	d.SelectDate(calendar.Date{Year: 2024, Month: time.March, Day: 15})
	d.SelectTime("1:00 PM")
	d.SetTopic(model.TopicGrammar)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = d.Submit(context.Background(), e, ana)
	}()

	<-sink.entered
	assert.True(t, d.State().Submitting)
	_, err := d.Submit(context.Background(), e, ana)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(sink.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, d.State().Submitting)
	assert.Len(t, sink.meetings, 1)
}

func newBlockingEngine() (*Engine, *blockingSink) {
	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	e := NewEngine(sink, &sink.memMeetings, nil, availability.AlwaysOpen{}, zap.NewNop(),
		WithClock(func() time.Time { return scenarioNow }),
		WithLocation(time.UTC),
	)
	return e, sink
}

func TestDraftKeepsChoicesMadeDuringSubmit(t *testing.T) {
	e, sink := newBlockingEngine()
	next := calendar.Date{Year: 2024, Month: time.March, Day: 20}

	var d Draft
	d.SelectDate(calendar.Date{Year: 2024, Month: time.March, Day: 15})
	d.SelectTime("1:00 PM")
	d.SetTopic(model.TopicGrammar)
	d.SetNotes("tenses")

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), e, ana)
		done <- err
	}()

	<-sink.entered
	d.SelectDate(next)
	d.SelectTime("1:00 PM")
	close(sink.release)
	require.NoError(t, <-done)

	s := d.State()
	assert.Equal(t, next, s.Date)
	assert.Equal(t, "1:00 PM", s.Time)
	assert.Equal(t, model.TopicUnselected, s.Topic, "submitted topic is cleared")
	assert.Empty(t, s.Notes)
	require.Len(t, sink.meetings, 1)
	assert.Equal(t, "2024-03-15", sink.meetings[0].Date)
}

func TestDraftFillRejectedWhileSubmitting(t *testing.T) {
	e, sink := newBlockingEngine()
	first := calendar.Date{Year: 2024, Month: time.March, Day: 15}

	var d Draft
	require.NoError(t, d.Fill(first, "9:00 AM", model.TopicWriting, "essay"))

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), e, ana)
		done <- err
	}()

	<-sink.entered
	err := d.Fill(first.AddDays(1), "2:00 PM", model.TopicVerbs, "")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	s := d.State()
	assert.Equal(t, first, s.Date)
	assert.Equal(t, "9:00 AM", s.Time)
	assert.Equal(t, model.TopicWriting, s.Topic)

	close(sink.release)
	require.NoError(t, <-done)
	assert.Equal(t, DraftState{}, d.State())
}
