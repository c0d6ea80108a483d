package booking

import (
	"context"
	"sync"

	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

type field uint8

const (
	fieldDate field = 1 << iota
	fieldTime
	fieldTopic
	fieldNotes
)

// Draft is a requester's unsubmitted booking. Safe for concurrent use.
type Draft struct {
	mu         sync.Mutex
	date       calendar.Date
	time       string
	topic      model.Topic
	notes      string
	submitting bool
	// fields changed since the running submission took its copy
	touched field
}

// DraftState is a point-in-time copy of a Draft.
type DraftState struct {
	Date       calendar.Date `json:"date"`
	Time       string        `json:"time"`
	Topic      model.Topic   `json:"topic"`
	Notes      string        `json:"notes"`
	Submitting bool          `json:"submitting"`
}

// SubmitResult is returned by a successful Draft.Submit. RefreshErr is set
// when the booking was stored but the upcoming list could not be reloaded.
type SubmitResult struct {
	MeetingID  string
	Upcoming   []*model.Meeting
	RefreshErr error
}

// SelectDate picks a date. Switching to another date clears the time;
// picking the current date again changes nothing.
func (d *Draft) SelectDate(date calendar.Date) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectDate(date)
}

func (d *Draft) selectDate(date calendar.Date) {
	if date == d.date {
		return
	}
	d.date = date
	d.time = ""
	d.touched |= fieldDate | fieldTime
}

// SelectTime picks a time label. It is accepted without a date; Submit
// reports the missing date.
func (d *Draft) SelectTime(label string) {
	d.mu.Lock()
	d.time = label
	d.touched |= fieldTime
	d.mu.Unlock()
}

func (d *Draft) SetTopic(t model.Topic) {
	d.mu.Lock()
	d.topic = t
	d.touched |= fieldTopic
	d.mu.Unlock()
}

func (d *Draft) SetNotes(notes string) {
	d.mu.Lock()
	d.notes = notes
	d.touched |= fieldNotes
	d.mu.Unlock()
}

// Fill sets every field at once, as the web form does. It fails with
// ErrSubmissionInFlight and changes nothing while a submission runs.
func (d *Draft) Fill(date calendar.Date, label string, t model.Topic, notes string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitting {
		return ErrSubmissionInFlight
	}
	d.selectDate(date)
	d.time = label
	d.topic = t
	d.notes = notes
	d.touched |= fieldTime | fieldTopic | fieldNotes
	return nil
}

func (d *Draft) State() DraftState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DraftState{
		Date:       d.date,
		Time:       d.time,
		Topic:      d.topic,
		Notes:      d.notes,
		Submitting: d.submitting,
	}
}

// Submit sends the draft through e on behalf of who. On failure the draft is
// kept for a retry; on success the submitted fields are cleared and the
// upcoming list reloaded. Fields changed while the submission ran are kept.
func (d *Draft) Submit(ctx context.Context, e *Engine, who *identity.Identity) (*SubmitResult, error) {
	d.mu.Lock()
	if d.submitting {
		d.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	d.submitting = true
	d.touched = 0
	req := Request{
		Requester: who,
		Date:      d.date,
		Time:      d.time,
		Topic:     d.topic,
		Notes:     d.notes,
	}
	d.mu.Unlock()

	id, err := e.Submit(ctx, req)

	d.mu.Lock()
	d.submitting = false
	if err == nil {
		d.clearUntouched()
	}
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	res := &SubmitResult{MeetingID: id}
	res.Upcoming, res.RefreshErr = e.ListUpcoming(ctx, who)
	return res, nil
}

func (d *Draft) clearUntouched() {
	if d.touched&fieldDate == 0 {
		d.date = calendar.Date{}
	}
	if d.touched&fieldTime == 0 {
		d.time = ""
	}
	if d.touched&fieldTopic == 0 {
		d.topic = model.TopicUnselected
	}
	if d.touched&fieldNotes == 0 {
		d.notes = ""
	}
}
