package booking

import "errors"

// ErrSubmissionInFlight rejects a second Submit on a draft whose first
// submission has not returned yet.
var ErrSubmissionInFlight = errors.New("a booking submission is already in progress")

// ValidationError is a precondition failure. It never reaches the sink.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// SubmissionError wraps a sink failure. Its message is the sink's, verbatim.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
