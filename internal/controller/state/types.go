package state

import "github.com/Freeeeeet/ltrc_platform/internal/booking"

// UserState is the step of an open dialog.
type UserState string

const (
	StateNone UserState = ""

	// login dialog
	StateLoginEmail    UserState = "login_email"
	StateLoginPassword UserState = "login_password"

	// booking dialog
	StateBookingNotes UserState = "booking_notes"
)

// Binding ties a conversation to a signed-in session.
type Binding struct {
	UID       string
	SessionID string
	Token     string
}

// UserData is everything kept for one conversation.
type UserData struct {
	State   UserState
	Binding *Binding
	Draft   *booking.Draft
	Data    map[string]any // scratch values of the current dialog
}
