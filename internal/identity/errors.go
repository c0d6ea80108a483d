package identity

import "fmt"

// Code identifies an authentication failure.
type Code string

const (
	CodeInvalidEmail      Code = "auth/invalid-email"
	CodeUserDisabled      Code = "auth/user-disabled"
	CodeUserNotFound      Code = "auth/user-not-found"
	CodeWrongPassword     Code = "auth/wrong-password"
	CodeInvalidCredential Code = "auth/invalid-credential"
	CodeEmailInUse        Code = "auth/email-already-in-use"
	CodeWeakPassword      Code = "auth/weak-password"
	CodeTooManyRequests   Code = "auth/too-many-requests"
	CodeInvalidSession    Code = "auth/invalid-session"
)

var messages = map[Code]string{
	CodeInvalidEmail:      "Invalid email address",
	CodeUserDisabled:      "This account has been disabled",
	CodeUserNotFound:      "No account found with this email",
	CodeWrongPassword:     "Incorrect password",
	CodeInvalidCredential: "Invalid email or password",
	CodeEmailInUse:        "Email is already in use",
	CodeWeakPassword:      "Password is too weak",
	CodeTooManyRequests:   "Too many failed login attempts. Please try again later or reset your password",
	CodeInvalidSession:    "Your session has expired. Please log in again",
}

// AuthError is returned by every Provider operation that fails for a reason
// the user can act on.
type AuthError struct {
	Code Code
	Err  error
}

func newAuthError(code Code, err error) *AuthError {
	return &AuthError{Code: code, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Message is the human-readable text for the code. Unknown codes surface the
// raw error text.
func (e *AuthError) Message() string {
	if msg, ok := messages[e.Code]; ok {
		return msg
	}
	return "Error: " + e.Error()
}
