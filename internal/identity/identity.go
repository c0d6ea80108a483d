package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrEmailTaken is returned by AccountStore.CreateAccount on a duplicate email.
var ErrEmailTaken = errors.New("email already registered")

// Identity is the authenticated principal behind a session. SessionID is
// empty for an identity that did not come from a live session.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	IsAdmin     bool   `json:"isAdmin"`
	SessionID   string `json:"-"`
}

// EmailLocalPart returns the part of the email before "@".
func (i Identity) EmailLocalPart() string {
	local, _, _ := strings.Cut(i.Email, "@")
	return local
}

// Account is the credential record kept by the provider. IsAdmin is fixed
// at creation.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
}

func (a *Account) identity() Identity {
	return Identity{UID: a.ID, DisplayName: a.DisplayName, Email: a.Email, IsAdmin: a.IsAdmin}
}

// Session is a revocable sign-in. Its ID is the token's jti.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// SignedIn is what a successful SignIn hands back to the caller.
type SignedIn struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Identity  Identity  `json:"identity"`
}

// AccountStore persists accounts. Lookups return nil, nil when nothing matches.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *Account) error
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByID(ctx context.Context, id string) (*Account, error)
}

// SessionStore persists sessions. Lookups return nil, nil when nothing matches.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	SessionByID(ctx context.Context, id string) (*Session, error)
	RevokeSession(ctx context.Context, id string) error
	DeleteStaleSessions(ctx context.Context, before time.Time) (int64, error)
}

// SignUpRequest carries the credentials for a new account.
type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
	Admin       bool
}
