package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Options configures a Provider. A nil Throttle disables sign-in throttling.
type Options struct {
	Secret     string
	SessionTTL time.Duration
	Throttle   Throttle
	BcryptCost int
	Now        func() time.Time
}

// Provider is the identity provider: accounts, password sign-in and
// revocable token sessions.
type Provider struct {
	accounts  AccountStore
	sessions  SessionStore
	throttle  Throttle
	secret    []byte
	ttl       time.Duration
	cost      int
	now       func() time.Time
	validate  *validator.Validate
	observers observers
	logger    *zap.Logger
}

func NewProvider(accounts AccountStore, sessions SessionStore, opts Options, logger *zap.Logger) (*Provider, error) {
	if opts.Secret == "" {
		return nil, errors.New("identity: empty signing secret")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.Throttle == nil {
		opts.Throttle = noThrottle{}
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Provider{
		accounts: accounts,
		sessions: sessions,
		throttle: opts.Throttle,
		secret:   []byte(opts.Secret),
		ttl:      opts.SessionTTL,
		cost:     opts.BcryptCost,
		now:      opts.Now,
		validate: validator.New(),
		logger:   logger,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account. It does not sign the new account in.
func (p *Provider) SignUp(ctx context.Context, req SignUpRequest) (*Identity, error) {
	email := normalizeEmail(req.Email)
	if err := p.validate.Var(email, "required,email"); err != nil {
		return nil, newAuthError(CodeInvalidEmail, nil)
	}
	if len(req.Password) < minPasswordLength {
		return nil, newAuthError(CodeWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, newAuthError(CodeWeakPassword, err)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		IsAdmin:      req.Admin,
		CreatedAt:    p.now(),
	}
	if err := p.accounts.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, newAuthError(CodeEmailInUse, nil)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	p.logger.Info("Account created",
		zap.String("uid", acc.ID),
		zap.Bool("admin", acc.IsAdmin),
	)

	id := acc.identity()
	return &id, nil
}

// SignIn checks the credentials and opens a new session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*SignedIn, error) {
	email = normalizeEmail(email)
	if err := p.validate.Var(email, "required,email"); err != nil {
		return nil, newAuthError(CodeInvalidEmail, nil)
	}

	allowed, err := p.throttle.Allow(ctx, email)
	if err != nil {
		// fail open
		p.logger.Warn("Sign-in throttle unavailable", zap.Error(err))
		allowed = true
	}
	if !allowed {
		return nil, newAuthError(CodeTooManyRequests, nil)
	}

	acc, err := p.accounts.AccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc == nil {
		return nil, newAuthError(CodeUserNotFound, nil)
	}
	if acc.Disabled {
		return nil, newAuthError(CodeUserDisabled, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, newAuthError(CodeWrongPassword, nil)
	}

	now := p.now()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    acc.ID,
		ExpiresAt: now.Add(p.ttl),
		CreatedAt: now,
	}
	token, err := p.makeToken(acc.ID, sess.ID, now, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := p.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	id := acc.identity()
	id.SessionID = sess.ID
	p.logger.Info("Signed in", zap.String("uid", acc.ID), zap.String("session_id", sess.ID))
	p.observers.notify(SessionEvent{UID: acc.ID, SessionID: sess.ID, Identity: &id})

	return &SignedIn{Token: token, ExpiresAt: sess.ExpiresAt, Identity: id}, nil
}

// SignOut revokes the session behind token. Expired tokens are accepted.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := p.parseToken(token, true)
	if err != nil {
		return newAuthError(CodeInvalidSession, err)
	}
	if err := p.sessions.RevokeSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	p.logger.Info("Signed out", zap.String("uid", claims.Subject), zap.String("session_id", claims.ID))
	p.observers.notify(SessionEvent{UID: claims.Subject, SessionID: claims.ID})
	return nil
}

// Authenticate resolves a token to the identity of a live session.
func (p *Provider) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := p.parseToken(token, false)
	if err != nil {
		return nil, newAuthError(CodeInvalidSession, err)
	}

	sess, err := p.sessions.SessionByID(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil || sess.Revoked || !p.now().Before(sess.ExpiresAt) || sess.UserID != claims.Subject {
		return nil, newAuthError(CodeInvalidSession, nil)
	}

	acc, err := p.accounts.AccountByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc == nil {
		return nil, newAuthError(CodeUserNotFound, nil)
	}
	if acc.Disabled {
		return nil, newAuthError(CodeUserDisabled, nil)
	}

	id := acc.identity()
	id.SessionID = sess.ID
	return &id, nil
}

// Observe registers fn for session changes and returns its unsubscribe func.
func (p *Provider) Observe(fn func(SessionEvent)) (unsubscribe func()) {
	return p.observers.add(fn)
}

// SweepSessions deletes sessions that expired or were revoked before cutoff.
func (p *Provider) SweepSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := p.sessions.DeleteStaleSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	return n, nil
}
