package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/booking"
	"github.com/Freeeeeet/ltrc_platform/internal/controller/state"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/metrics"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
	"github.com/Freeeeeet/ltrc_platform/internal/service"
)

const (
	sessionCookie    = "session"
	defaultBodyLimit = 1 << 20
	draftKeyPrefix   = "web:"
)

// Accounts is the account service as seen by the web surface.
type Accounts interface {
	RegisterStudent(ctx context.Context, form service.StudentSignUp) (*model.User, error)
	RegisterAdmin(ctx context.Context, form service.AdminSignUp) (*model.User, error)
	LoginStudent(ctx context.Context, form service.StudentLogin) (*identity.SignedIn, error)
	LoginAdmin(ctx context.Context, form service.AdminLogin) (*identity.SignedIn, error)
	Logout(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (*identity.Identity, *model.User, error)
}

type Stats interface {
	Stats(ctx context.Context) (*service.DashboardStats, error)
}

type Settings interface {
	Get(ctx context.Context) (*model.Settings, error)
	Update(ctx context.Context, settings *model.Settings) error
}

// SessionObserver delivers sign-in and sign-out events.
type SessionObserver interface {
	Observe(fn func(identity.SessionEvent)) (unsubscribe func())
}

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

type Deps struct {
	Accounts Accounts
	Stats    Stats
	Settings Settings
	Engine   *booking.Engine
	Sessions SessionObserver
	Metrics  *metrics.Metrics
	Checks   []ReadyCheck
}

// Options tunes the HTTP surface. SecureCookie marks the session cookie
// Secure and is meant for production.
type Options struct {
	CORSOrigins  []string
	BodyLimit    int64
	SecureCookie bool
}

// Server serves the browser pages as JSON endpoints.
type Server struct {
	accounts    Accounts
	stats       Stats
	settings    Settings
	engine      *booking.Engine
	metrics     *metrics.Metrics
	checks      []ReadyCheck
	drafts      *state.Manager
	opts        Options
	unsubscribe func()
	logger      *zap.Logger
}

func NewServer(deps Deps, opts Options, logger *zap.Logger) (*Server, error) {
	if deps.Accounts == nil || deps.Engine == nil {
		return nil, errors.New("web: accounts and engine are required")
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaultBodyLimit
	}

	s := &Server{
		accounts:    deps.Accounts,
		stats:       deps.Stats,
		settings:    deps.Settings,
		engine:      deps.Engine,
		metrics:     deps.Metrics,
		checks:      deps.Checks,
		drafts:      state.NewManager(),
		opts:        opts,
		unsubscribe: func() {},
		logger:      logger,
	}
	if deps.Sessions != nil {
		s.unsubscribe = deps.Sessions.Observe(s.onSessionEvent)
	}
	return s, nil
}

// Close stops listening for session events.
func (s *Server) Close() {
	s.unsubscribe()
}

// onSessionEvent drops the drafts of a signed-out session.
func (s *Server) onSessionEvent(ev identity.SessionEvent) {
	if ev.Identity != nil {
		return
	}
	if keys := s.drafts.ForgetSession(ev.SessionID); len(keys) > 0 {
		s.logger.Debug("Dropped drafts of signed-out session",
			zap.String("session_id", ev.SessionID),
			zap.Strings("keys", keys),
		)
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(withCORS(CORSPolicy{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}))
	r.Use(withBodyLimit(s.opts.BodyLimit))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/", s.handleHome)
	r.Post("/signup", s.handleSignUp)
	r.Post("/admin-signup", s.handleAdminSignUp)
	r.Post("/login", s.handleLogin)
	r.Post("/admin-login", s.handleAdminLogin)
	r.Post("/logout", s.handleLogout)

	r.With(s.authMiddleware).Get("/dashboard", s.handleDashboard)
	r.With(s.authMiddleware).Get("/dashboard/calendar", s.handleCalendar)
	r.With(s.authMiddleware).Get("/dashboard/slots", s.handleSlots)
	r.With(s.authMiddleware).Get("/dashboard/draft", s.handleGetDraft)
	r.With(s.authMiddleware).Post("/dashboard/bookings", s.handleCreateBooking)

	r.With(s.authMiddleware, s.requireAdmin).Get("/admin", s.handleAdminRequests)
	r.With(s.authMiddleware, s.requireAdmin).Get("/admin/history", s.handleAdminHistory)
	r.With(s.authMiddleware, s.requireAdmin).Get("/admin/settings", s.handleGetSettings)
	r.With(s.authMiddleware, s.requireAdmin).Put("/admin/settings", s.handlePutSettings)
	r.With(s.authMiddleware, s.requireAdmin).Get("/admindashboard", s.handleAdminDashboard)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	var failures []string
	for _, check := range s.checks {
		if check.Check == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := check.Check(ctx)
		cancel()
		if err != nil {
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			failures = append(failures, name+": "+err.Error())
		}
	}
	if len(failures) > 0 {
		s.logger.Warn("Readiness check failed", zap.Strings("failures", failures))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Join(failures, "; ")))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"title":    "LTRC Online Platform",
		"subtitle": "Book a one-hour session with the Language Teaching and Research Centre",
		"links": map[string]string{
			"signup":      "/signup",
			"login":       "/login",
			"adminSignup": "/admin-signup",
			"adminLogin":  "/admin-login",
		},
	})
}
