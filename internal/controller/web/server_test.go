package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/availability"
	"github.com/Freeeeeet/ltrc_platform/internal/booking"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/metrics"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
	"github.com/Freeeeeet/ltrc_platform/internal/service"
)

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type session struct {
	id      identity.Identity
	profile *model.User
}

type fakeAccounts struct {
	mu        sync.Mutex
	sessions  map[string]session
	loginErr  error
	loggedOut []string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{sessions: map[string]session{}}
}

func (f *fakeAccounts) add(token string, admin bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := "uid-" + token
	f.sessions[token] = session{
		id: identity.Identity{UID: uid, Email: token + "@example.com", SessionID: "sid-" + token, IsAdmin: admin},
		profile: &model.User{
			ID: uid, IDNumber: "A-100", FirstName: "Ana", LastName: "Lee",
			Email: token + "@example.com", IsAdmin: admin,
		},
	}
}

func (f *fakeAccounts) RegisterStudent(_ context.Context, form service.StudentSignUp) (*model.User, error) {
	if form.Email == "" {
		return nil, &service.ValidationError{Message: "All fields are required"}
	}
	return &model.User{ID: "new", Email: form.Email, FirstName: form.FirstName}, nil
}

func (f *fakeAccounts) RegisterAdmin(_ context.Context, form service.AdminSignUp) (*model.User, error) {
	return &model.User{ID: "new-admin", Email: form.Email, IsAdmin: true}, nil
}

func (f *fakeAccounts) signIn(email string) (*identity.SignedIn, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	token := strings.SplitN(email, "@", 2)[0]
	f.add(token, false)
	s := f.sessions[token]
	return &identity.SignedIn{Token: token, ExpiresAt: testNow.Add(time.Hour), Identity: s.id}, nil
}

func (f *fakeAccounts) LoginStudent(_ context.Context, form service.StudentLogin) (*identity.SignedIn, error) {
	return f.signIn(form.Email)
}

func (f *fakeAccounts) LoginAdmin(_ context.Context, form service.AdminLogin) (*identity.SignedIn, error) {
	return f.signIn(form.Email)
}

func (f *fakeAccounts) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = append(f.loggedOut, token)
	delete(f.sessions, token)
	return nil
}

func (f *fakeAccounts) Resolve(_ context.Context, token string) (*identity.Identity, *model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return nil, nil, &identity.AuthError{Code: identity.CodeInvalidSession}
	}
	id := s.id
	return &id, s.profile, nil
}

func (f *fakeAccounts) ProfileByID(_ context.Context, uid string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.id.UID == uid {
			return s.profile, nil
		}
	}
	return nil, nil
}

type memMeetings struct {
	mu       sync.Mutex
	meetings []*model.Meeting
	readErr  error
	// when set, CreateMeeting signals entered and waits on release
	entered chan struct{}
	release chan struct{}
}

func (m *memMeetings) CreateMeeting(_ context.Context, meeting *model.Meeting) error {
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting.ID = fmt.Sprintf("m%d", len(m.meetings)+1)
	cp := *meeting
	m.meetings = append(m.meetings, &cp)
	return nil
}

func (m *memMeetings) ListMeetingsByUser(_ context.Context, uid string) ([]*model.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []*model.Meeting
	for _, meeting := range m.meetings {
		if meeting.UserID == uid {
			cp := *meeting
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memMeetings) ListMeetings(_ context.Context) ([]*model.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make([]*model.Meeting, 0, len(m.meetings))
	for _, meeting := range m.meetings {
		cp := *meeting
		out = append(out, &cp)
	}
	return out, nil
}

type fakeSettings struct {
	saved *model.Settings
}

func (f *fakeSettings) Get(context.Context) (*model.Settings, error) {
	if f.saved == nil {
		return service.DefaultSettings(), nil
	}
	return f.saved, nil
}

func (f *fakeSettings) Update(_ context.Context, s *model.Settings) error {
	for _, label := range s.AvailableTimes {
		if !availability.OnLadder(label) {
			return &service.ValidationError{Message: fmt.Sprintf("%q is not a bookable time", label)}
		}
	}
	f.saved = s
	return nil
}

type fakeStats struct{}

func (fakeStats) Stats(context.Context) (*service.DashboardStats, error) {
	return &service.DashboardStats{TotalUsers: 7, TotalAdmins: 1, RecentUsers: []*model.User{}}, nil
}

type fakeObserver struct {
	fn           func(identity.SessionEvent)
	unsubscribed bool
}

func (o *fakeObserver) Observe(fn func(identity.SessionEvent)) func() {
	o.fn = fn
	return func() { o.unsubscribed = true }
}

type fixture struct {
	server   *Server
	handler  http.Handler
	accounts *fakeAccounts
	meetings *memMeetings
	settings *fakeSettings
	observer *fakeObserver
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, checks ...ReadyCheck) *fixture {
	t.Helper()
	f := &fixture{
		accounts: newFakeAccounts(),
		meetings: &memMeetings{},
		settings: &fakeSettings{},
		observer: &fakeObserver{},
		metrics:  metrics.New(),
	}
	engine := booking.NewEngine(f.meetings, f.meetings, f.accounts, availability.AlwaysOpen{}, zap.NewNop(),
		booking.WithClock(func() time.Time { return testNow }),
		booking.WithLocation(time.UTC),
	)

	s, err := NewServer(Deps{
		Accounts: f.accounts,
		Stats:    fakeStats{},
		Settings: f.settings,
		Engine:   engine,
		Sessions: f.observer,
		Metrics:  f.metrics,
		Checks:   checks,
	}, Options{CORSOrigins: []string{"https://ltrc.example.com"}}, zap.NewNop())
	require.NoError(t, err)

	f.server = s
	f.handler = s.Router()
	return f
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, ReadyCheck{Name: "db", Check: func(context.Context) error { return errors.New("down") }})

	rec := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "db: down", rec.Body.String())

	ok := newFixture(t, ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, ok.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/dashboard", "stale", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Your session has expired. Please log in again", decode(t, rec)["error"])

	f.accounts.add("student", false)
	rec = f.do(http.MethodGet, "/admin", "student", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/login", "", map[string]string{
		"idNumber": "A-100", "email": "ana@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ana", decode(t, rec)["token"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	dash := httptest.NewRecorder()
	f.handler.ServeHTTP(dash, req)
	require.Equal(t, http.StatusOK, dash.Code)

	body := decode(t, dash)
	assert.Equal(t, "2024-03-10", body["today"])
	assert.Len(t, body["topics"], len(model.Topics))
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)

	f.accounts.loginErr = &identity.AuthError{Code: identity.CodeWrongPassword}
	rec := f.do(http.MethodPost, "/login", "", map[string]string{"email": "a@b.co", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect password", decode(t, rec)["error"])

	f.accounts.loginErr = &identity.AuthError{Code: identity.CodeTooManyRequests}
	rec = f.do(http.MethodPost, "/login", "", map[string]string{"email": "a@b.co", "password": "x"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	f.accounts.loginErr = service.ErrAdminOnly
	rec = f.do(http.MethodPost, "/admin-login", "", map[string]string{"email": "a@b.co", "password": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. This login is for administrators only.", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/login", "", map[string]string{"unknown": "field"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	metricsRec := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, metricsRec.Body.String(), `ltrc_sign_ins_total{result="auth/wrong-password"} 1`)
}

func TestSignUp(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/signup", "", map[string]string{"firstName": "Ana"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/admin-signup", "", map[string]string{"email": "boss@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Admin account created successfully!", decode(t, rec)["message"])
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.accounts.add("ana", false)

	rec := f.do(http.MethodPost, "/logout", "ana", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"ana"}, f.accounts.loggedOut)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/logout", "", nil).Code)
}

func TestCalendar(t *testing.T) {
	f := newFixture(t)
	f.accounts.add("ana", false)

	rec := f.do(http.MethodGet, "/dashboard/calendar?year=2024&month=1", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cal calendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cal))
	assert.Equal(t, "February 2024", cal.Title)
	assert.Equal(t, 29, cal.DaysInMonth)
	assert.Equal(t, 4, cal.FirstWeekdayOffset)
	assert.Equal(t, monthRef{Year: 2024, Month: 0}, cal.Prev)
	assert.Equal(t, monthRef{Year: 2024, Month: 2}, cal.Next)

	rec = f.do(http.MethodGet, "/dashboard/calendar?year=2024&month=-1", "ana", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cal))
	assert.Equal(t, "December 2023", cal.Title)

	rec = f.do(http.MethodGet, "/dashboard/calendar", "ana", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cal))
	assert.Equal(t, "March 2024", cal.Title)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/dashboard/calendar?month=x", "ana", nil).Code)
}

func TestSlots(t *testing.T) {
	f := newFixture(t)
	f.accounts.add("ana", false)

	rec := f.do(http.MethodGet, "/dashboard/slots?date=2024-03-15", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["slots"], len(availability.Ladder))

	rec = f.do(http.MethodGet, "/dashboard/slots?date=15/03/2024", "ana", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	f.accounts.add("ana", false)

	rec := f.do(http.MethodPost, "/dashboard/bookings", "ana", map[string]string{
		"date": "2024-03-15", "time": "1:00 PM",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Please select a topic", body["error"])
	assert.Equal(t, "topic", body["field"])

	// the failed attempt keeps the draft
	rec = f.do(http.MethodGet, "/dashboard/draft", "ana", nil)
	assert.Equal(t, "1:00 PM", decode(t, rec)["time"])

	rec = f.do(http.MethodPost, "/dashboard/bookings", "ana", map[string]string{
		"date": "2024-03-15", "time": "1:00 PM", "topic": "grammar", "notes": " past tense ",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "m1", body["id"])
	upcoming := body["upcoming"].(map[string]any)["meetings"].([]any)
	require.Len(t, upcoming, 1)
	first := upcoming[0].(map[string]any)
	assert.Equal(t, "13:00", first["Time"])
	assert.Equal(t, "Ana Lee", first["Name"])
	assert.Equal(t, "past tense", first["AdditionalInformation"])

	rec = f.do(http.MethodGet, "/dashboard/draft", "ana", nil)
	assert.Equal(t, "", decode(t, rec)["time"])

	metricsRec := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, metricsRec.Body.String(), `ltrc_booking_submissions_total{result="created"} 1`)
	assert.Contains(t, metricsRec.Body.String(), `ltrc_booking_submissions_total{result="invalid"} 1`)
}

func TestCreateBookingWhileSubmittingLeavesDraft(t *testing.T) {
	f := newFixture(t)
	f.accounts.add("ana", false)
	f.meetings.entered = make(chan struct{})
	f.meetings.release = make(chan struct{})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.do(http.MethodPost, "/dashboard/bookings", "ana", map[string]string{
			"date": "2024-03-15", "time": "1:00 PM", "topic": "grammar",
		})
	}()
	<-f.meetings.entered

	rec := f.do(http.MethodPost, "/dashboard/bookings", "ana", map[string]string{
		"date": "2024-03-16", "time": "9:00 AM", "topic": "verbs", "notes": "second",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/dashboard/draft", "ana", nil)
	draft := decode(t, rec)
	assert.Equal(t, float64(15), draft["date"].(map[string]any)["Day"])
	assert.Equal(t, "1:00 PM", draft["time"])
	assert.Equal(t, "grammar", draft["topic"])
	assert.Equal(t, "", draft["notes"])

	close(f.meetings.release)
	first := <-done
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Len(t, f.meetings.meetings, 1)

	metricsRec := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, metricsRec.Body.String(), `ltrc_booking_submissions_total{result="in_flight"} 1`)
}

func TestListingsRenderBannerOnReadFailure(t *testing.T) {
	f := newFixture(t)
	f.accounts.add("boss", true)
	f.accounts.add("ana", false)
	f.meetings.readErr = errors.New("connection reset")

	rec := f.do(http.MethodGet, "/admin", "boss", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Failed to load meeting requests. Please try again later.", body["error"])
	assert.Empty(t, body["meetings"])

	rec = f.do(http.MethodGet, "/admin/history", "boss", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Failed to load past requests. Please try again later.", decode(t, rec)["error"])

	rec = f.do(http.MethodGet, "/dashboard", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	upcoming := decode(t, rec)["upcoming"].(map[string]any)
	assert.Equal(t, msgUpcomingFailed, upcoming["error"])
}

func TestAdminHistorySplit(t *testing.T) {
	f := newFixture(t)
	f.accounts.add("boss", true)
	f.meetings.meetings = []*model.Meeting{
		{ID: "old", CreatedAt: testNow.Add(-20 * 24 * time.Hour)},
		{ID: "new", CreatedAt: testNow.Add(-time.Hour)},
	}

	all := decode(t, f.do(http.MethodGet, "/admin", "boss", nil))["meetings"].([]any)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].(map[string]any)["id"])

	history := decode(t, f.do(http.MethodGet, "/admin/history", "boss", nil))["meetings"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, "old", history[0].(map[string]any)["id"])

	stats := decode(t, f.do(http.MethodGet, "/admindashboard", "boss", nil))["stats"].(map[string]any)
	assert.EqualValues(t, 7, stats["totalUsers"])
}

func TestAdminSettings(t *testing.T) {
	f := newFixture(t)
	f.accounts.add("boss", true)

	rec := f.do(http.MethodGet, "/admin/settings", "boss", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["availableTimes"], len(availability.Ladder))

	rec = f.do(http.MethodPut, "/admin/settings", "boss", map[string]any{
		"availableTimes": []string{"7:00 AM"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/admin/settings", "boss", map[string]any{
		"availableTimes": []string{"9:00 AM", "10:00 AM"}, "emailNotifications": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Settings saved successfully!", decode(t, rec)["message"])
	assert.Equal(t, []string{"9:00 AM", "10:00 AM"}, f.settings.saved.AvailableTimes)
}

func TestSignOutEventDropsDraft(t *testing.T) {
	f := newFixture(t)
	f.accounts.add("ana", false)

	f.do(http.MethodPost, "/dashboard/bookings", "ana", map[string]string{"date": "2024-03-15", "time": "9:00 AM"})
	require.Equal(t, "9:00 AM", decode(t, f.do(http.MethodGet, "/dashboard/draft", "ana", nil))["time"])

	require.NotNil(t, f.observer.fn)
	f.observer.fn(identity.SessionEvent{UID: "uid-ana", SessionID: "sid-ana"})

	assert.Equal(t, "", decode(t, f.do(http.MethodGet, "/dashboard/draft", "ana", nil))["time"])

	f.server.Close()
	assert.True(t, f.observer.unsubscribed)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "https://ltrc.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://ltrc.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken(""))
}
