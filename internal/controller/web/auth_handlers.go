package web

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/service"
)

type sessionResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      *identity.Identity `json:"user"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var form service.StudentSignUp
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	user, err := s.accounts.RegisterStudent(r.Context(), form)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleAdminSignUp(w http.ResponseWriter, r *http.Request) {
	var form service.AdminSignUp
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	user, err := s.accounts.RegisterAdmin(r.Context(), form)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    user,
		"message": "Admin account created successfully!",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form service.StudentLogin
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	signed, err := s.accounts.LoginStudent(r.Context(), form)
	s.observeSignIn(err)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.startSession(w, signed)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var form service.AdminLogin
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	signed, err := s.accounts.LoginAdmin(r.Context(), form)
	s.observeSignIn(err)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.startSession(w, signed)
}

func (s *Server) observeSignIn(err error) {
	if s.metrics != nil {
		s.metrics.ObserveSignIn(err)
	}
}

func (s *Server) startSession(w http.ResponseWriter, signed *identity.SignedIn) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signed.Token,
		Path:     "/",
		Expires:  signed.ExpiresAt,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	user := signed.Identity
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     signed.Token,
		ExpiresAt: signed.ExpiresAt,
		User:      &user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "You must be logged in")
		return
	}
	if err := s.accounts.Logout(r.Context(), token); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
