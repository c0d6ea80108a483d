package web

import (
	"net/http"

	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

const (
	msgRequestsFailed = "Failed to load meeting requests. Please try again later."
	msgHistoryFailed  = "Failed to load past requests. Please try again later."
)

func (s *Server) handleAdminRequests(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.engine.ListAll(r.Context())
	writeJSON(w, http.StatusOK, s.listingOf(r, meetings, err, msgRequestsFailed))
}

func (s *Server) handleAdminHistory(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.engine.ListHistory(r.Context())
	writeJSON(w, http.StatusOK, s.listingOf(r, meetings, err, msgHistoryFailed))
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotImplemented, "not_configured")
		return
	}
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  principalFrom(r.Context()).profile,
		"stats": stats,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "not_configured")
		return
	}
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type settingsForm struct {
	AvailableTimes     []string `json:"availableTimes"`
	EmailNotifications bool     `json:"emailNotifications"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "not_configured")
		return
	}
	var form settingsForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	settings := &model.Settings{
		AvailableTimes:     form.AvailableTimes,
		EmailNotifications: form.EmailNotifications,
	}
	if err := s.settings.Update(r.Context(), settings); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"settings": settings,
		"message":  "Settings saved successfully!",
	})
}
