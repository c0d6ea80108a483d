package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/booking"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/service"
)

const msgInternal = "Something went wrong. Please try again."

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requestToken prefers the Authorization header over the session cookie.
func requestToken(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps a service error onto a status and the message the user
// sees.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		formErr    *service.ValidationError
		bookingErr *booking.ValidationError
		authErr    *identity.AuthError
		storeErr   *booking.SubmissionError
	)

	switch {
	case errors.As(err, &formErr):
		writeError(w, http.StatusBadRequest, formErr.Message)
	case errors.As(err, &bookingErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": bookingErr.Reason,
			"field": bookingErr.Field,
		})
	case errors.Is(err, booking.ErrSubmissionInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAdminOnly):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &authErr):
		writeError(w, authStatus(authErr.Code), authErr.Message())
	case errors.As(err, &storeErr):
		s.logger.Error("Booking store failed",
			zap.String("request_id", requestID(r)),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, storeErr.Error())
	default:
		s.logger.Error("Request failed",
			zap.String("request_id", requestID(r)),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func authStatus(code identity.Code) int {
	switch code {
	case identity.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case identity.CodeInvalidSession:
		return http.StatusUnauthorized
	case identity.CodeEmailInUse:
		return http.StatusConflict
	case identity.CodeUserDisabled:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
