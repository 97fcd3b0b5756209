package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, outcome, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Outcome: outcome})
}

// statusFor maps an engine outcome to an HTTP status
func statusFor(outcome string) int {
	switch outcome {
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "already_booked", "capacity_exceeded", "invalid_transition":
		return http.StatusConflict
	case "too_late_to_cancel":
		return http.StatusUnprocessableEntity
	case "not_permitted":
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	outcome := booking.Outcome(err)
	status := statusFor(outcome)

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, status, outcome, "internal error")
		return
	}

	s.logger.Info("Request rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("outcome", outcome),
		zap.Error(err))
	respondError(w, status, outcome, err.Error())
}

