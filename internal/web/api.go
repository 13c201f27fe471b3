package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/db"
)

type okResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.Logger.Warn().Err(err).Msg("encode json response")
		}
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error().Err(err).Msg("request failed")
	}
	s.jsonResponse(w, okResponse{OK: false, Error: err.Error()}, status)
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	s.jsonResponse(w, okResponse{OK: false, Error: message}, http.StatusBadRequest)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrValidation),
		errors.Is(err, db.ErrDuplicateAddress):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotDiscovered),
		errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrScanInFlight):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
