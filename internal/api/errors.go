package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"bolao-bot/internal/scoring"
	"bolao-bot/internal/service"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps the service error taxonomy onto HTTP status codes.
// Reads carry no client input, so invalid input there means the stored
// data is inconsistent and is reported as a server error.
func statusFor(r *http.Request, err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrMatchNotFound), errors.Is(err, service.ErrTeamNotFound):
		return http.StatusNotFound
	case errors.Is(err, scoring.ErrSubmissionClosed),
		errors.Is(err, service.ErrResultAlreadySet),
		errors.Is(err, service.ErrTeamExists):
		return http.StatusConflict
	case errors.Is(err, scoring.ErrInvalidInput), errors.Is(err, service.ErrInvalidTeam):
		if isRead(r.Method) {
			return http.StatusInternalServerError
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(r, err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		// Storage details stay in the log.
		writeJSON(w, status, errorBody{Error: http.StatusText(status)})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
