// Package respond writes JSON bodies and maps error kinds to HTTP statuses.
package respond

import (
	"encoding/json"
	"net/http"

	"chatrelay/internal/core"

	"github.com/rs/zerolog"
)

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes {"status":"success"} merged with fields
func Success(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"status": "success"}
	for k, v := range fields {
		body[k] = v
	}
	JSON(w, http.StatusOK, body)
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind core.Kind) int {
	switch kind {
	case core.KindInvalidInput:
		return http.StatusBadRequest
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	case core.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Err writes err with the status its kind maps to
func Err(w http.ResponseWriter, r *http.Request, err error) {
	ErrStatus(w, r, StatusFor(core.KindOf(err)), err)
}

// ErrStatus logs err and writes the structured error body with status.
// Auth failures are logged as security events; internals never leak.
func ErrStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	l := zerolog.Ctx(r.Context()).With().Str("kind", core.KindOf(err).String()).Logger()
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		l.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Bool("security", true).Msg("request rejected")
	case status >= 500:
		l.Error().Err(err).Msg("request failed")
	default:
		l.Info().Err(err).Msg("request rejected")
	}

	JSON(w, status, map[string]string{"status": "error", "message": core.Message(err)})
}
