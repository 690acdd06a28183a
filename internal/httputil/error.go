package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/szlgbiliard/biliard-api/internal/apperr"
)

type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON serializes v with the given status. Encoding failures are logged
// and otherwise dropped; the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as a JSON error response. Internal details are
// logged, not leaked: unknown and transient errors get a generic message.
func WriteError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= 500 {
		logger.Error().Err(err).Msg("request failed")
		msg = "internal error"
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("request rejected")
	}
	WriteJSON(w, logger, status, errorBody{Error: msg})
}

// DecodeJSON parses the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}
