package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"scwatch/internal/domain"
)

type errorBody struct {
	Error   string              `json:"error"`
	Details []domain.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps service errors onto status codes. Unknown errors are
// logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	var cerr *domain.ConflictError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Details: verr.Fields})
	case errors.As(err, &cerr):
		writeMsg(w, http.StatusBadRequest, cerr.Msg)
	case errors.Is(err, domain.ErrInvalidTransition):
		writeMsg(w, http.StatusBadRequest, "Submission has already been reviewed")
	case errors.Is(err, domain.ErrConflict):
		writeMsg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeMsg(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrUnauthenticated):
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeMsg(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, domain.ErrProofUpload), errors.Is(err, domain.ErrStorageDisabled):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("proof upload failed")
		writeMsg(w, http.StatusInternalServerError, "Failed to upload proof file")
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeMsg(w, http.StatusInternalServerError, "Internal server error")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable answers public reads with a weak ETag and honours If-None-Match.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeMsg(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}
