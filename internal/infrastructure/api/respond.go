package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopify-tenant-sync/internal/domain"

	"github.com/rs/zerolog"
)

type errorBody struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindMalformedSession:
		return http.StatusBadRequest
	case domain.KindAuth, domain.KindSignature:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindSyncInProgress:
		return http.StatusConflict
	case domain.KindProviderAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the standard failure payload. Internal details
// of repository and unclassified errors are logged, not returned.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	message := err.Error()
	var de *domain.Error
	if errors.As(err, &de) && de.Err != nil {
		message = de.Err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", string(kind)).Msg("Request failed")
		if kind != domain.KindProviderAPI {
			message = "internal error"
		}
	}

	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   errorBody{Kind: kind, Message: message},
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dest); err != nil {
		return domain.ValidationError("decode request", "invalid JSON body: %v", err)
	}
	return nil
}
