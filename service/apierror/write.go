package apierror

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type body struct {
	Error payload `json:"error"`
}

type payload struct {
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
	Field   string   `json:"field,omitempty"`
}

// Write is the single failure handler. Unexpected failures are logged with
// their cause and answered with a generic 500.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	apiErr := As(err)
	if apiErr == nil {
		apiErr = Unexpected(err)
	}
	status := apiErr.HTTPStatus()

	p := payload{Message: apiErr.Message}
	switch apiErr.Kind {
	case KindValidation:
		p.Details = apiErr.Details
	case KindConflict:
		p.Field = strings.Join(apiErr.Fields, ", ")
	case KindUnexpected:
		log.Error("unhandled request failure",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(apiErr.Err),
		)
	}
	if apiErr.Kind != KindUnexpected {
		log.Debug("request failed",
			zap.String("kind", apiErr.Kind.String()),
			zap.Int("status", status),
			zap.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, body{Error: p})
}

// WriteJSON writes payload as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
