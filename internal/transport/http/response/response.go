// Package response renders the engine's results and errors as JSON HTTP
// responses, and maps domain.Error.Kind to a stable HTTP status code.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kestrelauth/authn-engine/internal/domain"
	reqctx "github.com/kestrelauth/authn-engine/internal/pkg/context"
)

// JSON writes v as a JSON body with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// ErrorBody is the consistent JSON shape of every non-2xx response.
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteError converts a domain error into a consistent JSON HTTP error
// response. Non-domain errors are treated as internal errors (500)
// without leaking details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal error"
	var meta map[string]string

	var de *domain.Error
	if errors.As(err, &de) {
		status = statusFromKind(de.Kind)
		code = de.Code
		message = de.Message
		meta = de.Meta
	}

	JSON(w, status, ErrorBody{
		Error: ErrorPayload{
			Code:      code,
			Message:   message,
			Meta:      meta,
			RequestID: reqctx.GetRequestID(r.Context()),
		},
	})
}

func statusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindAuthenticationFailure, domain.KindInvalidToken, domain.KindNoTokenProvided:
		return http.StatusUnauthorized
	case domain.KindUnauthorized, domain.KindDisabled:
		return http.StatusForbidden
	case domain.KindMissingParameter, domain.KindIllegalParameter:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindLinkFailed:
		return http.StatusConflict
	case domain.KindIdentityRetrieval, domain.KindExternalConfigMapping:
		return http.StatusBadGateway
	case domain.KindAuthStorage:
		return http.StatusServiceUnavailable
	case domain.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
