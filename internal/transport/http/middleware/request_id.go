package middleware

import (
	"net/http"

	"github.com/google/uuid"

	reqctx "github.com/kestrelauth/authn-engine/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// RequestID attaches an incoming or freshly minted request id to the
// request context, so later layers (logger, error responses) can read
// the same value.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderXRequestID, id)
		ctx := reqctx.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
