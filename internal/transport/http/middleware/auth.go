package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

type ctxKey int

const tokenCtxKey ctxKey = iota

// WithToken stores an IncomingToken on the context, for handlers that
// need to re-resolve it (e.g. after consuming it once for an initial
// lookup).
func WithToken(ctx context.Context, tok domain.IncomingToken) context.Context {
	return context.WithValue(ctx, tokenCtxKey, tok)
}

// TokenFromContext returns the bearer token attached by BearerToken, if
// any. The engine treats an empty token as domain.ErrNoTokenProvided,
// so callers do not need to special-case the zero value.
func TokenFromContext(ctx context.Context) domain.IncomingToken {
	tok, _ := ctx.Value(tokenCtxKey).(domain.IncomingToken)
	return tok
}

// BearerToken extracts the Authorization: Bearer <token> header into the
// request context as a domain.IncomingToken. It never rejects the
// request itself: the engine's GetUser resolves the token (or its
// absence) into the appropriate domain error, so every route shares one
// authentication failure path instead of the middleware duplicating it.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw string
		if h := r.Header.Get("Authorization"); h != "" {
			parts := strings.SplitN(h, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				raw = strings.TrimSpace(parts[1])
			}
		}
		ctx := WithToken(r.Context(), domain.IncomingToken(raw))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
