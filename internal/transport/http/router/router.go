// Package router assembles the chi mux for the engine's HTTP transport:
// operational endpoints, then the full auth/admin/token/oauth route
// tree, each guarded by the bearer-token and rate-limit middleware the
// bootstrap package wires in.
package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrelauth/authn-engine/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type LocalHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	PasswordChange(w http.ResponseWriter, r *http.Request)
	CreateLocalUser(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
	ForceResetPassword(w http.ResponseWriter, r *http.Request)
	ForceResetAllPasswords(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	DisableAccount(w http.ResponseWriter, r *http.Request)
	UpdateRoles(w http.ResponseWriter, r *http.Request)
	UpdateCustomRoles(w http.ResponseWriter, r *http.Request)
	DisplayNames(w http.ResponseWriter, r *http.Request)
	SearchDisplayNames(w http.ResponseWriter, r *http.Request)
}

type TokenHandler interface {
	CreateExtendedToken(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	Revoke(w http.ResponseWriter, r *http.Request)
	RevokeCurrent(w http.ResponseWriter, r *http.Request)
	RevokeAll(w http.ResponseWriter, r *http.Request)
	RevokeAllTokens(w http.ResponseWriter, r *http.Request)
}

type OAuthHandler interface {
	Providers(w http.ResponseWriter, r *http.Request)
	LoginURL(w http.ResponseWriter, r *http.Request)
	LinkURL(w http.ResponseWriter, r *http.Request)
	Callback(w http.ResponseWriter, r *http.Request)
	LoginState(w http.ResponseWriter, r *http.Request)
	CreateUser(w http.ResponseWriter, r *http.Request)
	LoginWithTempToken(w http.ResponseWriter, r *http.Request)
	SuggestUserName(w http.ResponseWriter, r *http.Request)
	LinkState(w http.ResponseWriter, r *http.Request)
	LinkIdentity(w http.ResponseWriter, r *http.Request)
	Unlink(w http.ResponseWriter, r *http.Request)
}

// RateLimiter is the same redis-backed limiter the bootstrap package
// builds rate-limit middleware from. It is nil-safe: New degrades to no
// rate limiting when not given one.
type RateLimiter = middleware.RateLimiter

// Deps gathers every handler and middleware New needs. Optional
// rate-limit middlewares may be left nil, in which case the
// corresponding route runs unthrottled.
type Deps struct {
	Health HealthHandler
	Local  LocalHandler
	Admin  AdminHandler
	Token  TokenHandler
	OAuth  OAuthHandler

	CORSAllowedOrigins []string

	RLLogin    func(http.Handler) http.Handler
	RLPassword func(http.Handler) http.Handler
	RLAdmin    func(http.Handler) http.Handler
	RLOAuth    func(http.Handler) http.Handler
}

// New builds the engine's HTTP mux. It errors on a nil required handler
// so a wiring mistake surfaces at startup, not on the first request.
func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("router: nil Health handler")
	}
	if deps.Local == nil {
		return nil, fmt.Errorf("router: nil Local handler")
	}
	if deps.Admin == nil {
		return nil, fmt.Errorf("router: nil Admin handler")
	}
	if deps.Token == nil {
		return nil, fmt.Errorf("router: nil Token handler")
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.BearerToken)

	origins := deps.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth/v1", func(r chi.Router) {
		if deps.RLLogin != nil {
			r.With(deps.RLLogin).Post("/login", deps.Local.Login)
		} else {
			r.Post("/login", deps.Local.Login)
		}

		if deps.RLPassword != nil {
			r.With(deps.RLPassword).Post("/password/change", deps.Local.PasswordChange)
		} else {
			r.Post("/password/change", deps.Local.PasswordChange)
		}

		r.Post("/tokens/revoke-current", deps.Token.RevokeCurrent)
		r.Post("/tokens/revoke-all", deps.Token.RevokeAll)
		r.Post("/tokens", deps.Token.CreateExtendedToken)
		r.Get("/tokens/me", deps.Token.Me)
		r.Delete("/tokens/{tokenID}", deps.Token.Revoke)

		r.Post("/display-names", deps.Admin.DisplayNames)
		r.Post("/display-names/search", deps.Admin.SearchDisplayNames)

		r.Route("/admin", func(r chi.Router) {
			if deps.RLAdmin != nil {
				r.Use(deps.RLAdmin)
			}
			r.Post("/users", deps.Local.CreateLocalUser)
			r.Post("/users/{userName}/disable", deps.Admin.DisableAccount)
			r.Post("/users/{userName}/roles", deps.Admin.UpdateRoles)
			r.Post("/users/{userName}/custom-roles", deps.Admin.UpdateCustomRoles)
			r.Post("/users/{userName}/reset-password", deps.Local.ResetPassword)
			r.Post("/users/{userName}/force-reset", deps.Local.ForceResetPassword)
			r.Post("/force-reset-all", deps.Local.ForceResetAllPasswords)
			r.Post("/tokens/revoke-all", deps.Token.RevokeAllTokens)
		})

		if deps.OAuth != nil {
			r.Route("/oauth", func(r chi.Router) {
				if deps.RLOAuth != nil {
					r.Use(deps.RLOAuth)
				}
				r.Get("/providers", deps.OAuth.Providers)
				r.Get("/{provider}/login-url", deps.OAuth.LoginURL)
				r.Get("/{provider}/link-url", deps.OAuth.LinkURL)
				r.Post("/callback", deps.OAuth.Callback)
				r.Get("/login-state/{tempToken}", deps.OAuth.LoginState)
				r.Post("/login-state/create-user", deps.OAuth.CreateUser)
				r.Post("/login-state/complete", deps.OAuth.LoginWithTempToken)
				r.Get("/suggest-username", deps.OAuth.SuggestUserName)
				r.Get("/link-state/{linkToken}", deps.OAuth.LinkState)
				r.Post("/link-state/complete", deps.OAuth.LinkIdentity)
				r.Post("/unlink", deps.OAuth.Unlink)
			})
		}
	})

	return r, nil
}
