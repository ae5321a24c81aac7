package handlers

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
	"github.com/kestrelauth/authn-engine/internal/infrastructure/redis"
	"github.com/kestrelauth/authn-engine/internal/transport/http/dto"
	"github.com/kestrelauth/authn-engine/internal/transport/http/middleware"
	"github.com/kestrelauth/authn-engine/internal/transport/http/response"
)

// OAuthHandler drives the redirect half of the OAuth2 login/link state
// machines (C8/C9) that the engine itself is agnostic to: minting the
// provider authorize URL and consuming the CSRF state token the
// callback arrives with. Once a provider/authcode pair is in hand, it
// delegates entirely to the engine.
type OAuthHandler struct {
	engine   *auth.Engine
	registry auth.IdentityProviderRegistry
	storage  auth.Storage
	state    *redis.OAuthStateStore
}

func NewOAuthHandler(engine *auth.Engine, registry auth.IdentityProviderRegistry, storage auth.Storage, state *redis.OAuthStateStore) *OAuthHandler {
	return &OAuthHandler{engine: engine, registry: registry, storage: storage, state: state}
}

// Providers handles GET /auth/v1/oauth/providers: every registered
// provider not disabled in the current config, for a login page to
// render a button per provider. Name() and ImageURI() are the only
// fields a client needs; LoginURL is fetched per-provider once chosen.
func (h *OAuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.storage.GetConfig(r.Context())
	if err != nil {
		response.WriteError(w, r, domain.ErrAuthStorage(err))
		return
	}

	all := h.registry.All()
	out := make([]dto.ProviderResponse, 0, len(all))
	for _, p := range all {
		if pc, ok := cfg.Providers[p.Name()]; ok && !pc.Enabled {
			continue
		}
		out = append(out, dto.ProviderResponse{Name: p.Name(), ImageURI: p.ImageURI()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	response.JSON(w, http.StatusOK, out)
}

// LoginURL handles GET /auth/v1/oauth/{provider}/login-url.
func (h *OAuthHandler) LoginURL(w http.ResponseWriter, r *http.Request) {
	h.buildAuthorizeURL(w, r, false)
}

// LinkURL handles GET /auth/v1/oauth/{provider}/link-url. It does not
// check the caller's bearer token; Engine.Link resolves that token, and
// refuses local accounts, when Callback completes the link.
func (h *OAuthHandler) LinkURL(w http.ResponseWriter, r *http.Request) {
	h.buildAuthorizeURL(w, r, true)
}

func (h *OAuthHandler) buildAuthorizeURL(w http.ResponseWriter, r *http.Request, isLink bool) {
	providerName := chi.URLParam(r, "provider")

	cfg, err := h.storage.GetConfig(r.Context())
	if err != nil {
		response.WriteError(w, r, domain.ErrAuthStorage(err))
		return
	}
	provider, err := h.registry.Resolve(providerName, cfg)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	stateToken, err := h.state.Create(r.Context(), redis.StateData{Provider: providerName, IsLink: isLink})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	loginURL, err := provider.LoginURL(stateToken, isLink)
	if err != nil {
		response.WriteError(w, r, domain.ErrExternalConfigMapping(err))
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"login_url": loginURL, "state": stateToken})
}

// Callback handles POST /auth/v1/oauth/callback: the client exchanges
// the state token it was given by LoginURL/LinkURL and the authcode the
// provider's redirect carried. Link callbacks pass the caller's bearer
// token to Engine.Link.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req dto.OAuthExchangeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	data, err := h.state.Consume(r.Context(), req.State)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if data.IsLink {
		userToken := middleware.TokenFromContext(r.Context())
		result, err := h.engine.Link(r.Context(), userToken, data.Provider, req.AuthCode)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}
		response.JSON(w, http.StatusOK, dto.LinkResultResponse{TemporaryToken: result.TemporaryToken, EmptyToken: result.EmptyToken})
		return
	}

	result, err := h.engine.Login(r.Context(), data.Provider, req.AuthCode)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, dto.AuthResultResponse{
		Token:          result.Token,
		TemporaryToken: result.TemporaryToken,
		Deferred:       result.Deferred,
		UserName:       string(result.UserName),
	})
}

// LoginState handles GET /auth/v1/oauth/login-state/{tempToken}.
func (h *OAuthHandler) LoginState(w http.ResponseWriter, r *http.Request) {
	tempToken := chi.URLParam(r, "tempToken")
	state, err := h.engine.GetLoginState(r.Context(), tempToken)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, dto.LoginStateResponse{
		Provider:             state.Provider,
		LoginAllowedGlobally: state.LoginAllowedGlobally,
		AlreadyLinked:        toRemoteIdentityResponses(state.AlreadyLinked),
		AvailableToCreate:    toRemoteIdentityResponses(state.AvailableToCreate),
	})
}

// CreateUser handles POST /auth/v1/oauth/login-state/create-user,
// finishing a deferred login by creating a new local user bound to one
// of the offered candidate identities.
func (h *OAuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserViaTempTokenRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}
	identityID, err := uuid.Parse(req.IdentityID)
	if err != nil {
		response.WriteError(w, r, domain.ErrIllegalParameter("invalid identity_id"))
		return
	}

	token, err := h.engine.CreateUser(r.Context(), req.TemporaryToken, identityID, domain.UserName(req.UserName), domain.DisplayName(req.DisplayName), domain.EmailAddress(req.Email))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, dto.AuthResultResponse{Token: token})
}

// LoginWithTempToken handles POST /auth/v1/oauth/login-state/complete,
// finishing a deferred login by picking an already-linked identity.
func (h *OAuthHandler) LoginWithTempToken(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginWithTempTokenRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}
	identityID, err := uuid.Parse(req.IdentityID)
	if err != nil {
		response.WriteError(w, r, domain.ErrIllegalParameter("invalid identity_id"))
		return
	}

	token, err := h.engine.LoginWithTempToken(r.Context(), req.TemporaryToken, identityID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, dto.AuthResultResponse{Token: token})
}

// SuggestUserName handles GET /auth/v1/oauth/suggest-username?raw=....
func (h *OAuthHandler) SuggestUserName(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("raw")
	suggestion, ok := h.engine.SuggestUserName(r.Context(), raw)
	response.JSON(w, http.StatusOK, dto.SuggestUserNameResponse{UserName: string(suggestion), OK: ok})
}

// LinkState handles GET /auth/v1/oauth/link-state/{linkToken}, authenticated.
func (h *OAuthHandler) LinkState(w http.ResponseWriter, r *http.Request) {
	linkToken := chi.URLParam(r, "linkToken")
	userToken := middleware.TokenFromContext(r.Context())

	candidates, err := h.engine.GetLinkState(r.Context(), userToken, linkToken)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, toRemoteIdentityResponses(candidates))
}

// LinkIdentity handles POST /auth/v1/oauth/link-state/complete, authenticated.
func (h *OAuthHandler) LinkIdentity(w http.ResponseWriter, r *http.Request) {
	var req dto.LinkIdentityRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}
	identityID, err := uuid.Parse(req.IdentityID)
	if err != nil {
		response.WriteError(w, r, domain.ErrIllegalParameter("invalid identity_id"))
		return
	}

	userToken := middleware.TokenFromContext(r.Context())
	if err := h.engine.LinkIdentity(r.Context(), userToken, req.LinkToken, identityID); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// Unlink handles POST /auth/v1/oauth/unlink, authenticated.
func (h *OAuthHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	var req dto.UnlinkRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}
	identityID, err := uuid.Parse(req.IdentityID)
	if err != nil {
		response.WriteError(w, r, domain.ErrIllegalParameter("invalid identity_id"))
		return
	}

	userToken := middleware.TokenFromContext(r.Context())
	if err := h.engine.Unlink(r.Context(), userToken, identityID); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

func toRemoteIdentityResponses(in []domain.RemoteIdentityWithLocalID) []dto.RemoteIdentityResponse {
	out := make([]dto.RemoteIdentityResponse, len(in))
	for i, ri := range in {
		out[i] = dto.RemoteIdentityResponse{
			LocalID:  ri.LocalID.String(),
			Provider: ri.ID.Provider,
			Username: ri.Details.Username,
			FullName: ri.Details.FullName,
			Email:    ri.Details.Email,
		}
	}
	return out
}
