package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
	"github.com/kestrelauth/authn-engine/internal/transport/http/dto"
	"github.com/kestrelauth/authn-engine/internal/transport/http/middleware"
	"github.com/kestrelauth/authn-engine/internal/transport/http/response"
)

// TokenHandler exposes the engine's token lifecycle (C6): minting
// extended tokens, resolving the caller's own token, and revocation.
type TokenHandler struct {
	engine *auth.Engine
}

func NewTokenHandler(engine *auth.Engine) *TokenHandler {
	return &TokenHandler{engine: engine}
}

// CreateExtendedToken handles POST /auth/v1/tokens.
func (h *TokenHandler) CreateExtendedToken(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateExtendedTokenRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	callerToken := middleware.TokenFromContext(r.Context())
	tok, err := h.engine.CreateExtendedToken(r.Context(), callerToken, req.Name, req.Server)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, dto.CreatedResponse{Secret: tok})
}

// Me handles GET /auth/v1/tokens/me, resolving the caller's own token.
func (h *TokenHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	tok, err := h.engine.GetToken(r.Context(), token)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	resp := dto.TokenResponse{
		UserName: string(tok.UserName),
		Type:     string(tok.Type),
		Name:     tok.Name,
	}
	if tok.ExtScope != "" {
		resp.Scope = string(tok.ExtScope)
	}
	if !tok.Expires.IsZero() {
		resp.ExpiresAt = tok.Expires.Format(time.RFC3339)
	}
	response.JSON(w, http.StatusOK, resp)
}

// Revoke handles DELETE /auth/v1/tokens/{tokenID}. The engine's Revoke
// performs no ownership check on a revoke-by-id, so the handler enforces
// it here: only an ADMIN may revoke an arbitrary token by id.
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	callerToken := middleware.TokenFromContext(r.Context())
	if _, err := h.engine.GetUser(r.Context(), callerToken, domain.RoleAdmin); err != nil {
		response.WriteError(w, r, err)
		return
	}

	id, err := uuid.Parse(tokenIDParam(r))
	if err != nil {
		response.WriteError(w, r, domain.ErrIllegalParameter("invalid token id"))
		return
	}
	if err := h.engine.Revoke(r.Context(), id); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// RevokeCurrent handles POST /auth/v1/tokens/revoke-current.
func (h *TokenHandler) RevokeCurrent(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	if err := h.engine.RevokeCurrent(r.Context(), token); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// RevokeAll handles POST /auth/v1/tokens/revoke-all, revoking every
// token belonging to the target user.
func (h *TokenHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	var req dto.RevokeAllRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	actingToken := middleware.TokenFromContext(r.Context())
	if err := h.engine.RevokeAll(r.Context(), actingToken, domain.UserName(req.UserName)); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// RevokeAllTokens handles POST /auth/v1/admin/tokens/revoke-all,
// ROOT-only: revokes every token in the system.
func (h *TokenHandler) RevokeAllTokens(w http.ResponseWriter, r *http.Request) {
	adminToken := middleware.TokenFromContext(r.Context())
	if err := h.engine.RevokeAllTokens(r.Context(), adminToken); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}
