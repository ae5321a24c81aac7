package handlers

import (
	"net/http"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
	"github.com/kestrelauth/authn-engine/internal/transport/http/dto"
	"github.com/kestrelauth/authn-engine/internal/transport/http/middleware"
	"github.com/kestrelauth/authn-engine/internal/transport/http/response"
)

// AdminHandler exposes the engine's admin operations (C10/C11):
// disabling accounts, role/custom-role management, and display-name
// lookup/search.
type AdminHandler struct {
	engine *auth.Engine
}

func NewAdminHandler(engine *auth.Engine) *AdminHandler {
	return &AdminHandler{engine: engine}
}

// DisableAccount handles POST /auth/v1/admin/users/{userName}/disable.
func (h *AdminHandler) DisableAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.DisableAccountRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	adminToken := middleware.TokenFromContext(r.Context())
	target := domain.UserName(userNameParam(r))

	if err := h.engine.DisableAccount(r.Context(), adminToken, target, req.Disable, req.Reason); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// UpdateRoles handles POST /auth/v1/admin/users/{userName}/roles.
func (h *AdminHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateRolesRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	adminToken := middleware.TokenFromContext(r.Context())
	target := domain.UserName(userNameParam(r))

	add, err := parseRoles(req.Add)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	remove, err := parseRoles(req.Remove)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.engine.UpdateRoles(r.Context(), adminToken, target, add, remove); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// UpdateCustomRoles handles POST /auth/v1/admin/users/{userName}/custom-roles.
func (h *AdminHandler) UpdateCustomRoles(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateCustomRolesRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	adminToken := middleware.TokenFromContext(r.Context())
	target := domain.UserName(userNameParam(r))

	if err := h.engine.UpdateCustomRoles(r.Context(), adminToken, target, toCustomRoleSet(req.Add), toCustomRoleSet(req.Remove)); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// DisplayNames handles POST /auth/v1/display-names, a batch lookup
// capped at 10000 names by the engine.
func (h *AdminHandler) DisplayNames(w http.ResponseWriter, r *http.Request) {
	var req dto.DisplayNamesRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	token := middleware.TokenFromContext(r.Context())
	names := make([]domain.UserName, len(req.UserNames))
	for i, n := range req.UserNames {
		names[i] = domain.UserName(n)
	}

	out, err := h.engine.GetUserDisplayNames(r.Context(), token, names)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, dto.DisplayNamesResponse{Names: displayNamesToStrings(out)})
}

// SearchDisplayNames handles POST /auth/v1/display-names/search. A
// non-admin caller supplying RoleFilter is rejected by the engine.
func (h *AdminHandler) SearchDisplayNames(w http.ResponseWriter, r *http.Request) {
	var req dto.SearchDisplayNamesRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	token := middleware.TokenFromContext(r.Context())
	spec := auth.NameSearchSpec{
		Prefix:     req.Prefix,
		RoleFilter: domain.NewRoleSet(),
	}
	if len(req.RoleFilter) > 0 {
		roles, err := parseRoles(req.RoleFilter)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}
		spec.RoleFilter = roles
	}

	out, err := h.engine.SearchUserDisplayNames(r.Context(), token, spec)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, dto.DisplayNamesResponse{Names: displayNamesToStrings(out)})
}

func parseRoles(raw []string) (domain.RoleSet, error) {
	roles := make([]domain.Role, 0, len(raw))
	for _, s := range raw {
		r := domain.Role(s)
		if !domain.IsValidRole(r) {
			return nil, domain.ErrNoSuchRole(s)
		}
		roles = append(roles, r)
	}
	return domain.NewRoleSet(roles...), nil
}

func toCustomRoleSet(raw []string) map[domain.CustomRole]bool {
	out := make(map[domain.CustomRole]bool, len(raw))
	for _, s := range raw {
		out[domain.CustomRole(s)] = true
	}
	return out
}

func displayNamesToStrings(in map[domain.UserName]domain.DisplayName) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[string(k)] = string(v)
	}
	return out
}
