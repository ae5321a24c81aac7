package handlers

import (
	"net/http"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
	"github.com/kestrelauth/authn-engine/internal/transport/http/dto"
	"github.com/kestrelauth/authn-engine/internal/transport/http/middleware"
	"github.com/kestrelauth/authn-engine/internal/transport/http/response"
)

// LocalHandler exposes the engine's local-password account operations
// (C7): login, password change, and the admin-only account lifecycle
// that creates or resets them.
type LocalHandler struct {
	engine *auth.Engine
}

func NewLocalHandler(engine *auth.Engine) *LocalHandler {
	return &LocalHandler{engine: engine}
}

// Login handles POST /auth/v1/login.
func (h *LocalHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LocalLoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	userName := domain.UserName(req.UserName)
	password := []byte(req.Password)

	result, err := h.engine.LocalLogin(r.Context(), userName, password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, dto.AuthResultResponse{
		Token:     result.Token,
		MustReset: result.MustReset,
		UserName:  string(result.UserName),
	})
}

// PasswordChange handles POST /auth/v1/password/change.
func (h *LocalHandler) PasswordChange(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordChangeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	err := h.engine.PasswordChange(r.Context(), domain.UserName(req.UserName), []byte(req.OldPassword), []byte(req.NewPassword))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// CreateLocalUser handles POST /auth/v1/admin/users, admin-only.
func (h *LocalHandler) CreateLocalUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLocalUserRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	adminToken := middleware.TokenFromContext(r.Context())
	tempPassword, err := h.engine.CreateLocalUser(r.Context(), adminToken, domain.UserName(req.UserName), domain.DisplayName(req.DisplayName), domain.EmailAddress(req.Email))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, dto.CreatedResponse{Secret: tempPassword})
}

// ResetPassword handles POST /auth/v1/admin/users/{userName}/reset-password,
// admin-only. Returns a freshly minted password.
func (h *LocalHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	adminToken := middleware.TokenFromContext(r.Context())
	target := domain.UserName(userNameParam(r))

	newPassword, err := h.engine.ResetPassword(r.Context(), adminToken, target)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, dto.CreatedResponse{Secret: newPassword})
}

// ForceResetPassword handles POST /auth/v1/admin/users/{userName}/force-reset,
// admin-only: flags the account so its next login requires a new password.
func (h *LocalHandler) ForceResetPassword(w http.ResponseWriter, r *http.Request) {
	adminToken := middleware.TokenFromContext(r.Context())
	target := domain.UserName(userNameParam(r))

	if err := h.engine.ForceResetPassword(r.Context(), adminToken, target); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// ForceResetAllPasswords handles POST /auth/v1/admin/force-reset-all, ROOT-only.
func (h *LocalHandler) ForceResetAllPasswords(w http.ResponseWriter, r *http.Request) {
	adminToken := middleware.TokenFromContext(r.Context())

	if err := h.engine.ForceResetAllPasswords(r.Context(), adminToken); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}
