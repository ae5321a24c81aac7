package dto

// CreateExtendedTokenRequest mints a long-lived DEV_TOKEN or SERV_TOKEN
// scoped token for the caller.
type CreateExtendedTokenRequest struct {
	Name   string `json:"name" validate:"required"`
	Server bool   `json:"server"`
}

func (r *CreateExtendedTokenRequest) Validate() error { return validationErr(validate.Struct(r)) }

// TokenResponse describes the caller's own token, resolved via GetToken.
type TokenResponse struct {
	UserName  string `json:"user_name"`
	Type      string `json:"type"`
	Scope     string `json:"scope,omitempty"`
	Name      string `json:"name,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RevokeAllRequest revokes every token belonging to a target user.
type RevokeAllRequest struct {
	UserName string `json:"user_name" validate:"required"`
}

func (r *RevokeAllRequest) Validate() error { return validationErr(validate.Struct(r)) }
