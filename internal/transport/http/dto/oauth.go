package dto

// OAuthExchangeRequest carries the CSRF state token minted by LoginURL/
// LinkURL and the authorization code the provider's redirect carried,
// to be exchanged server-side.
type OAuthExchangeRequest struct {
	State    string `json:"state" validate:"required"`
	AuthCode string `json:"auth_code" validate:"required"`
}

func (r *OAuthExchangeRequest) Validate() error { return validationErr(validate.Struct(r)) }

// AuthResultResponse mirrors auth.AuthResult: either a login token was
// issued directly, or the caller must continue with TemporaryToken.
type AuthResultResponse struct {
	Token          string `json:"token,omitempty"`
	TemporaryToken string `json:"temporary_token,omitempty"`
	Deferred       bool   `json:"deferred"`
	MustReset      bool   `json:"must_reset,omitempty"`
	UserName       string `json:"user_name,omitempty"`
}

// RemoteIdentityResponse is one candidate identity offered by a
// TemporaryToken-continued login or link flow.
type RemoteIdentityResponse struct {
	LocalID  string `json:"local_id"`
	Provider string `json:"provider"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// LoginStateResponse mirrors auth.LoginState.
type LoginStateResponse struct {
	Provider             string                   `json:"provider"`
	LoginAllowedGlobally bool                     `json:"login_allowed_globally"`
	AlreadyLinked        []RemoteIdentityResponse `json:"already_linked"`
	AvailableToCreate    []RemoteIdentityResponse `json:"available_to_create"`
}

// CreateUserViaTempTokenRequest finishes a deferred OAuth2 login by
// creating a new local user bound to one of the candidate identities.
type CreateUserViaTempTokenRequest struct {
	TemporaryToken string `json:"temporary_token" validate:"required"`
	IdentityID     string `json:"identity_id" validate:"required,uuid"`
	UserName       string `json:"user_name" validate:"required"`
	DisplayName    string `json:"display_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
}

func (r *CreateUserViaTempTokenRequest) Validate() error { return validationErr(validate.Struct(r)) }

// LoginWithTempTokenRequest finishes a deferred OAuth2 login by picking
// one of the already-linked candidate identities.
type LoginWithTempTokenRequest struct {
	TemporaryToken string `json:"temporary_token" validate:"required"`
	IdentityID     string `json:"identity_id" validate:"required,uuid"`
}

func (r *LoginWithTempTokenRequest) Validate() error { return validationErr(validate.Struct(r)) }

// SuggestUserNameRequest asks the engine to sanitize a raw display name
// or email local-part into a candidate UserName.
type SuggestUserNameRequest struct {
	Raw string `json:"raw" validate:"required"`
}

func (r *SuggestUserNameRequest) Validate() error { return validationErr(validate.Struct(r)) }

// SuggestUserNameResponse reports the sanitized candidate, if any
// survived sanitization.
type SuggestUserNameResponse struct {
	UserName string `json:"user_name,omitempty"`
	OK       bool   `json:"ok"`
}

// ProviderResponse describes one registered identity provider for a
// client's login page to render a button for.
type ProviderResponse struct {
	Name     string `json:"name"`
	ImageURI string `json:"image_uri,omitempty"`
}

// LinkResultResponse mirrors auth.LinkResult.
type LinkResultResponse struct {
	TemporaryToken string `json:"temporary_token,omitempty"`
	EmptyToken     bool   `json:"empty_token"`
}

// LinkIdentityRequest finishes a deferred link by picking one of the
// candidate identities offered by GetLinkState.
type LinkIdentityRequest struct {
	LinkToken  string `json:"link_token" validate:"required"`
	IdentityID string `json:"identity_id" validate:"required,uuid"`
}

func (r *LinkIdentityRequest) Validate() error { return validationErr(validate.Struct(r)) }

// UnlinkRequest removes a previously linked remote identity.
type UnlinkRequest struct {
	IdentityID string `json:"identity_id" validate:"required,uuid"`
}

func (r *UnlinkRequest) Validate() error { return validationErr(validate.Struct(r)) }
