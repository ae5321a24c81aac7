package dto

// LocalLoginRequest logs a local account in with a username/password pair.
type LocalLoginRequest struct {
	UserName string `json:"user_name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LocalLoginRequest) Validate() error { return validationErr(validate.Struct(r)) }

// PasswordChangeRequest changes the caller's own password, given their
// username (the engine re-verifies the old password itself).
type PasswordChangeRequest struct {
	UserName    string `json:"user_name" validate:"required"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (r *PasswordChangeRequest) Validate() error { return validationErr(validate.Struct(r)) }

// CreateLocalUserRequest is an admin-only request to create a new local
// account. The engine mints and returns the initial password.
type CreateLocalUserRequest struct {
	UserName    string `json:"user_name" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
}

func (r *CreateLocalUserRequest) Validate() error { return validationErr(validate.Struct(r)) }

// CreatedResponse is returned wherever the engine mints a one-time
// plaintext secret (a password or a token) the caller must record now.
type CreatedResponse struct {
	Secret string `json:"secret"`
}
