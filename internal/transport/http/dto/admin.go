package dto

// DisableAccountRequest toggles whether the target account is disabled.
type DisableAccountRequest struct {
	Disable bool   `json:"disable"`
	Reason  string `json:"reason"`
}

func (r *DisableAccountRequest) Validate() error { return nil }

// UpdateRolesRequest adds and removes built-in roles on the target user.
// The same role name must not appear in both lists.
type UpdateRolesRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

func (r *UpdateRolesRequest) Validate() error { return validationErr(validate.Struct(r)) }

// UpdateCustomRolesRequest adds and removes arbitrary custom role tags.
type UpdateCustomRolesRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

func (r *UpdateCustomRolesRequest) Validate() error { return validationErr(validate.Struct(r)) }

// DisplayNamesRequest batches a display-name lookup for a set of usernames.
type DisplayNamesRequest struct {
	UserNames []string `json:"user_names" validate:"required,min=1"`
}

func (r *DisplayNamesRequest) Validate() error { return validationErr(validate.Struct(r)) }

// SearchDisplayNamesRequest is an admin-scoped prefix search, optionally
// narrowed to users holding any of RoleFilter. Non-admin callers are
// restricted by the engine to an empty RoleFilter.
type SearchDisplayNamesRequest struct {
	Prefix     string   `json:"prefix"`
	RoleFilter []string `json:"role_filter,omitempty"`
}

func (r *SearchDisplayNamesRequest) Validate() error { return nil }

// DisplayNamesResponse maps each requested username to its display name,
// omitting any that do not exist.
type DisplayNamesResponse struct {
	Names map[string]string `json:"names"`
}
