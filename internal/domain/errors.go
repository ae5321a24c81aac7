package domain

import (
	"errors"
	"fmt"
)

// ErrKind buckets errors for transport-layer status mapping.
type ErrKind string

const (
	KindAuthenticationFailure ErrKind = "authentication_failure" // 401
	KindUnauthorized          ErrKind = "unauthorized"           // 403
	KindDisabled              ErrKind = "disabled"                // 403
	KindInvalidToken          ErrKind = "invalid_token"           // 401
	KindNoTokenProvided       ErrKind = "no_token_provided"       // 401
	KindMissingParameter      ErrKind = "missing_parameter"       // 400
	KindIllegalParameter      ErrKind = "illegal_parameter"       // 400
	KindNotFound              ErrKind = "not_found"               // 404
	KindConflict              ErrKind = "conflict"                // 409
	KindLinkFailed            ErrKind = "link_failed"             // 409
	KindIdentityRetrieval     ErrKind = "identity_retrieval"      // 502
	KindAuthStorage           ErrKind = "auth_storage"            // 503
	KindExternalConfigMapping ErrKind = "external_config_mapping" // 502
	KindInternal              ErrKind = "internal"                // 500
)

// Error is a structured domain error carrying a stable machine code
// alongside the broader Kind used for transport mapping.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

// Is reports whether err is a *Error carrying the given stable code.
func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ----------------------
// AuthenticationFailure (401) — credential/identity mismatch. Deliberately
// collapsed messages to avoid user enumeration.
// ----------------------

func ErrInvalidCredentials() *Error {
	return New(KindAuthenticationFailure, "invalid_credentials", "Username / password mismatch")
}

func ErrNoLinkedAccount() *Error {
	return New(KindAuthenticationFailure, "no_linked_account", "There is no account linked to the provided identity ID")
}

// ----------------------
// Unauthorized (403) — role/policy/state denial
// ----------------------

func ErrUnauthorized(reason string) *Error {
	return WithMeta(New(KindUnauthorized, "unauthorized", reason), map[string]string{"reason": reason})
}

func ErrNonAdminLoginDisabled() *Error {
	return ErrUnauthorized("Non-admin login is disabled")
}

func ErrAccountCreationDisabled() *Error {
	return ErrUnauthorized("Account creation is disabled")
}

func ErrCannotChangeRootRoles() *Error {
	return ErrUnauthorized("Cannot change ROOT roles")
}

func ErrNotAuthorizedToGrant(roles string) *Error {
	return ErrUnauthorized("Not authorized to grant role(s): " + roles)
}

func ErrNotAuthorizedToRemove(roles string) *Error {
	return ErrUnauthorized("Not authorized to remove role(s): " + roles)
}

func ErrOnlyLoginTokensMayCreateTokens() *Error {
	return ErrUnauthorized("Only login tokens may be used to create a token")
}

func ErrRootUsernameReserved() *Error {
	return ErrUnauthorized("The ROOT username is reserved")
}

// ----------------------
// Disabled (403) — account state
// ----------------------

func ErrDisabledUser() *Error {
	return New(KindDisabled, "disabled_user", "account is disabled")
}

// ----------------------
// InvalidToken / NoTokenProvided (401)
// ----------------------

func ErrInvalidToken() *Error {
	return New(KindInvalidToken, "invalid_token", "invalid or expired token")
}

func ErrNoTokenProvided() *Error {
	return New(KindNoTokenProvided, "no_token_provided", "no token provided")
}

// ----------------------
// MissingParameter / IllegalParameter (400)
// ----------------------

func ErrMissingParameter(name string) *Error {
	return WithMeta(New(KindMissingParameter, "missing_parameter", "missing required parameter"), map[string]string{
		"parameter": name,
	})
}

func ErrIllegalParameter(reason string) *Error {
	return WithMeta(New(KindIllegalParameter, "illegal_parameter", reason), map[string]string{
		"reason": reason,
	})
}

// ----------------------
// NoSuchX (404)
// ----------------------

func ErrNoSuchUser() *Error {
	return New(KindNotFound, "no_such_user", "no such user")
}

func ErrNoSuchRole(role string) *Error {
	return WithMeta(New(KindNotFound, "no_such_role", "no such role"), map[string]string{"role": role})
}

func ErrNoSuchIdentityProvider(name string) *Error {
	return WithMeta(New(KindNotFound, "no_such_identity_provider", "no such identity provider"), map[string]string{
		"provider": name,
	})
}

func ErrNoSuchToken() *Error {
	return New(KindNotFound, "no_such_token", "no such token")
}

// ----------------------
// Conflict — UserExists / IdentityLinked (409)
// ----------------------

func ErrUserExists(userName string) *Error {
	return WithMeta(New(KindConflict, "user_exists", "user already exists"), map[string]string{"user": userName})
}

func ErrIdentityAlreadyLinked() *Error {
	return New(KindConflict, "identity_already_linked", "identity already linked to a user")
}

// ----------------------
// Link/UnlinkFailed (409)
// ----------------------

func ErrLinkFailed(reason string) *Error {
	return WithMeta(New(KindLinkFailed, "link_failed", reason), map[string]string{"reason": reason})
}

func ErrUnlinkFailed(reason string) *Error {
	return WithMeta(New(KindLinkFailed, "unlink_failed", reason), map[string]string{"reason": reason})
}

// ----------------------
// IdentityRetrieval (502) — upstream provider failures
// ----------------------

func ErrIdentityRetrieval(provider, reason string) *Error {
	return WithMeta(New(KindIdentityRetrieval, "identity_retrieval_failed", reason), map[string]string{
		"provider": provider,
	})
}

// ----------------------
// AuthStorage (503) — persistence transport/availability
// ----------------------

func ErrAuthStorage(cause error) *Error {
	return Wrap(KindAuthStorage, "auth_storage_unavailable", "storage unavailable", cause)
}

// ----------------------
// ExternalConfigMapping (502) — identity-provider config transport
// ----------------------

func ErrExternalConfigMapping(cause error) *Error {
	return Wrap(KindExternalConfigMapping, "external_config_mapping_failed", "failed to map external configuration", cause)
}

func ErrBadProviderConfigName(name string) *Error {
	return WithMeta(New(KindIllegalParameter, "bad_provider_config_name", "Bad config name: "+name), map[string]string{
		"provider": name,
	})
}

// ----------------------
// Internal (500) — programmer-invariant violations, unexpected failures
// ----------------------

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_generation_failed", "random generation failed", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}
