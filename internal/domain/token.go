package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenType distinguishes a short-lived login token from an extended
// developer- or server-scoped one.
type TokenType string

const (
	TokenTypeLogin             TokenType = "LOGIN"
	TokenTypeExtendedLifetime  TokenType = "EXTENDED_LIFETIME"
)

// ExtendedTokenScope tags which role authorized the creation of an
// EXTENDED_LIFETIME token, since the lifetime and grantable scope differ
// between the two.
type ExtendedTokenScope string

const (
	ExtendedTokenScopeDev  ExtendedTokenScope = "DEV"
	ExtendedTokenScopeServ ExtendedTokenScope = "SERV"
)

// HashedToken is the persisted record of an issued bearer token. The plain
// token value is never persisted; only its hash.
type HashedToken struct {
	ID          uuid.UUID
	Type        TokenType
	ExtScope    ExtendedTokenScope // zero value unless Type == EXTENDED_LIFETIME
	Name        string             // optional, set for extended tokens
	UserName    UserName
	Created     time.Time
	Expires     time.Time
	HashedValue []byte
}

// Expired reports whether the token's deadline has passed as of now.
func (t HashedToken) Expired(now time.Time) bool {
	return now.After(t.Expires)
}

// TemporaryToken is a short-lived continuation token bound to a set of
// candidate remote identities, used to defer a login or link decision to
// a UI the engine doesn't control.
type TemporaryToken struct {
	Value      string
	Provider   string
	Identities []RemoteIdentityWithLocalID
	Created    time.Time
	Expires    time.Time
}

// Default lifetimes for temporary tokens, per flow.
const (
	TemporaryTokenLoginTTL = 30 * time.Minute
	TemporaryTokenLinkTTL  = 10 * time.Minute
)

func (t TemporaryToken) Expired(now time.Time) bool {
	return now.After(t.Expires)
}

// IncomingToken is a request-scoped opaque bearer token string, stripped
// of surrounding whitespace.
type IncomingToken string

// Trimmed returns t with leading/trailing whitespace removed.
func (t IncomingToken) Trimmed() IncomingToken {
	return IncomingToken(strings.TrimSpace(string(t)))
}

func (t IncomingToken) Empty() bool {
	return t.Trimmed() == ""
}
