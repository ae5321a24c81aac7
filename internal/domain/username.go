package domain

import "strings"

// MaxNameLength bounds UserName, DisplayName and EmailAddress length.
const MaxNameLength = 100

// RootUserName is the reserved username of the root account.
const RootUserName UserName = "***ROOT***"

// UserName is a normalized account identifier: lowercase alphanumerics,
// capped at MaxNameLength runes.
type UserName string

// SanitizeUserName maps arbitrary input to a valid UserName, or ("", false)
// if nothing valid remains after stripping.
func SanitizeUserName(raw string) (UserName, bool) {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= MaxNameLength {
			break
		}
	}
	s := b.String()
	if s == "" {
		return "", false
	}
	return UserName(s), true
}

// Valid reports whether u is a well-formed, non-empty UserName within the
// length budget. It does not re-run sanitization: callers that accept raw
// input should go through SanitizeUserName first.
func (u UserName) Valid() bool {
	if u == "" || len(u) > MaxNameLength {
		return false
	}
	for _, r := range string(u) {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func (u UserName) String() string { return string(u) }

// IsRoot reports whether u names the reserved root account.
func (u UserName) IsRoot() bool { return u == RootUserName }
