// Package auth implements the authentication and identity-linking engine:
// token issuance/lookup/revocation, local-password accounts, OAuth2
// login/link state machines, role-based authorization, and admin search —
// all behind the Storage/Crypto/IdentityProvider ports so the engine
// itself never touches a database driver, an HTTP client, or crypto/rand.
package auth

import (
	"context"
	"time"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// Engine is the authentication and identity-linking engine (C6-C11). It
// holds no per-request state; the only shared mutable state it touches is
// the config cache behind Storage (C5), which callers are expected to
// inject already wrapped (configcache.Cache implements Storage).
type Engine struct {
	storage  Storage
	crypto   Crypto
	registry IdentityProviderRegistry
	pub      EventPublisher
	audit    Audit

	now func() time.Time
}

// New constructs an Engine. pub and audit may be nil, in which case
// publishing/auditing is a no-op.
func New(storage Storage, crypto Crypto, registry IdentityProviderRegistry, pub EventPublisher) *Engine {
	return &Engine{
		storage:  storage,
		crypto:   crypto,
		registry: registry,
		pub:      pub,
		audit:    func(string, map[string]string) {},
		now:      time.Now,
	}
}

// WithAudit installs fn as the engine's security-event hook.
func (e *Engine) WithAudit(fn Audit) *Engine {
	if fn != nil {
		e.audit = fn
	}
	return e
}

// WithClock overrides the engine's time source, for deterministic tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

func (e *Engine) publish(ctx context.Context, fn func(EventPublisher) error) {
	if e.pub == nil {
		return
	}
	_ = fn(e.pub)
}

// AuthResult is the outcome of any operation that may issue a login token
// directly or defer to a TemporaryToken-continued flow.
type AuthResult struct {
	Token         string // plaintext LOGIN token, set iff Deferred == false
	TemporaryToken string // plaintext continuation token, set iff Deferred == true
	Deferred      bool
	MustReset     bool        // not set by the engine; local login reports must-reset on LocalLoginResult
	UserName      domain.UserName
}
