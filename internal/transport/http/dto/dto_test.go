package dto

import (
	"testing"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

func TestPasswordChangeRequest_Validate(t *testing.T) {
	t.Run("missing user name", func(t *testing.T) {
		r := &PasswordChangeRequest{OldPassword: "old12345", NewPassword: "new12345"}
		err := r.Validate()
		if err == nil || !domain.Is(err, "missing_parameter") {
			t.Fatalf("expected missing_parameter, got: %v", err)
		}
	})

	t.Run("new password too short", func(t *testing.T) {
		r := &PasswordChangeRequest{UserName: "bob", OldPassword: "old12345", NewPassword: "short"}
		err := r.Validate()
		if err == nil || !domain.Is(err, "illegal_parameter") {
			t.Fatalf("expected illegal_parameter, got: %v", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		r := &PasswordChangeRequest{UserName: "bob", OldPassword: "old12345", NewPassword: "new12345"}
		if err := r.Validate(); err != nil {
			t.Fatalf("expected nil, got: %v", err)
		}
	})
}

func TestCreateLocalUserRequest_Validate(t *testing.T) {
	t.Run("bad email", func(t *testing.T) {
		r := &CreateLocalUserRequest{UserName: "bob", DisplayName: "Bob", Email: "not-an-email"}
		err := r.Validate()
		if err == nil || !domain.Is(err, "illegal_parameter") {
			t.Fatalf("expected illegal_parameter, got: %v", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		r := &CreateLocalUserRequest{UserName: "bob", DisplayName: "Bob", Email: "bob@example.com"}
		if err := r.Validate(); err != nil {
			t.Fatalf("expected nil, got: %v", err)
		}
	})
}

func TestDisplayNamesRequest_Validate(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		r := &DisplayNamesRequest{}
		err := r.Validate()
		if err == nil || !domain.Is(err, "missing_parameter") {
			t.Fatalf("expected missing_parameter, got: %v", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		r := &DisplayNamesRequest{UserNames: []string{"bob"}}
		if err := r.Validate(); err != nil {
			t.Fatalf("expected nil, got: %v", err)
		}
	})
}

func TestOAuthExchangeRequest_Validate(t *testing.T) {
	t.Run("missing state", func(t *testing.T) {
		r := &OAuthExchangeRequest{AuthCode: "code"}
		err := r.Validate()
		if err == nil || !domain.Is(err, "missing_parameter") {
			t.Fatalf("expected missing_parameter, got: %v", err)
		}
	})

	t.Run("missing auth code", func(t *testing.T) {
		r := &OAuthExchangeRequest{State: "state-token"}
		err := r.Validate()
		if err == nil || !domain.Is(err, "missing_parameter") {
			t.Fatalf("expected missing_parameter, got: %v", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		r := &OAuthExchangeRequest{State: "state-token", AuthCode: "code"}
		if err := r.Validate(); err != nil {
			t.Fatalf("expected nil, got: %v", err)
		}
	})
}

func TestLinkIdentityRequest_Validate(t *testing.T) {
	t.Run("invalid uuid", func(t *testing.T) {
		r := &LinkIdentityRequest{LinkToken: "tok", IdentityID: "not-a-uuid"}
		err := r.Validate()
		if err == nil || !domain.Is(err, "illegal_parameter") {
			t.Fatalf("expected illegal_parameter, got: %v", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		r := &LinkIdentityRequest{LinkToken: "tok", IdentityID: "f47ac10b-58cc-0372-8567-0e02b2c3d479"}
		if err := r.Validate(); err != nil {
			t.Fatalf("expected nil, got: %v", err)
		}
	})
}
