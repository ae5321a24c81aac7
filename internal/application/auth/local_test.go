package auth

import (
	"context"
	"testing"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

func TestCreateRootIsIdempotentAndResets(t *testing.T) {
	f := newFixture(t)
	requireNoErr(t, f.engine.CreateRoot(context.Background(), []byte("first-password")))

	res, err := f.engine.LocalLogin(context.Background(), domain.RootUserName, []byte("first-password"))
	requireNoErr(t, err)
	if res.Token == "" {
		t.Fatalf("expected a token")
	}

	// calling CreateRoot again resets the password rather than erroring.
	requireNoErr(t, f.engine.CreateRoot(context.Background(), []byte("second-password")))
	if _, err := f.engine.LocalLogin(context.Background(), domain.RootUserName, []byte("first-password")); err == nil {
		t.Fatalf("expected old root password to be invalidated")
	}
	if _, err := f.engine.LocalLogin(context.Background(), domain.RootUserName, []byte("second-password")); err != nil {
		t.Fatalf("expected new root password to work: %v", err)
	}
}

func TestCreateLocalUserRejectsRootUsername(t *testing.T) {
	f := newFixture(t)
	admin := f.createTestAdmin(t, "admin1")

	_, err := f.engine.CreateLocalUser(context.Background(), admin, domain.RootUserName, "x", "x@example.com")
	requireErrCode(t, err, "unauthorized")
}

func TestCreateLocalUserRequiresAdminRole(t *testing.T) {
	f := newFixture(t)
	plain := f.createTestUser(t, "bob")

	_, err := f.engine.CreateLocalUser(context.Background(), plain, "carol", "Carol", "carol@example.com")
	requireErrCode(t, err, "unauthorized")
}

func TestCreateLocalUserIssuesForceResetPassword(t *testing.T) {
	f := newFixture(t)
	admin := f.createTestAdmin(t, "admin1")

	tempPassword, err := f.engine.CreateLocalUser(context.Background(), admin, "carol", "Carol", "carol@example.com")
	requireNoErr(t, err)
	if tempPassword == "" {
		t.Fatalf("expected a temporary password")
	}

	res, err := f.engine.LocalLogin(context.Background(), "carol", []byte(tempPassword))
	requireNoErr(t, err)
	if !res.MustReset {
		t.Fatalf("expected MustReset to be set for a freshly created local user")
	}
	if res.Token != "" {
		t.Fatalf("expected no token while a reset is pending")
	}
}

func TestLocalLoginRejectsWrongPasswordIndistinguishablyFromUnknownUser(t *testing.T) {
	f := newFixture(t)
	admin := f.createTestAdmin(t, "admin1")
	temp, err := f.engine.CreateLocalUser(context.Background(), admin, "carol", "Carol", "carol@example.com")
	requireNoErr(t, err)
	_ = temp

	_, errWrongPassword := f.engine.LocalLogin(context.Background(), "carol", []byte("not-the-password"))
	_, errUnknownUser := f.engine.LocalLogin(context.Background(), "nobody", []byte("anything"))

	requireErrCode(t, errWrongPassword, "invalid_credentials")
	requireErrCode(t, errUnknownUser, "invalid_credentials")
}

func TestPasswordChangeClearsForceReset(t *testing.T) {
	f := newFixture(t)
	admin := f.createTestAdmin(t, "admin1")
	temp, err := f.engine.CreateLocalUser(context.Background(), admin, "carol", "Carol", "carol@example.com")
	requireNoErr(t, err)

	requireNoErr(t, f.engine.PasswordChange(context.Background(), "carol", []byte(temp), []byte("a-new-password")))

	res, err := f.engine.LocalLogin(context.Background(), "carol", []byte("a-new-password"))
	requireNoErr(t, err)
	if res.MustReset {
		t.Fatalf("expected forceReset to be cleared after a password change")
	}
	if res.Token == "" {
		t.Fatalf("expected a token once the password has been changed")
	}
}

func TestResetPasswordRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	plain := f.createTestUser(t, "bob")

	_, err := f.engine.ResetPassword(context.Background(), plain, "carol")
	requireErrCode(t, err, "unauthorized")
}

func TestForceResetAllPasswordsMarksExistingLocalUsers(t *testing.T) {
	f := newFixture(t)
	admin := f.createTestAdmin(t, "admin1")
	temp, err := f.engine.CreateLocalUser(context.Background(), admin, "carol", "Carol", "carol@example.com")
	requireNoErr(t, err)
	requireNoErr(t, f.engine.PasswordChange(context.Background(), "carol", []byte(temp), []byte("chosen-password")))

	requireNoErr(t, f.engine.ForceResetAllPasswords(context.Background(), admin))

	res, err := f.engine.LocalLogin(context.Background(), "carol", []byte("chosen-password"))
	requireNoErr(t, err)
	if !res.MustReset {
		t.Fatalf("expected ForceResetAllPasswords to mark carol as needing a reset")
	}
}
