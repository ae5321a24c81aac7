package auth

import (
	"context"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// zero overwrites b with zero bytes; called on every exit path after a
// password buffer's last use.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// CreateRoot creates the ROOT account if absent, or resets its password
// (and re-enables it if disabled) if present. Uses insert-then-fallback
// to avoid a check-then-act race on concurrent first-boot calls.
func (e *Engine) CreateRoot(ctx context.Context, password []byte) error {
	defer zero(password)

	salt, err := e.crypto.GenerateSalt()
	if err != nil {
		return domain.ErrRandomFailed(err)
	}
	hash, err := e.crypto.GetEncryptedPassword(password, salt)
	if err != nil {
		return domain.ErrHashFailed(err)
	}
	defer zero(hash)

	root := domain.LocalUser{
		AuthUser: domain.AuthUser{
			UserName:    domain.RootUserName,
			Email:       domain.UnknownEmailAddress,
			DisplayName: domain.DisplayName("root"),
			Roles:       domain.NewRoleSet(domain.RoleRoot),
			Created:     e.now(),
		},
		PasswordHash: hash,
		Salt:         salt,
	}

	err = e.storage.CreateLocalUser(ctx, root)
	if err == nil {
		return nil
	}
	if !domain.Is(err, "user_exists") {
		return domain.ErrAuthStorage(err)
	}

	if err := e.storage.UpdateLocalUserPassword(ctx, domain.RootUserName, hash, salt, false); err != nil {
		return domain.ErrAuthStorage(err)
	}
	if err := e.storage.SetDisabled(ctx, domain.RootUserName, false); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

// CreateLocalUser provisions a new local account with a freshly minted
// temporary password, returned to the caller for out-of-band delivery.
// Requires ROOT|CREATE_ADMIN|ADMIN.
func (e *Engine) CreateLocalUser(ctx context.Context, adminToken domain.IncomingToken, userName domain.UserName, displayName domain.DisplayName, email domain.EmailAddress) (string, error) {
	actor, err := e.GetUser(ctx, adminToken, domain.RoleRoot, domain.RoleCreateAdmin, domain.RoleAdmin)
	if err != nil {
		return "", err
	}
	if userName.IsRoot() {
		return "", domain.ErrRootUsernameReserved()
	}

	tempPassword, err := e.crypto.GetTemporaryPassword(10)
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	plain := []byte(tempPassword)
	defer zero(plain)

	salt, err := e.crypto.GenerateSalt()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	hash, err := e.crypto.GetEncryptedPassword(plain, salt)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	defer zero(hash)

	u := domain.LocalUser{
		AuthUser: domain.AuthUser{
			UserName:    userName,
			Email:       email,
			DisplayName: displayName,
			Roles:       domain.NewRoleSet(),
			Created:     e.now(),
		},
		PasswordHash: hash,
		Salt:         salt,
		ForceReset:   true,
	}

	if err := e.storage.CreateLocalUser(ctx, u); err != nil {
		if domain.Is(err, "user_exists") {
			return "", domain.ErrUserExists(string(userName))
		}
		return "", domain.ErrAuthStorage(err)
	}

	e.publish(ctx, func(p EventPublisher) error {
		return p.PublishUserCreated(ctx, UserCreatedEvent{UserName: string(userName), CreatedBy: string(actor.UserName)})
	})
	e.audit("local_user_created", map[string]string{"user": string(userName), "acted_by": string(actor.UserName)})

	return tempPassword, nil
}

// LocalLoginResult is the outcome of LocalLogin: either a LOGIN token, or
// a must-reset indication carrying only the username.
type LocalLoginResult struct {
	Token     string
	MustReset bool
	UserName  domain.UserName
}

// LocalLogin authenticates against a stored password hash (C7). Unknown
// user and wrong password are deliberately indistinguishable.
func (e *Engine) LocalLogin(ctx context.Context, userName domain.UserName, password []byte) (LocalLoginResult, error) {
	defer zero(password)

	lu, err := e.storage.GetLocalUser(ctx, userName)
	if err != nil {
		return LocalLoginResult{}, domain.ErrInvalidCredentials()
	}

	if !e.crypto.Authenticate(password, lu.PasswordHash, lu.Salt) {
		return LocalLoginResult{}, domain.ErrInvalidCredentials()
	}

	cfg, err := e.storage.GetConfig(ctx)
	if err != nil {
		return LocalLoginResult{}, domain.ErrAuthStorage(err)
	}
	isAdmin := !lu.IncludedRoles().Intersect(domain.NewRoleSet(domain.RoleAdmin)).Empty()
	if !cfg.LoginAllowedGlobally && !isAdmin {
		return LocalLoginResult{}, domain.ErrNonAdminLoginDisabled()
	}
	if lu.Disabled {
		return LocalLoginResult{}, domain.ErrDisabledUser()
	}

	if lu.ForceReset {
		return LocalLoginResult{MustReset: true, UserName: userName}, nil
	}

	token, err := e.CreateLoginToken(ctx, userName)
	if err != nil {
		return LocalLoginResult{}, err
	}
	return LocalLoginResult{Token: token, UserName: userName}, nil
}

// PasswordChange replaces a local user's password after re-validating
// the old one with the same checks LocalLogin applies, clearing
// forceReset.
func (e *Engine) PasswordChange(ctx context.Context, userName domain.UserName, oldPassword, newPassword []byte) error {
	defer zero(oldPassword)
	defer zero(newPassword)

	lu, err := e.storage.GetLocalUser(ctx, userName)
	if err != nil {
		return domain.ErrInvalidCredentials()
	}
	if !e.crypto.Authenticate(oldPassword, lu.PasswordHash, lu.Salt) {
		return domain.ErrInvalidCredentials()
	}
	cfg, err := e.storage.GetConfig(ctx)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	isAdmin := !lu.IncludedRoles().Intersect(domain.NewRoleSet(domain.RoleAdmin)).Empty()
	if !cfg.LoginAllowedGlobally && !isAdmin {
		return domain.ErrNonAdminLoginDisabled()
	}
	if lu.Disabled {
		return domain.ErrDisabledUser()
	}

	salt, err := e.crypto.GenerateSalt()
	if err != nil {
		return domain.ErrRandomFailed(err)
	}
	hash, err := e.crypto.GetEncryptedPassword(newPassword, salt)
	if err != nil {
		return domain.ErrHashFailed(err)
	}
	defer zero(hash)

	if err := e.storage.UpdateLocalUserPassword(ctx, userName, hash, salt, false); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

// ResetPassword regenerates a random password for userName and marks
// forceReset. ADMIN only.
func (e *Engine) ResetPassword(ctx context.Context, adminToken domain.IncomingToken, userName domain.UserName) (string, error) {
	if _, err := e.GetUser(ctx, adminToken, domain.RoleAdmin); err != nil {
		return "", err
	}
	return e.regeneratePassword(ctx, userName)
}

func (e *Engine) regeneratePassword(ctx context.Context, userName domain.UserName) (string, error) {
	tempPassword, err := e.crypto.GetTemporaryPassword(10)
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	plain := []byte(tempPassword)
	defer zero(plain)

	salt, err := e.crypto.GenerateSalt()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	hash, err := e.crypto.GetEncryptedPassword(plain, salt)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	defer zero(hash)

	if err := e.storage.UpdateLocalUserPassword(ctx, userName, hash, salt, true); err != nil {
		return "", domain.ErrAuthStorage(err)
	}
	return tempPassword, nil
}

// ForceResetPassword marks userName's account as requiring a password
// reset on next login, without changing the password itself. ADMIN only.
func (e *Engine) ForceResetPassword(ctx context.Context, adminToken domain.IncomingToken, userName domain.UserName) error {
	if _, err := e.GetUser(ctx, adminToken, domain.RoleAdmin); err != nil {
		return err
	}
	if err := e.storage.SetForceReset(ctx, userName, true); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

// ForceResetAllPasswords marks every local account as requiring a
// password reset on next login. ADMIN only.
func (e *Engine) ForceResetAllPasswords(ctx context.Context, adminToken domain.IncomingToken) error {
	if _, err := e.GetUser(ctx, adminToken, domain.RoleAdmin); err != nil {
		return err
	}
	if err := e.storage.SetForceResetAll(ctx); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}
