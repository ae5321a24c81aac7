package auth

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// LoginState is what getLoginState returns: every candidate identity
// stored under a temporary login token, classified by whether it is
// already linked to a user, plus the context needed to render the
// "choose or create an account" UI.
type LoginState struct {
	Provider             string
	LoginAllowedGlobally bool
	AlreadyLinked        []domain.RemoteIdentityWithLocalID
	AvailableToCreate    []domain.RemoteIdentityWithLocalID
}

// Login runs the OAuth2 login state machine (C8): Initiated ->
// ProviderExchanged -> Completed(loginToken) | Deferred(temporaryToken).
func (e *Engine) Login(ctx context.Context, providerName string, authcode string) (AuthResult, error) {
	cfg, err := e.storage.GetConfig(ctx)
	if err != nil {
		return AuthResult{}, domain.ErrAuthStorage(err)
	}

	provider, err := e.registry.Resolve(providerName, cfg)
	if err != nil {
		return AuthResult{}, err
	}

	authcode = strings.TrimSpace(authcode)
	if authcode == "" {
		return AuthResult{}, domain.ErrMissingParameter("authorization code")
	}

	identities, err := provider.GetIdentities(ctx, authcode, false)
	if err != nil {
		return AuthResult{}, err
	}

	var noUser, hasUser []domain.RemoteIdentityWithLocalID
	distinctUsers := map[domain.UserName]bool{}
	var singleUser domain.UserName

	for _, ri := range identities {
		withLocalID := domain.NewRemoteIdentityWithLocalID(ri)
		user, err := e.storage.GetUserByRemoteIdentity(ctx, ri.ID)
		if err != nil {
			if domain.Is(err, "no_such_user") {
				noUser = append(noUser, withLocalID)
				continue
			}
			return AuthResult{}, domain.ErrAuthStorage(err)
		}
		hasUser = append(hasUser, withLocalID)
		distinctUsers[user.UserName] = true
		singleUser = user.UserName
	}

	if len(distinctUsers) == 1 && len(noUser) == 0 {
		user, err := e.storage.GetUser(ctx, singleUser)
		if err != nil {
			return AuthResult{}, domain.ErrInternal(err)
		}
		isAdmin := !user.IncludedRoles().Intersect(domain.NewRoleSet(domain.RoleAdmin)).Empty()
		if (cfg.LoginAllowedGlobally || isAdmin) && !user.Disabled {
			token, err := e.CreateLoginToken(ctx, singleUser)
			if err != nil {
				return AuthResult{}, err
			}
			return AuthResult{Token: token, UserName: singleUser}, nil
		}
	}

	all := append(append([]domain.RemoteIdentityWithLocalID{}, noUser...), hasUser...)
	tempValue, err := e.crypto.GetToken()
	if err != nil {
		return AuthResult{}, domain.ErrRandomFailed(err)
	}
	now := e.now()
	if err := e.storage.StoreTemporaryToken(ctx, domain.TemporaryToken{
		Value:      tempValue,
		Provider:   providerName,
		Identities: all,
		Created:    now,
		Expires:    now.Add(domain.TemporaryTokenLoginTTL),
	}); err != nil {
		return AuthResult{}, domain.ErrAuthStorage(err)
	}

	return AuthResult{TemporaryToken: tempValue, Deferred: true}, nil
}

func (e *Engine) loadTempToken(ctx context.Context, value string) (domain.TemporaryToken, error) {
	tt, err := e.storage.GetTemporaryToken(ctx, value)
	if err != nil {
		if domain.Is(err, "no_such_token") {
			return domain.TemporaryToken{}, domain.ErrInvalidToken()
		}
		return domain.TemporaryToken{}, domain.ErrAuthStorage(err)
	}
	if tt.Expired(e.now()) {
		_ = e.storage.DeleteTemporaryToken(ctx, value)
		return domain.TemporaryToken{}, domain.ErrInvalidToken()
	}
	return tt, nil
}

// GetLoginState retrieves the stored identity candidates for a deferred
// login flow's temporary token and classifies each as already-linked or
// available-to-create.
func (e *Engine) GetLoginState(ctx context.Context, tempToken string) (LoginState, error) {
	tt, err := e.loadTempToken(ctx, tempToken)
	if err != nil {
		return LoginState{}, err
	}

	cfg, err := e.storage.GetConfig(ctx)
	if err != nil {
		return LoginState{}, domain.ErrAuthStorage(err)
	}

	state := LoginState{Provider: tt.Provider, LoginAllowedGlobally: cfg.LoginAllowedGlobally}
	for _, ri := range tt.Identities {
		if _, err := e.storage.GetUserByRemoteIdentity(ctx, ri.ID); err == nil {
			state.AlreadyLinked = append(state.AlreadyLinked, ri)
		} else {
			state.AvailableToCreate = append(state.AvailableToCreate, ri)
		}
	}
	return state, nil
}

// CreateUser completes a deferred login by creating a new account linked
// to one of the temporary token's available identities.
func (e *Engine) CreateUser(ctx context.Context, tempToken string, identityUUID uuid.UUID, userName domain.UserName, displayName domain.DisplayName, email domain.EmailAddress) (string, error) {
	cfg, err := e.storage.GetConfig(ctx)
	if err != nil {
		return "", domain.ErrAuthStorage(err)
	}
	if !cfg.LoginAllowedGlobally {
		return "", domain.ErrAccountCreationDisabled()
	}
	if userName.IsRoot() {
		return "", domain.ErrRootUsernameReserved()
	}

	tt, err := e.loadTempToken(ctx, tempToken)
	if err != nil {
		return "", err
	}

	var identity domain.RemoteIdentityWithLocalID
	found := false
	for _, ri := range tt.Identities {
		if ri.LocalID == identityUUID {
			identity = ri
			found = true
			break
		}
	}
	if !found {
		return "", domain.ErrUnauthorized("identity not present in temporary token")
	}
	if _, err := e.storage.GetUserByRemoteIdentity(ctx, identity.ID); err == nil {
		return "", domain.ErrUnauthorized("identity is already linked")
	}

	user := domain.AuthUser{
		UserName:         userName,
		Email:            email,
		DisplayName:      displayName,
		Roles:            domain.NewRoleSet(),
		Created:          e.now(),
		LinkedIdentities: []domain.RemoteIdentityWithLocalID{identity},
	}
	if err := e.storage.CreateUser(ctx, user); err != nil {
		if domain.Is(err, "user_exists") {
			return "", domain.ErrUserExists(string(userName))
		}
		return "", domain.ErrAuthStorage(err)
	}

	_ = e.storage.DeleteTemporaryToken(ctx, tempToken)

	e.publish(ctx, func(p EventPublisher) error {
		return p.PublishUserCreated(ctx, UserCreatedEvent{UserName: string(userName), CreatedBy: string(userName)})
	})
	e.audit("oauth_user_created", map[string]string{"user": string(userName), "provider": tt.Provider})

	return e.CreateLoginToken(ctx, userName)
}

// LoginWithTempToken completes a deferred login by selecting one of the
// temporary token's already-linked identities.
func (e *Engine) LoginWithTempToken(ctx context.Context, tempToken string, identityUUID uuid.UUID) (string, error) {
	tt, err := e.loadTempToken(ctx, tempToken)
	if err != nil {
		return "", err
	}

	found := false
	for _, ri := range tt.Identities {
		if ri.LocalID == identityUUID {
			found = true
			break
		}
	}
	if !found {
		return "", domain.ErrUnauthorized("identity not present in temporary token")
	}

	var identityID domain.RemoteIdentityID
	for _, ri := range tt.Identities {
		if ri.LocalID == identityUUID {
			identityID = ri.ID
		}
	}

	user, err := e.storage.GetUserByRemoteIdentity(ctx, identityID)
	if err != nil {
		if domain.Is(err, "no_such_user") {
			return "", domain.ErrNoLinkedAccount()
		}
		return "", domain.ErrAuthStorage(err)
	}

	cfg, err := e.storage.GetConfig(ctx)
	if err != nil {
		return "", domain.ErrAuthStorage(err)
	}
	isAdmin := !user.IncludedRoles().Intersect(domain.NewRoleSet(domain.RoleAdmin)).Empty()
	if !cfg.LoginAllowedGlobally && !isAdmin {
		return "", domain.ErrNonAdminLoginDisabled()
	}
	if user.Disabled {
		return "", domain.ErrDisabledUser()
	}

	_ = e.storage.DeleteTemporaryToken(ctx, tempToken)
	return e.CreateLoginToken(ctx, user.UserName)
}

var trailingDigits = regexp.MustCompile(`\d+$`)

// SuggestUserName implements spec.md's username-suggestion algorithm:
// sanitize the raw suggestion; strip trailing digits; query Storage for
// every username matching `^<strip>\d*$`; pick the suggestion itself if
// it's free and no digits were stripped, else strip + (largest+1).
func (e *Engine) SuggestUserName(ctx context.Context, raw string) (domain.UserName, bool) {
	suggestion, ok := domain.SanitizeUserName(raw)
	if !ok {
		suggestion = "user"
	}

	strip := trailingDigits.ReplaceAllString(string(suggestion), "")
	strippedDigits := strip != string(suggestion)

	matches, err := e.storage.ListUserNamesMatching(ctx, "^"+regexp.QuoteMeta(strip)+`\d*$`)
	if err != nil {
		matches = nil
	}

	taken := map[string]bool{}
	largest := 0
	for _, m := range matches {
		taken[string(m)] = true
		suffix := strings.TrimPrefix(string(m), strip)
		if suffix == "" {
			// Bare name match (e.g. "user" itself): it's taken, but it
			// doesn't claim suffix 1, so the sequence starts at 1 rather
			// than skipping straight to 2.
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > largest {
			largest = n
		}
	}

	var result string
	if !taken[string(suggestion)] && !strippedDigits {
		result = string(suggestion)
	} else {
		result = strip + strconv.Itoa(largest+1)
	}

	if len(result) > domain.MaxNameLength {
		return "", false
	}
	return domain.UserName(result), true
}
