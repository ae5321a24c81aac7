// Package postgres adapts internal/application/auth.Storage onto
// PostgreSQL via database/sql, using the pgx driver registered under
// the "pgx" name.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
)

// NewDB opens a connection pool against dsn and verifies connectivity
// before returning, so startup fails fast on a bad connection string
// instead of on the first request.
func NewDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(60 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Storage implements auth.Storage against PostgreSQL.
type Storage struct {
	db *sql.DB
}

// New wraps an already-opened, already-migrated *sql.DB. Call
// EnsureSchema before using a Storage built on a fresh database.
func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate key") ||
		strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// ---------- user CRUD & lookup ----------

type userRow struct {
	UserName    string
	Email       string
	DisplayName string
	Roles       string
	CustomRoles string
	PolicyIDs   string
	Created     time.Time
	LastLogin   *time.Time
	Disabled    bool
}

func scanUserRow(row *sql.Row) (userRow, error) {
	var ur userRow
	err := row.Scan(&ur.UserName, &ur.Email, &ur.DisplayName, &ur.Roles, &ur.CustomRoles, &ur.PolicyIDs, &ur.Created, &ur.LastLogin, &ur.Disabled)
	return ur, err
}

func (ur userRow) toDomain() (domain.AuthUser, error) {
	roles, err := decodeRoleSet(ur.Roles)
	if err != nil {
		return domain.AuthUser{}, err
	}
	custom, err := decodeCustomRoles(ur.CustomRoles)
	if err != nil {
		return domain.AuthUser{}, err
	}
	policies, err := decodeStringBoolMap(ur.PolicyIDs)
	if err != nil {
		return domain.AuthUser{}, err
	}
	return domain.AuthUser{
		UserName:    domain.UserName(ur.UserName),
		Email:       domain.EmailAddress(ur.Email),
		DisplayName: domain.DisplayName(ur.DisplayName),
		Roles:       roles,
		CustomRoles: custom,
		PolicyIDs:   policies,
		Created:     ur.Created,
		LastLogin:   ur.LastLogin,
		Disabled:    ur.Disabled,
	}, nil
}

const selectUserCols = `user_name, email, display_name, roles, custom_roles, policy_ids, created, last_login, disabled`

func (s *Storage) loadIdentities(ctx context.Context, userName string) ([]domain.RemoteIdentityWithLocalID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT local_id, provider, remote_id, username, full_name, email FROM auth_remote_identities WHERE user_name = $1`, userName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RemoteIdentityWithLocalID
	for rows.Next() {
		var r identityRow
		if err := rows.Scan(&r.LocalID, &r.Provider, &r.RemoteID, &r.Username, &r.FullName, &r.Email); err != nil {
			return nil, err
		}
		out = append(out, r.toDomain())
	}
	return out, rows.Err()
}

func (s *Storage) GetUser(ctx context.Context, userName domain.UserName) (domain.AuthUser, error) {
	ur, err := scanUserRow(s.db.QueryRowContext(ctx, `SELECT `+selectUserCols+` FROM auth_users WHERE user_name = $1`, string(userName)))
	if err != nil {
		if isNoRows(err) {
			return domain.AuthUser{}, domain.ErrNoSuchUser()
		}
		return domain.AuthUser{}, domain.ErrAuthStorage(err)
	}
	u, err := ur.toDomain()
	if err != nil {
		return domain.AuthUser{}, domain.ErrAuthStorage(err)
	}
	identities, err := s.loadIdentities(ctx, string(userName))
	if err != nil {
		return domain.AuthUser{}, domain.ErrAuthStorage(err)
	}
	u.LinkedIdentities = identities
	return u, nil
}

func (s *Storage) GetUserByRemoteIdentity(ctx context.Context, id domain.RemoteIdentityID) (domain.AuthUser, error) {
	var userName string
	err := s.db.QueryRowContext(ctx, `SELECT user_name FROM auth_remote_identities WHERE provider = $1 AND remote_id = $2`, id.Provider, id.RemoteID).Scan(&userName)
	if err != nil {
		if isNoRows(err) {
			return domain.AuthUser{}, domain.ErrNoSuchUser()
		}
		return domain.AuthUser{}, domain.ErrAuthStorage(err)
	}
	return s.GetUser(ctx, domain.UserName(userName))
}

func (s *Storage) CreateUser(ctx context.Context, u domain.AuthUser) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	defer tx.Rollback()

	if err := insertUserTx(ctx, tx, u); err != nil {
		return err
	}
	for _, ri := range u.LinkedIdentities {
		if err := insertIdentityTx(ctx, tx, string(u.UserName), ri); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func insertUserTx(ctx context.Context, tx *sql.Tx, u domain.AuthUser) error {
	roles, err := encodeRoleSet(u.Roles)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	custom, err := encodeCustomRoles(u.CustomRoles)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	policies, err := encodeStringBoolMap(u.PolicyIDs)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO auth_users (user_name, email, display_name, roles, custom_roles, policy_ids, created, last_login, disabled)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		string(u.UserName), string(u.Email), string(u.DisplayName), roles, custom, policies, u.Created, u.LastLogin, u.Disabled)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists(string(u.UserName))
		}
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func insertIdentityTx(ctx context.Context, tx *sql.Tx, userName string, ri domain.RemoteIdentityWithLocalID) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO auth_remote_identities (local_id, user_name, provider, remote_id, username, full_name, email)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ri.LocalID, userName, ri.ID.Provider, ri.ID.RemoteID, ri.Details.Username, ri.Details.FullName, ri.Details.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdentityAlreadyLinked()
		}
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func (s *Storage) ListUserNamesMatching(ctx context.Context, pattern string) ([]domain.UserName, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_name FROM auth_users WHERE user_name ~ $1 ORDER BY user_name`, pattern)
	if err != nil {
		return nil, domain.ErrAuthStorage(err)
	}
	defer rows.Close()

	var out []domain.UserName
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, domain.ErrAuthStorage(err)
		}
		out = append(out, domain.UserName(n))
	}
	return out, rows.Err()
}

// ---------- local-user credential management ----------

func (s *Storage) GetLocalUser(ctx context.Context, userName domain.UserName) (domain.LocalUser, error) {
	u, err := s.GetUser(ctx, userName)
	if err != nil {
		return domain.LocalUser{}, err
	}

	var hash, salt []byte
	var forceReset bool
	var lastReset *time.Time
	err = s.db.QueryRowContext(ctx, `SELECT password_hash, salt, force_reset, last_reset FROM auth_local_credentials WHERE user_name = $1`, string(userName)).
		Scan(&hash, &salt, &forceReset, &lastReset)
	if err != nil {
		if isNoRows(err) {
			return domain.LocalUser{}, domain.ErrNoSuchUser()
		}
		return domain.LocalUser{}, domain.ErrAuthStorage(err)
	}

	return domain.LocalUser{AuthUser: u, PasswordHash: hash, Salt: salt, ForceReset: forceReset, LastReset: lastReset}, nil
}

func (s *Storage) CreateLocalUser(ctx context.Context, u domain.LocalUser) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	defer tx.Rollback()

	if err := insertUserTx(ctx, tx, u.AuthUser); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO auth_local_credentials (user_name, password_hash, salt, force_reset, last_reset)
VALUES ($1,$2,$3,$4,$5)`,
		string(u.UserName), u.PasswordHash, u.Salt, u.ForceReset, u.LastReset)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func (s *Storage) UpdateLocalUserPassword(ctx context.Context, userName domain.UserName, hash, salt []byte, forceReset bool) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE auth_local_credentials SET password_hash = $2, salt = $3, force_reset = $4, last_reset = NOW()
WHERE user_name = $1`, string(userName), hash, salt, forceReset)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNoSuchUser()
	}
	return nil
}

func (s *Storage) SetForceReset(ctx context.Context, userName domain.UserName, forceReset bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE auth_local_credentials SET force_reset = $2 WHERE user_name = $1`, string(userName), forceReset)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNoSuchUser()
	}
	return nil
}

func (s *Storage) SetForceResetAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE auth_local_credentials SET force_reset = TRUE`); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

// ---------- disable/enable ----------

func (s *Storage) SetDisabled(ctx context.Context, userName domain.UserName, disabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE auth_users SET disabled = $2 WHERE user_name = $1`, string(userName), disabled)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNoSuchUser()
	}
	return nil
}

// ---------- roles & custom roles ----------

func (s *Storage) SetRoles(ctx context.Context, userName domain.UserName, roles domain.RoleSet) error {
	encoded, err := encodeRoleSet(roles)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE auth_users SET roles = $2 WHERE user_name = $1`, string(userName), encoded)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNoSuchUser()
	}
	return nil
}

func (s *Storage) SetCustomRoles(ctx context.Context, userName domain.UserName, roles map[domain.CustomRole]bool) error {
	encoded, err := encodeCustomRoles(roles)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE auth_users SET custom_roles = $2 WHERE user_name = $1`, string(userName), encoded)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNoSuchUser()
	}
	return nil
}

// ---------- link/unlink ----------

func (s *Storage) LinkIdentity(ctx context.Context, userName domain.UserName, identity domain.RemoteIdentityWithLocalID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM auth_users WHERE user_name = $1)`, string(userName)).Scan(&exists); err != nil {
		return domain.ErrAuthStorage(err)
	}
	if !exists {
		return domain.ErrNoSuchUser()
	}
	if err := insertIdentityTx(ctx, tx, string(userName), identity); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func (s *Storage) UnlinkIdentity(ctx context.Context, userName domain.UserName, localID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	defer tx.Rollback()

	var remaining int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_remote_identities WHERE user_name = $1`, string(userName)).Scan(&remaining); err != nil {
		return domain.ErrAuthStorage(err)
	}

	var isLocal bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM auth_local_credentials WHERE user_name = $1)`, string(userName)).Scan(&isLocal); err != nil {
		return domain.ErrAuthStorage(err)
	}
	if remaining <= 1 && !isLocal {
		return domain.ErrUnlinkFailed("cannot unlink the last identity of a non-local user")
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM auth_remote_identities WHERE local_id = $1 AND user_name = $2`, localID, string(userName))
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUnlinkFailed("no such linked identity")
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

// ---------- display-name lookup ----------

func (s *Storage) GetDisplayNames(ctx context.Context, names []domain.UserName) (map[domain.UserName]domain.DisplayName, error) {
	out := make(map[domain.UserName]domain.DisplayName, len(names))
	if len(names) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(n)
	}
	q := `SELECT user_name, display_name FROM auth_users WHERE user_name IN (` + strings.Join(placeholders, ",") + `)`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.ErrAuthStorage(err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, display string
		if err := rows.Scan(&name, &display); err != nil {
			return nil, domain.ErrAuthStorage(err)
		}
		out[domain.UserName(name)] = domain.DisplayName(display)
	}
	return out, rows.Err()
}

func (s *Storage) SearchDisplayNames(ctx context.Context, spec auth.NameSearchSpec, limit int) (map[domain.UserName]domain.DisplayName, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_name, display_name, roles FROM auth_users
WHERE user_name LIKE $1 OR display_name LIKE $1
ORDER BY user_name
LIMIT $2`, spec.Prefix+"%", limit)
	if err != nil {
		return nil, domain.ErrAuthStorage(err)
	}
	defer rows.Close()

	out := make(map[domain.UserName]domain.DisplayName)
	for rows.Next() {
		var name, display, rolesJSON string
		if err := rows.Scan(&name, &display, &rolesJSON); err != nil {
			return nil, domain.ErrAuthStorage(err)
		}
		if !spec.PrefixOnly() {
			roles, err := decodeRoleSet(rolesJSON)
			if err != nil {
				return nil, domain.ErrAuthStorage(err)
			}
			if roles.Intersect(spec.RoleFilter).Empty() {
				continue
			}
		}
		out[domain.UserName(name)] = domain.DisplayName(display)
	}
	return out, rows.Err()
}

// ---------- tokens ----------

func (s *Storage) InsertToken(ctx context.Context, tok domain.HashedToken) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO auth_tokens (id, type, ext_scope, name, user_name, created, expires, hashed_value)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		tok.ID, string(tok.Type), string(tok.ExtScope), tok.Name, string(tok.UserName), tok.Created, tok.Expires, tok.HashedValue)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func (s *Storage) GetTokenByHash(ctx context.Context, hashed []byte) (domain.HashedToken, error) {
	var tok domain.HashedToken
	var tokenType, extScope, userName string
	err := s.db.QueryRowContext(ctx, `
SELECT id, type, ext_scope, name, user_name, created, expires
FROM auth_tokens WHERE hashed_value = $1`, hashed).
		Scan(&tok.ID, &tokenType, &extScope, &tok.Name, &userName, &tok.Created, &tok.Expires)
	if err != nil {
		if isNoRows(err) {
			return domain.HashedToken{}, domain.ErrNoSuchToken()
		}
		return domain.HashedToken{}, domain.ErrAuthStorage(err)
	}
	tok.Type = domain.TokenType(tokenType)
	tok.ExtScope = domain.ExtendedTokenScope(extScope)
	tok.UserName = domain.UserName(userName)
	tok.HashedValue = hashed
	return tok, nil
}

func (s *Storage) DeleteTokenByID(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE id = $1`, id); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func (s *Storage) DeleteAllTokensForUser(ctx context.Context, userName domain.UserName) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE user_name = $1`, string(userName)); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func (s *Storage) DeleteAllTokens(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens`); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func (s *Storage) SetLastLogin(ctx context.Context, userName domain.UserName, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE auth_users SET last_login = $2 WHERE user_name = $1`, string(userName), at)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNoSuchUser()
	}
	return nil
}

// ---------- temporary-token continuation ----------

func (s *Storage) StoreTemporaryToken(ctx context.Context, tok domain.TemporaryToken) error {
	identities, err := encodeIdentities(tok.Identities)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO auth_temporary_tokens (value, provider, identities, created, expires)
VALUES ($1,$2,$3,$4,$5)`, tok.Value, tok.Provider, identities, tok.Created, tok.Expires)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

func (s *Storage) GetTemporaryToken(ctx context.Context, value string) (domain.TemporaryToken, error) {
	var tok domain.TemporaryToken
	var identitiesJSON string
	err := s.db.QueryRowContext(ctx, `SELECT value, provider, identities, created, expires FROM auth_temporary_tokens WHERE value = $1`, value).
		Scan(&tok.Value, &tok.Provider, &identitiesJSON, &tok.Created, &tok.Expires)
	if err != nil {
		if isNoRows(err) {
			return domain.TemporaryToken{}, domain.ErrNoSuchToken()
		}
		return domain.TemporaryToken{}, domain.ErrAuthStorage(err)
	}
	identities, err := decodeIdentities(identitiesJSON)
	if err != nil {
		return domain.TemporaryToken{}, domain.ErrAuthStorage(err)
	}
	tok.Identities = identities
	return tok, nil
}

func (s *Storage) DeleteTemporaryToken(ctx context.Context, value string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_temporary_tokens WHERE value = $1`, value); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

// ---------- config ----------

func (s *Storage) GetConfig(ctx context.Context) (domain.AuthConfig, error) {
	var loginAllowed bool
	var providersJSON, lifetimesJSON string
	err := s.db.QueryRowContext(ctx, `SELECT login_allowed_globally, providers, token_lifetimes_millis FROM auth_config WHERE id = 1`).
		Scan(&loginAllowed, &providersJSON, &lifetimesJSON)
	if err != nil {
		if isNoRows(err) {
			def := domain.DefaultAuthConfig()
			if err := s.UpdateConfig(ctx, def, auth.ConfigOverwrite); err != nil {
				return domain.AuthConfig{}, err
			}
			return def, nil
		}
		return domain.AuthConfig{}, domain.ErrAuthStorage(err)
	}

	providers, err := decodeProviders(providersJSON)
	if err != nil {
		return domain.AuthConfig{}, domain.ErrAuthStorage(err)
	}
	lifetimes, err := decodeLifetimes(lifetimesJSON)
	if err != nil {
		return domain.AuthConfig{}, domain.ErrAuthStorage(err)
	}
	return domain.AuthConfig{LoginAllowedGlobally: loginAllowed, Providers: providers, TokenLifetimesMillis: lifetimes}, nil
}

func (s *Storage) UpdateConfig(ctx context.Context, cfg domain.AuthConfig, mode auth.ConfigMergeMode) error {
	if mode == auth.ConfigMerge {
		existing, err := s.GetConfig(ctx)
		if err != nil {
			return err
		}
		cfg = mergeConfig(existing, cfg)
	}

	providers, err := encodeProviders(cfg.Providers)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	lifetimes, err := encodeLifetimes(cfg.TokenLifetimesMillis)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO auth_config (id, login_allowed_globally, providers, token_lifetimes_millis)
VALUES (1, $1, $2, $3)
ON CONFLICT (id) DO UPDATE SET login_allowed_globally = EXCLUDED.login_allowed_globally,
	providers = EXCLUDED.providers, token_lifetimes_millis = EXCLUDED.token_lifetimes_millis`,
		cfg.LoginAllowedGlobally, providers, lifetimes)
	if err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

// mergeConfig overlays incoming onto existing. LoginAllowedGlobally is
// always taken from incoming; Providers and TokenLifetimesMillis merge
// key by key, so merging one provider never drops the others.
func mergeConfig(existing, incoming domain.AuthConfig) domain.AuthConfig {
	out := existing
	out.LoginAllowedGlobally = incoming.LoginAllowedGlobally
	if out.Providers == nil {
		out.Providers = map[string]domain.ProviderConfig{}
	}
	for name, pc := range incoming.Providers {
		out.Providers[name] = pc
	}
	if out.TokenLifetimesMillis == nil {
		out.TokenLifetimesMillis = map[domain.TokenLifetimeType]int64{}
	}
	for t, ms := range incoming.TokenLifetimesMillis {
		out.TokenLifetimesMillis[t] = ms
	}
	return out
}

var _ auth.Storage = (*Storage)(nil)
