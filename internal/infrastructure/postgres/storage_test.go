package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
)

func setupMockStorage(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Storage) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to create mock database")
	return db, mock, New(db)
}

func TestGetUser_NotFound(t *testing.T) {
	db, mock, s := setupMockStorage(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_name, email, display_name, roles, custom_roles, policy_ids, created, last_login, disabled FROM auth_users WHERE user_name = $1`)).
		WithArgs("alice").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetUser(context.Background(), domain.UserName("alice"))
	require.Error(t, err)
	assert.True(t, domain.Is(err, "no_such_user"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_Success(t *testing.T) {
	db, mock, s := setupMockStorage(t)
	defer db.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_name, email, display_name, roles, custom_roles, policy_ids, created, last_login, disabled FROM auth_users WHERE user_name = $1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"user_name", "email", "display_name", "roles", "custom_roles", "policy_ids", "created", "last_login", "disabled"}).
			AddRow("alice", "alice@example.com", "Alice", `["ADMIN"]`, `{}`, `{}`, now, nil, false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT local_id, provider, remote_id, username, full_name, email FROM auth_remote_identities WHERE user_name = $1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"local_id", "provider", "remote_id", "username", "full_name", "email"}))

	u, err := s.GetUser(context.Background(), domain.UserName("alice"))
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("alice"), u.UserName)
	assert.True(t, u.Roles[domain.RoleAdmin])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateUserNameMapsToUserExists(t *testing.T) {
	db, mock, s := setupMockStorage(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO auth_users`)).
		WillReturnError(fakeDriverErr("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	err := s.CreateUser(context.Background(), domain.AuthUser{UserName: "alice", Roles: domain.NewRoleSet()})
	require.Error(t, err)
	assert.True(t, domain.Is(err, "user_exists"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_LinksIdentitiesInSameTransaction(t *testing.T) {
	db, mock, s := setupMockStorage(t)
	defer db.Close()

	identity := domain.NewRemoteIdentityWithLocalID(domain.RemoteIdentity{ID: domain.RemoteIdentityID{Provider: "globus", RemoteID: "r1"}})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO auth_users`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO auth_remote_identities`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.CreateUser(context.Background(), domain.AuthUser{
		UserName: "alice", Roles: domain.NewRoleSet(),
		LinkedIdentities: []domain.RemoteIdentityWithLocalID{identity},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTokenByHash_NoSuchToken(t *testing.T) {
	db, mock, s := setupMockStorage(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, type, ext_scope, name, user_name, created, expires`)).
		WithArgs([]byte("hash")).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetTokenByHash(context.Background(), []byte("hash"))
	require.Error(t, err)
	assert.True(t, domain.Is(err, "no_such_token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTokenByHash_Success(t *testing.T) {
	db, mock, s := setupMockStorage(t)
	defer db.Close()

	id := uuid.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, type, ext_scope, name, user_name, created, expires`)).
		WithArgs([]byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "ext_scope", "name", "user_name", "created", "expires"}).
			AddRow(id, "LOGIN", "", "", "alice", now, now.Add(time.Hour)))

	tok, err := s.GetTokenByHash(context.Background(), []byte("hash"))
	require.NoError(t, err)
	assert.Equal(t, id, tok.ID)
	assert.Equal(t, domain.TokenTypeLogin, tok.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlinkIdentity_RefusesToEmptyNonLocalUser(t *testing.T) {
	db, mock, s := setupMockStorage(t)
	defer db.Close()

	localID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM auth_remote_identities WHERE user_name = $1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM auth_local_credentials WHERE user_name = $1)`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := s.UnlinkIdentity(context.Background(), domain.UserName("alice"), localID)
	require.Error(t, err)
	assert.True(t, domain.Is(err, "unlink_failed"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConfig_SeedsDefaultsOnFirstCall(t *testing.T) {
	db, mock, s := setupMockStorage(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT login_allowed_globally, providers, token_lifetimes_millis FROM auth_config WHERE id = 1`)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO auth_config`)).WillReturnResult(sqlmock.NewResult(0, 1))

	cfg, err := s.GetConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.LoginAllowedGlobally)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// fakeDriverErr lets a test construct an arbitrary driver-style error
// message without depending on a real postgres error type.
type fakeDriverErr string

func (e fakeDriverErr) Error() string { return string(e) }
