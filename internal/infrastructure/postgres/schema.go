package postgres

import (
	"context"
	"database/sql"
)

// EnsureSchema creates every table this adapter needs if they are not
// already present. It is idempotent and safe to call on every process
// start, mirroring how the rest of this codebase treats schema
// management as something the binary itself owns rather than a
// separate migration tool.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS auth_users (
			user_name     TEXT PRIMARY KEY,
			email         TEXT NOT NULL DEFAULT '',
			display_name  TEXT NOT NULL DEFAULT '',
			roles         TEXT NOT NULL DEFAULT '[]',
			custom_roles  TEXT NOT NULL DEFAULT '{}',
			policy_ids    TEXT NOT NULL DEFAULT '{}',
			created       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login    TIMESTAMPTZ NULL,
			disabled      BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS auth_local_credentials (
			user_name     TEXT PRIMARY KEY REFERENCES auth_users(user_name) ON DELETE CASCADE,
			password_hash BYTEA NOT NULL,
			salt          BYTEA NOT NULL,
			force_reset   BOOLEAN NOT NULL DEFAULT FALSE,
			last_reset    TIMESTAMPTZ NULL
		);`,
		`CREATE TABLE IF NOT EXISTS auth_remote_identities (
			local_id   UUID PRIMARY KEY,
			user_name  TEXT NOT NULL REFERENCES auth_users(user_name) ON DELETE CASCADE,
			provider   TEXT NOT NULL,
			remote_id  TEXT NOT NULL,
			username   TEXT NOT NULL DEFAULT '',
			full_name  TEXT NOT NULL DEFAULT '',
			email      TEXT NOT NULL DEFAULT '',
			UNIQUE (provider, remote_id)
		);`,
		`CREATE INDEX IF NOT EXISTS auth_remote_identities_user_name_idx ON auth_remote_identities(user_name);`,
		`CREATE TABLE IF NOT EXISTS auth_tokens (
			id           UUID PRIMARY KEY,
			type         TEXT NOT NULL,
			ext_scope    TEXT NOT NULL DEFAULT '',
			name         TEXT NOT NULL DEFAULT '',
			user_name    TEXT NOT NULL,
			created      TIMESTAMPTZ NOT NULL,
			expires      TIMESTAMPTZ NOT NULL,
			hashed_value BYTEA NOT NULL UNIQUE
		);`,
		`CREATE INDEX IF NOT EXISTS auth_tokens_user_name_idx ON auth_tokens(user_name);`,
		`CREATE TABLE IF NOT EXISTS auth_temporary_tokens (
			value      TEXT PRIMARY KEY,
			provider   TEXT NOT NULL,
			identities TEXT NOT NULL DEFAULT '[]',
			created    TIMESTAMPTZ NOT NULL,
			expires    TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS auth_config (
			id                      SMALLINT PRIMARY KEY DEFAULT 1,
			login_allowed_globally  BOOLEAN NOT NULL,
			providers               TEXT NOT NULL DEFAULT '{}',
			token_lifetimes_millis  TEXT NOT NULL DEFAULT '{}',
			CONSTRAINT auth_config_single_row CHECK (id = 1)
		);`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
