package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// StateData is what OAuthStateStore binds a one-time state token to:
// enough for the callback handler to know which provider initiated the
// redirect and whether it was a login or a link attempt, without
// trusting anything the client sent back on the query string.
type StateData struct {
	Provider string `json:"provider"`
	IsLink   bool   `json:"is_link"`
}

// OAuthStateStore issues and consumes the CSRF state parameter for the
// OAuth2 authorization-code redirect, entirely outside auth.Storage:
// this state exists only for the few minutes between redirecting the
// user to the provider and their browser coming back, and carries no
// identity information worth persisting durably.
type OAuthStateStore struct {
	client *Client
	ttl    time.Duration
}

// NewOAuthStateStore constructs a store with the given TTL, defaulting
// to 10 minutes (ample for a user to complete an upstream login prompt).
func NewOAuthStateStore(client *Client, ttl time.Duration) *OAuthStateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OAuthStateStore{client: client, ttl: ttl}
}

// Create mints a fresh random state token bound to data and stores it
// with this store's TTL, returning the token to embed in the provider's
// redirect URL.
func (s *OAuthStateStore) Create(ctx context.Context, data StateData) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	stateToken := base64.RawURLEncoding.EncodeToString(raw)

	encoded, err := json.Marshal(data)
	if err != nil {
		return "", domain.ErrInternal(err)
	}

	key := s.key(stateToken)
	if err := s.client.rdb.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return stateToken, nil
}

// Consume retrieves and immediately deletes the state bound to
// stateToken, so a given redirect can only ever be completed once.
func (s *OAuthStateStore) Consume(ctx context.Context, stateToken string) (StateData, error) {
	key := s.key(stateToken)

	val, err := s.client.rdb.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return StateData{}, domain.ErrInvalidToken()
		}
		return StateData{}, fmt.Errorf("consume oauth state: %w", err)
	}

	var data StateData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return StateData{}, domain.ErrInternal(err)
	}
	return data, nil
}

func (s *OAuthStateStore) key(stateToken string) string {
	return "oauth:state:" + stateToken
}
