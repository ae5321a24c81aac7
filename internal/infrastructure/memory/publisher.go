package memory

import (
	"context"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/logger"
)

// NoopPublisher logs administrative auth events instead of publishing
// them, for local development and tests where no broker is running.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishUserCreated(ctx context.Context, evt auth.UserCreatedEvent) error {
	logger.Logger.Info().Str("user", evt.UserName).Str("created_by", evt.CreatedBy).Msg("noop-publish: user created")
	return nil
}

func (p *NoopPublisher) PublishRoleChanged(ctx context.Context, evt auth.RoleChangedEvent) error {
	logger.Logger.Info().Str("user", evt.UserName).Strs("added", evt.Added).Strs("removed", evt.Removed).Str("acted_by", evt.ActedBy).Msg("noop-publish: roles changed")
	return nil
}

func (p *NoopPublisher) PublishAccountDisabled(ctx context.Context, evt auth.AccountDisabledEvent) error {
	logger.Logger.Info().Bool("disabled", evt.Disabled).Str("user", evt.UserName).Str("reason", evt.Reason).Str("acted_by", evt.ActedBy).Msg("noop-publish: account disabled")
	return nil
}

func (p *NoopPublisher) PublishTokenRevoked(ctx context.Context, evt auth.TokenRevokedEvent) error {
	logger.Logger.Info().Str("user", evt.UserName).Str("token_id", evt.TokenID).Str("acted_by", evt.ActedBy).Msg("noop-publish: token revoked")
	return nil
}

var _ auth.EventPublisher = (*NoopPublisher)(nil)
