package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisPauseRegistry implements domain.PauseRegistry on a Redis set per
// workspace. Useful when multiple workers share the pause state.
type RedisPauseRegistry struct {
	client *redis.Client
}

// NewRedisPauseRegistry creates a Redis-backed pause registry.
func NewRedisPauseRegistry(client *redis.Client) *RedisPauseRegistry {
	return &RedisPauseRegistry{client: client}
}

func pauseKey(workspaceID uuid.UUID) string {
	return fmt.Sprintf("automation:paused:%s", workspaceID)
}

// Pause adds the contact to the workspace's paused set.
func (r *RedisPauseRegistry) Pause(ctx context.Context, workspaceID, contactID uuid.UUID) error {
	return r.client.SAdd(ctx, pauseKey(workspaceID), contactID.String()).Err()
}

// Resume removes the contact from the workspace's paused set.
func (r *RedisPauseRegistry) Resume(ctx context.Context, workspaceID, contactID uuid.UUID) error {
	return r.client.SRem(ctx, pauseKey(workspaceID), contactID.String()).Err()
}

// IsPaused reports set membership.
func (r *RedisPauseRegistry) IsPaused(ctx context.Context, workspaceID, contactID uuid.UUID) (bool, error) {
	return r.client.SIsMember(ctx, pauseKey(workspaceID), contactID.String()).Result()
}
