package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rswarnkar/converse/internal/models"
)

const (
	presenceKeyPrefix = "presence:"
	presenceTTL       = 24 * time.Hour
)

// RedisPresenceCacheRepository mirrors the presence column so bulk presence
// reads (chat lists, contact pages) don't hit postgres. The gateway's
// in-memory registry remains the source of truth for liveness.
type RedisPresenceCacheRepository struct {
	client *redis.Client
}

func NewRedisPresenceCacheRepository(client *redis.Client) *RedisPresenceCacheRepository {
	return &RedisPresenceCacheRepository{client: client}
}

func (r *RedisPresenceCacheRepository) SetStatus(ctx context.Context, presence *models.UserPresence) error {
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	err = r.client.Set(ctx, presenceKey(presence.UserID), data, presenceTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	return nil
}

// GetBulkStatus retrieves presence for multiple users in one round trip.
// Users without a cached entry come back as OFFLINE.
func (r *RedisPresenceCacheRepository) GetBulkStatus(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.UserPresence, error) {
	if len(userIDs) == 0 {
		return make(map[uuid.UUID]models.UserPresence), nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = presenceKey(id)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	presenceMap := make(map[uuid.UUID]models.UserPresence, len(userIDs))
	for i, result := range results {
		userID := userIDs[i]

		data, ok := result.(string)
		if !ok {
			presenceMap[userID] = models.UserPresence{UserID: userID, Status: models.StatusOffline}
			continue
		}

		var presence models.UserPresence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			presenceMap[userID] = models.UserPresence{UserID: userID, Status: models.StatusOffline}
			continue
		}
		presenceMap[userID] = presence
	}
	return presenceMap, nil
}

func (r *RedisPresenceCacheRepository) DeleteStatus(ctx context.Context, userID uuid.UUID) error {
	err := r.client.Del(ctx, presenceKey(userID)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	return nil
}

func presenceKey(userID uuid.UUID) string {
	return presenceKeyPrefix + userID.String()
}
