package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskflow/taskflow/internal/model"
)

const (
	// userCachePrefix is the Redis key prefix for resolved users.
	userCachePrefix = "auth:user:"
	// userCacheTTL bounds how long a profile change can go unnoticed.
	userCacheTTL = 5 * time.Minute
)

// cachedUser is the Redis representation of a user. It never carries the
// password hash.
type cachedUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetUser retrieves a cached user by ID.
// Returns nil if not found (cache miss).
func (c *Cache) GetUser(ctx context.Context, userID string) (*model.User, error) {
	data, err := c.client.Get(ctx, userCachePrefix+userID).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.User{
		ID:        cached.ID,
		Username:  cached.Username,
		Email:     cached.Email,
		CreatedAt: cached.CreatedAt,
		UpdatedAt: cached.UpdatedAt,
	}, nil
}

// SetUser caches a user without its password hash.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	return c.client.Set(ctx, userCachePrefix+user.ID, data, userCacheTTL).Err()
}
