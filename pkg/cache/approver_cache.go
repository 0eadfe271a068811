package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

// ApproverCache memoizes approver resolution per role and scope with an
// explicit TTL and explicit eviction. Cache failures degrade to a miss so
// resolution always falls through to the directory.
type ApproverCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewApproverCache constructs the cache.
func NewApproverCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ApproverCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApproverCache{client: client, ttl: ttl, logger: logger}
}

// Key builds the cache key for a role within a college/department scope.
func Key(role models.UserRole, collegeID string, departmentID *string) string {
	dept := "-"
	if departmentID != nil && *departmentID != "" {
		dept = *departmentID
	}
	return fmt.Sprintf("approver:%s:%s:%s", role, collegeID, dept)
}

// Get returns the cached approver ID for the key, if any.
func (c *ApproverCache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("approver cache read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return val, val != ""
}

// Set stores a resolved approver ID under the key for the configured TTL.
func (c *ApproverCache) Set(ctx context.Context, key, userID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, userID, c.ttl).Err(); err != nil {
		c.logger.Warn("approver cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete evicts the key, forcing re-resolution on the next lookup.
func (c *ApproverCache) Delete(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("approver cache evict failed", zap.String("key", key), zap.Error(err))
	}
}
