package managers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// deletes the lease only when this instance owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extends the lease only when this instance owns it
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisRegistry struct {
	rdb        *redis.Client
	ttl        time.Duration
	instanceID string
	logger     *zap.Logger
}

func NewRedisRegistry(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisRegistry {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	r := &RedisRegistry{
		rdb:        rdb,
		ttl:        ttl,
		instanceID: uuid.New().String(),
		logger:     logger,
	}
	logger.Info("session registry initialized", zap.String("instance_id", r.instanceID), zap.Duration("lease_ttl", ttl))
	return r
}

func leaseKey(interviewID uint) string {
	return fmt.Sprintf("interview:active:%d", interviewID)
}

func (r *RedisRegistry) InstanceID() string {
	return r.instanceID
}

func (r *RedisRegistry) Acquire(ctx context.Context, interviewID uint) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, leaseKey(interviewID), r.instanceID, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	return ok, nil
}

func (r *RedisRegistry) Refresh(ctx context.Context, interviewID uint) error {
	n, err := refreshScript.Run(ctx, r.rdb, []string{leaseKey(interviewID)}, r.instanceID, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("refresh lease: %w", err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (r *RedisRegistry) Release(ctx context.Context, interviewID uint) error {
	if err := releaseScript.Run(ctx, r.rdb, []string{leaseKey(interviewID)}, r.instanceID).Err(); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

func (r *RedisRegistry) PublishCompleted(ctx context.Context, event CompletionEvent) error {
	event.InstanceID = r.instanceID
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal completion event: %w", err)
	}
	if err := r.rdb.Publish(ctx, CompletedChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish completion event: %w", err)
	}
	r.logger.Info("published interview completion",
		zap.Uint("interview_id", event.InterviewID),
		zap.String("recommendation", event.Recommendation))
	return nil
}
