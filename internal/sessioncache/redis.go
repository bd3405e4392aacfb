package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the session cache with a shared Redis, so sessions survive
// process restarts and instances can be swapped under a load balancer.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis wraps an existing client. ttl bounds how long abandoned entries
// linger; it should match the snapshot validity window.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) Snapshot(ctx context.Context, interviewID string) (Snapshot, bool, error) {
	raw, err := r.rdb.Get(ctx, snapshotKey(interviewID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}

func (r *Redis) PutSnapshot(ctx context.Context, interviewID string, s Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, snapshotKey(interviewID), raw, r.ttl).Err()
}

func (r *Redis) Answers(ctx context.Context, interviewID string) (map[string]string, bool, error) {
	raw, err := r.rdb.Get(ctx, answersKey(interviewID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var answers map[string]string
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, false, err
	}
	return answers, true, nil
}

func (r *Redis) PutAnswers(ctx context.Context, interviewID string, answers map[string]string) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, answersKey(interviewID), raw, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, interviewID string) error {
	return r.rdb.Del(ctx, snapshotKey(interviewID), answersKey(interviewID)).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
