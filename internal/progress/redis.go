package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fmuoria/nexushire/internal/config"
	"github.com/fmuoria/nexushire/internal/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "nexushire:"

// RedisStore keeps run state in Redis lists so that logs survive restarts and
// are visible to every API replica.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a store whose keys expire ttl after the last write.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func ownerKey(runID string) string   { return keyPrefix + "run:" + runID + ":owner" }
func logsKey(runID string) string    { return keyPrefix + "run:" + runID + ":logs" }
func resultsKey(runID string) string { return keyPrefix + "run:" + runID + ":results" }
func latestKey(userID int64) string {
	return keyPrefix + "user:" + strconv.FormatInt(userID, 10) + ":latest"
}

func (r *RedisStore) Begin(ctx context.Context, runID string, userID int64) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, logsKey(runID), resultsKey(runID))
		p.Set(ctx, ownerKey(runID), userID, r.ttl)
		p.Set(ctx, latestKey(userID), runID, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to begin run %s: %w", runID, err)
	}
	return nil
}

func (r *RedisStore) push(ctx context.Context, runID, key string, value interface{}) error {
	n, err := r.client.Exists(ctx, ownerKey(runID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, value)
		p.Expire(ctx, key, r.ttl)
		p.Expire(ctx, ownerKey(runID), r.ttl)
		return nil
	})
	return err
}

func (r *RedisStore) Append(ctx context.Context, runID, line string) error {
	if err := r.push(ctx, runID, logsKey(runID), line); err != nil {
		return fmt.Errorf("failed to append log line: %w", err)
	}
	return nil
}

func (r *RedisStore) AddResult(ctx context.Context, runID string, entry models.ResultEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := r.push(ctx, runID, resultsKey(runID), data); err != nil {
		return fmt.Errorf("failed to add result: %w", err)
	}
	return nil
}

func (r *RedisStore) Logs(ctx context.Context, runID string) ([]string, error) {
	if _, err := r.Owner(ctx, runID); err != nil {
		return nil, err
	}
	lines, err := r.client.LRange(ctx, logsKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}
	return lines, nil
}

func (r *RedisStore) Results(ctx context.Context, runID string) ([]models.ResultEntry, error) {
	if _, err := r.Owner(ctx, runID); err != nil {
		return nil, err
	}
	raw, err := r.client.LRange(ctx, resultsKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	out := make([]models.ResultEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.ResultEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("corrupt result entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *RedisStore) Owner(ctx context.Context, runID string) (int64, error) {
	owner, err := r.client.Get(ctx, ownerKey(runID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrRunNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read run owner: %w", err)
	}
	return owner, nil
}

func (r *RedisStore) LatestRun(ctx context.Context, userID int64) (string, error) {
	runID, err := r.client.Get(ctx, latestKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read latest run: %w", err)
	}
	return runID, nil
}
