package progress

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "emcalc:progress:"

// RedisStore keeps one hash per user: field = module id, value = RFC3339 completion time.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func userKey(userID string) string {
	return redisKeyPrefix + userID
}

// MarkComplete records a completion.
func (s *RedisStore) MarkComplete(ctx context.Context, userID, moduleID string) (*Completion, error) {
	if err := validateKey(userID, moduleID); err != nil {
		return nil, err
	}

	key := userKey(userID)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.client.HSetNX(ctx, key, moduleID, now).Err(); err != nil {
		return nil, fmt.Errorf("failed to save completion: %w", err)
	}

	stored, err := s.client.HGet(ctx, key, moduleID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read completion: %w", err)
	}
	completedAt, err := time.Parse(time.RFC3339Nano, stored)
	if err != nil {
		return nil, fmt.Errorf("corrupt completion time for %s/%s: %w", userID, moduleID, err)
	}
	return &Completion{UserID: userID, ModuleID: moduleID, CompletedAt: completedAt}, nil
}

func (s *RedisStore) insert(ctx context.Context, c Completion) (bool, error) {
	return s.client.HSetNX(ctx, userKey(c.UserID), c.ModuleID, c.CompletedAt.UTC().Format(time.RFC3339Nano)).Result()
}

// Unmark removes a completion.
func (s *RedisStore) Unmark(ctx context.Context, userID, moduleID string) error {
	if err := validateKey(userID, moduleID); err != nil {
		return err
	}
	if err := s.client.HDel(ctx, userKey(userID), moduleID).Err(); err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	return nil
}

// List returns a user's completions.
func (s *RedisStore) List(ctx context.Context, userID string) ([]Completion, error) {
	fields, err := s.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}

	result := make([]Completion, 0, len(fields))
	for moduleID, stored := range fields {
		completedAt, err := time.Parse(time.RFC3339Nano, stored)
		if err != nil {
			return nil, fmt.Errorf("corrupt completion time for %s/%s: %w", userID, moduleID, err)
		}
		result = append(result, Completion{UserID: userID, ModuleID: moduleID, CompletedAt: completedAt})
	}
	sortCompletions(result)
	return result, nil
}

func (s *RedisStore) userIDs(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress keys: %w", err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, redisKeyPrefix))
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}

// Count returns the total number of completions.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	ids, err := s.userIDs(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, id := range ids {
		n, err := s.client.HLen(ctx, userKey(id)).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to count progress: %w", err)
		}
		total += n
	}
	return total, nil
}

// ExportJSON exports every completion.
func (s *RedisStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	ids, err := s.userIDs(ctx)
	if err != nil {
		return err
	}
	var all []Completion
	for _, id := range ids {
		cs, err := s.List(ctx, id)
		if err != nil {
			return err
		}
		all = append(all, cs...)
	}
	sortCompletions(all)
	return writeExport(writer, all)
}

// ImportJSON imports completions from a JSON export.
func (s *RedisStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return readImport(ctx, reader, s.insert)
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
