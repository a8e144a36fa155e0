package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements ContentStore on Redis. The document body and its
// version token live under separate keys namespaced by instance name, so
// multiple ledger deployments can share one Redis server.
//
// Writes use WATCH on the token key plus a MULTI/EXEC pipeline: if any other
// writer touches the token between read and commit the transaction fails and
// the write surfaces ErrConflict. Every successful write mints a fresh UUID
// token.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore creates a store client for the given instance namespace.
func NewRedisStore(redisOpts *redis.Options, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &RedisStore{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for startup health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) docKey(path string) string {
	return fmt.Sprintf("ledger:%s:doc:%s", s.namespace, path)
}

func (s *RedisStore) revKey(path string) string {
	return fmt.Sprintf("ledger:%s:rev:%s", s.namespace, path)
}

// Read fetches the document content and its current version token in one
// atomic MGET. Returns ErrNotFound if the document has never been written.
func (s *RedisStore) Read(ctx context.Context, path string) (string, string, error) {
	values, err := s.rdb.MGet(ctx, s.docKey(path), s.revKey(path)).Result()
	if err != nil {
		return "", "", fmt.Errorf("failed to read document from Redis: %w", err)
	}

	if values[0] == nil || values[1] == nil {
		return "", "", ErrNotFound
	}

	content, okC := values[0].(string)
	token, okT := values[1].(string)
	if !okC || !okT {
		return "", "", fmt.Errorf("unexpected value types for document %q", path)
	}

	return content, token, nil
}

// Write persists the document iff the stored token still equals
// expectedToken (empty string means the document must not exist yet).
// Returns the freshly minted token on success and ErrConflict if another
// writer won the race.
func (s *RedisStore) Write(ctx context.Context, path, content, expectedToken string) (string, error) {
	newToken := uuid.New().String()

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, s.revKey(path)).Result()
		switch {
		case errors.Is(err, redis.Nil):
			current = ""
		case err != nil:
			return fmt.Errorf("failed to read version token: %w", err)
		}

		if current != expectedToken {
			return ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.docKey(path), content, 0)
			pipe.Set(ctx, s.revKey(path), newToken, 0)
			return nil
		})
		return err
	}, s.revKey(path))

	if errors.Is(err, redis.TxFailedErr) {
		// Token key changed between WATCH and EXEC.
		return "", ErrConflict
	}
	if err != nil {
		if IsConflict(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("failed to write document to Redis: %w", err)
	}

	return newToken, nil
}
