package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/supbro-dev/Wagner-agent/core"
)

// RedisStore checkpoints whole sessions as JSON snapshots in Redis. Turns for
// a given session run one at a time, so read-modify-write here needs no
// cross-process locking.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configures the store.
type RedisOptions struct {
	Prefix string
	TTL    time.Duration // 0 means no expiry
}

// NewRedisStore builds a RedisStore over an existing client.
func NewRedisStore(client *redis.Client, optFns ...func(o *RedisOptions)) *RedisStore {
	opts := RedisOptions{Prefix: "wagner:session:"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisStore{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

func (s *RedisStore) key(sessionID string) string { return s.prefix + sessionID }

// Get returns the stored session or a fresh one if no snapshot exists.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*core.Session, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.NewSession(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: loading %q: %w", sessionID, err)
	}

	var sess core.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("session: decoding %q: %w", sessionID, err)
	}
	return &sess, nil
}

func (s *RedisStore) save(ctx context.Context, sess *core.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encoding %q: %w", sess.ID, err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: storing %q: %w", sess.ID, err)
	}
	return nil
}

// AppendEvent loads, mutates and re-stores the session snapshot.
func (s *RedisStore) AppendEvent(ctx context.Context, sessionID string, ev core.Event) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.AddEvent(ev)
	return s.save(ctx, sess)
}

// ApplyDelta merges a key/value delta into the session state snapshot.
func (s *RedisStore) ApplyDelta(ctx context.Context, sessionID string, delta map[string]any) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.ApplyStateDelta(delta)
	return s.save(ctx, sess)
}
