package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "satnam:signing:session:"

// redisRetention 终态会话在键过期前仍可查询的保留时长
const redisRetention = 24 * time.Hour

// RedisStore 基于 Redis 的会话存储。
// 比较替换通过 WATCH/MULTI 乐观事务实现，版本为记录内的 updated_at。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore ...
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) ttl(sess *Session) time.Duration {
	ttl := time.Until(sess.ExpiresAt) + redisRetention
	if ttl < redisRetention {
		ttl = redisRetention
	}
	return ttl
}

// Create ...
func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id is required")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to encode session")
	}

	ok, err := s.client.SetNX(ctx, s.key(sess.SessionID), payload, s.ttl(sess)).Result()
	if err != nil {
		return errors.Wrap(err, "failed to store session")
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

// GetByID ...
func (s *RedisStore) GetByID(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, errors.Wrap(err, "failed to decode session")
	}
	return &sess, nil
}

// CompareAndSwap ...
func (s *RedisStore) CompareAndSwap(ctx context.Context, expectedVersion time.Time, sess *Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id is required")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to encode session")
	}

	key := s.key(sess.SessionID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrSessionNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to load session")
		}
		var current Session
		if err := json.Unmarshal(raw, &current); err != nil {
			return errors.Wrap(err, "failed to decode session")
		}
		if !current.UpdatedAt.Equal(expectedVersion) {
			return ErrConcurrencyConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl(sess))
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txf, key)
	if err == redis.TxFailedErr {
		// 键在读取与提交之间被其他写者修改
		return ErrConcurrencyConflict
	}
	return err
}

// ListActive ...
func (s *RedisStore) ListActive(ctx context.Context) ([]*Session, error) {
	var active []*Session
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to load session")
		}
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			log.Warn().Str("key", iter.Val()).Err(err).Msg("Skipping undecodable session record")
			continue
		}
		if !sess.Status.Terminal() {
			active = append(active, &sess)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan sessions")
	}
	return active, nil
}
