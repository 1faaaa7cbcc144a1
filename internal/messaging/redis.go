package messaging

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const channelPrefix = "satnam:dm:"

// RedisMessenger 通过 Redis 发布/订阅向参与者钱包转发通知
type RedisMessenger struct {
	client *redis.Client
}

// NewRedisMessenger ...
func NewRedisMessenger(client *redis.Client) *RedisMessenger {
	return &RedisMessenger{client: client}
}

func (m *RedisMessenger) channel(participantID string) string {
	return channelPrefix + participantID
}

// SendToParticipant ...
func (m *RedisMessenger) SendToParticipant(ctx context.Context, participantID string, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "failed to encode envelope")
	}
	if err := m.client.Publish(ctx, m.channel(participantID), payload).Err(); err != nil {
		return errors.Wrap(err, "failed to publish envelope")
	}
	return nil
}

// Subscribe ...
func (m *RedisMessenger) Subscribe(ctx context.Context, participantID string) (<-chan Envelope, error) {
	pubsub := m.client.Subscribe(ctx, m.channel(participantID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "failed to subscribe to participant channel")
	}

	out := make(chan Envelope, 16)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Warn().Err(err).Str("participant_id", participantID).Msg("Dropping undecodable envelope")
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
