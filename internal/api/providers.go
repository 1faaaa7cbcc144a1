package api

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/redis/go-redis/v9"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/approval"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/config"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/coordinator"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/messaging"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/publisher"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/session"
)

// PROVIDERS - define here only providers that for various reasons (e.g. cyclic dependency) can't live in their corresponding packages
// or for wrapping providers that only accept sub-configs to prevent the requirements for defining providers for sub-configs.

func NewClock(t ...*testing.T) time2.Clock {
	var clock time2.Clock

	useMock := len(t) > 0 && t[0] != nil

	if useMock {
		clock = time2.NewMockClock(time.Now())
	} else {
		clock = time2.DefaultClock
	}

	return clock
}

func NewRedisClient(cfg config.Server) (*redis.Client, error) {
	if cfg.Redis.Endpoint == "" {
		return nil, fmt.Errorf("redis endpoint is not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Endpoint,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewSessionStore(cfg config.Server, client *redis.Client) (session.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		return session.NewMemoryStore(), nil
	case config.StoreDriverRedis:
		if client == nil {
			return nil, fmt.Errorf("the redis session store requires a redis client")
		}
		return session.NewRedisStore(client), nil
	case config.StoreDriverSQLite:
		return session.NewSQLiteStore(cfg.Store.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown session store driver: %q", cfg.Store.Driver)
	}
}

func NewMessenger(cfg config.Server, client *redis.Client) (messaging.Messenger, error) {
	switch cfg.Messenger.Driver {
	case config.MessengerDriverChannel:
		return messaging.NewChannelMessenger(), nil
	case config.MessengerDriverRedis:
		if client == nil {
			return nil, fmt.Errorf("the redis messenger requires a redis client")
		}
		return messaging.NewRedisMessenger(client), nil
	default:
		return nil, fmt.Errorf("unknown messenger driver: %q", cfg.Messenger.Driver)
	}
}

func NewGate(clock time2.Clock, messenger messaging.Messenger) *approval.Gate {
	return approval.NewGate(clock, messenger)
}

func NewCoordinatorService(cfg config.Server, store session.Store, gate *approval.Gate, messenger messaging.Messenger, clock time2.Clock) *coordinator.Service {
	return coordinator.NewService(store, gate, messenger, clock, cfg.Signing.SessionTTL, cfg.Signing.RequireApproval)
}

func NewRelay(cfg config.Server) (publisher.RelayPublisher, error) {
	switch cfg.Relay.Driver {
	case config.RelayDriverLog:
		return publisher.LogRelay{}, nil
	default:
		return nil, fmt.Errorf("unknown relay driver: %q", cfg.Relay.Driver)
	}
}

func NewPublisherService(store session.Store, relay publisher.RelayPublisher, messenger messaging.Messenger, clock time2.Clock) *publisher.Service {
	return publisher.NewService(store, relay, messenger, clock)
}

func NewReaper(cfg config.Server, service *coordinator.Service, gate *approval.Gate) *coordinator.Reaper {
	return coordinator.NewReaper(service, gate, cfg.Signing.ReaperInterval)
}

// InitNewServer builds all server components by hand in dependency order.
// Echo and Router stay nil here and are initialized by router.Init(s).
func InitNewServer(cfg config.Server) (*Server, error) {
	s := NewServer(cfg)
	s.Clock = NewClock()

	// Redis 仅在某个驱动需要时才建立连接
	needsRedis := cfg.Store.Driver == config.StoreDriverRedis || cfg.Messenger.Driver == config.MessengerDriverRedis
	if needsRedis {
		client, err := NewRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		s.Redis = client
	}

	store, err := NewSessionStore(cfg, s.Redis)
	if err != nil {
		return nil, err
	}
	s.Store = store

	messenger, err := NewMessenger(cfg, s.Redis)
	if err != nil {
		return nil, err
	}
	s.Messenger = messenger

	s.Gate = NewGate(s.Clock, s.Messenger)
	s.Coordinator = NewCoordinatorService(cfg, s.Store, s.Gate, s.Messenger, s.Clock)

	relay, err := NewRelay(cfg)
	if err != nil {
		return nil, err
	}
	s.Publisher = NewPublisherService(s.Store, relay, s.Messenger, s.Clock)

	// 验证通过的会话自动交给发布服务
	s.Coordinator.SetPublisher(s.Publisher)

	s.Reaper = NewReaper(cfg, s.Coordinator, s.Gate)

	return s, nil
}
