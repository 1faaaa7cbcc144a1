package config

import (
	"time"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

// Driver names accepted by the server providers
const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
	StoreDriverSQLite = "sqlite"

	MessengerDriverChannel = "channel"
	MessengerDriverRedis   = "redis"

	RelayDriverLog = "log"
)

// EchoServer holds the HTTP server settings
type EchoServer struct {
	ListenAddress string
}

// Store selects and configures the session store backend
type Store struct {
	Driver     string
	SQLitePath string
}

// Redis holds the connection settings shared by the redis backed components
type Redis struct {
	Endpoint string
}

// Signing holds the coordinator defaults
type Signing struct {
	SessionTTL      time.Duration
	ApprovalTTL     time.Duration
	ReaperInterval  string
	RequireApproval bool
}

// Relay selects the publication relay implementation
type Relay struct {
	Driver string
}

// Messenger selects the participant notification channel implementation
type Messenger struct {
	Driver string
}

// Server bundles every runtime setting of the service
type Server struct {
	Echo      EchoServer
	Store     Store
	Redis     Redis
	Signing   Signing
	Relay     Relay
	Messenger Messenger
}

// DefaultServiceConfigFromEnv returns the service config sourced from the
// environment with development friendly defaults.
func DefaultServiceConfigFromEnv() Server {
	return Server{
		Echo: EchoServer{
			ListenAddress: util.GetEnv("SERVER_ECHO_LISTEN_ADDRESS", ":8080"),
		},
		Store: Store{
			Driver:     util.GetEnv("SERVER_STORE_DRIVER", StoreDriverMemory),
			SQLitePath: util.GetEnv("SERVER_STORE_SQLITE_PATH", "satnam-sessions.db"),
		},
		Redis: Redis{
			Endpoint: util.GetEnv("SERVER_REDIS_ENDPOINT", "127.0.0.1:6379"),
		},
		Signing: Signing{
			SessionTTL:      time.Duration(util.GetEnvAsInt("SERVER_SIGNING_SESSION_TTL_SECONDS", 900)) * time.Second,
			ApprovalTTL:     time.Duration(util.GetEnvAsInt("SERVER_SIGNING_APPROVAL_TTL_SECONDS", 3600)) * time.Second,
			ReaperInterval:  util.GetEnv("SERVER_SIGNING_REAPER_INTERVAL", "1m"),
			RequireApproval: util.GetEnvAsBool("SERVER_SIGNING_REQUIRE_APPROVAL", true),
		},
		Relay: Relay{
			Driver: util.GetEnv("SERVER_RELAY_DRIVER", RelayDriverLog),
		},
		Messenger: Messenger{
			Driver: util.GetEnv("SERVER_MESSENGER_DRIVER", MessengerDriverChannel),
		},
	}
}
