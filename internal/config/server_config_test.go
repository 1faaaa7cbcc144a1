package config_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/config"
)

func TestPrintServiceEnv(t *testing.T) {
	config := config.DefaultServiceConfigFromEnv()
	_, err := json.MarshalIndent(config, "", "  ")

	if err != nil {
		t.Fatal(err)
	}
}

func TestServiceConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_STORE_DRIVER", config.StoreDriverSQLite)
	t.Setenv("SERVER_SIGNING_SESSION_TTL_SECONDS", "120")
	t.Setenv("SERVER_SIGNING_REQUIRE_APPROVAL", "false")

	cfg := config.DefaultServiceConfigFromEnv()

	if cfg.Store.Driver != config.StoreDriverSQLite {
		t.Errorf("expected store driver %q, got %q", config.StoreDriverSQLite, cfg.Store.Driver)
	}
	if cfg.Signing.SessionTTL != 120*time.Second {
		t.Errorf("expected session ttl 120s, got %s", cfg.Signing.SessionTTL)
	}
	if cfg.Signing.RequireApproval {
		t.Error("expected approval requirement to be disabled")
	}
}
