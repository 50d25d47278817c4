package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	VaultDir      string
	ListenAddr    string
	AssetHost     string
	AssetCache    int
	Theme         string
	Password      string
	ReadyRetry    time.Duration
	DBBusyTimeout time.Duration
}

func Load() Config {
	cfg := Config{
		VaultDir:   os.Getenv("SHARD_VAULT_DIR"),
		ListenAddr: envOr("SHARD_LISTEN_ADDR", "127.0.0.1:8787"),
		AssetHost:  envOr("SHARD_ASSET_HOST", "127.0.0.1"),
		Theme:      envOr("SHARD_THEME", "light"),
		Password:   os.Getenv("SHARD_PASSWORD"),
	}

	cfg.AssetCache = parseIntOr("SHARD_ASSET_CACHE", 50)
	cfg.ReadyRetry = parseDurationOr("SHARD_READY_RETRY", 150*time.Millisecond)
	cfg.DBBusyTimeout = parseDurationOr("SHARD_DB_BUSY_TIMEOUT", 5*time.Second)
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}
