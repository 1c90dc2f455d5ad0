// Package config handles environment-based configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig holds all environment-variable-driven settings.
type EnvConfig struct {
	// Network
	ListenAddress string
	HTTPPort      int

	// Directories
	StateDir string

	// Domain
	MaxTile           int32
	MaxBatch          int32
	BusShardCount     int
	BroadcastShards   int
	SessionQueueSize  int
	StorePoolSize     int
	APIMaxBodyBytes   int64
	ReconcileSchedule string

	// Bus dedup cache
	DedupCacheCapacity int
	DedupTTL           Duration

	// Split-write persister mode
	PersisterMode bool
}

// LoadEnvConfig reads environment variables and returns a validated EnvConfig.
func LoadEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	var errs []string

	cfg.ListenAddress = strings.TrimSpace(envStr("CLICKPLANET_LISTEN_ADDRESS", "0.0.0.0"))
	cfg.HTTPPort = envInt("CLICKPLANET_HTTP_PORT", 8080, &errs)
	cfg.StateDir = envStr("CLICKPLANET_STATE_DIR", "/var/lib/clickplanet")

	cfg.MaxTile = int32(envInt("CLICKPLANET_MAX_TILE", 100_000, &errs))
	cfg.MaxBatch = int32(envInt("CLICKPLANET_MAX_BATCH", 10_000, &errs))
	cfg.BusShardCount = envInt("CLICKPLANET_BUS_SHARDS", 16, &errs)
	cfg.BroadcastShards = envInt("CLICKPLANET_BROADCAST_SHARDS", 16, &errs)
	cfg.SessionQueueSize = envInt("CLICKPLANET_SESSION_QUEUE_SIZE", 256, &errs)
	cfg.StorePoolSize = envInt("CLICKPLANET_STORE_POOL_SIZE", 64, &errs)
	cfg.APIMaxBodyBytes = int64(envInt("CLICKPLANET_API_MAX_BODY_BYTES", 1<<20, &errs))
	cfg.ReconcileSchedule = envStr("CLICKPLANET_RECONCILE_SCHEDULE", "@every 30s")
	cfg.DedupCacheCapacity = envInt("CLICKPLANET_DEDUP_CACHE_CAPACITY", 65536, &errs)
	cfg.DedupTTL = Duration(envDuration("CLICKPLANET_DEDUP_TTL", time.Minute, &errs))
	cfg.PersisterMode = envBool("CLICKPLANET_PERSISTER_MODE", false)

	validatePort("CLICKPLANET_HTTP_PORT", cfg.HTTPPort, &errs)
	validatePositive("CLICKPLANET_MAX_TILE", int(cfg.MaxTile), &errs)
	validatePositive("CLICKPLANET_MAX_BATCH", int(cfg.MaxBatch), &errs)
	validatePositive("CLICKPLANET_BUS_SHARDS", cfg.BusShardCount, &errs)
	validatePositive("CLICKPLANET_BROADCAST_SHARDS", cfg.BroadcastShards, &errs)
	validatePositive("CLICKPLANET_SESSION_QUEUE_SIZE", cfg.SessionQueueSize, &errs)
	validatePositive("CLICKPLANET_STORE_POOL_SIZE", cfg.StorePoolSize, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return cfg, nil
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

func envStringSlice(key string, defaultVal []string, errs *[]string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid JSON string array %q", key, v))
		return defaultVal
	}
	if out == nil {
		return []string{}
	}
	return out
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}

// IsLowerAlpha2 reports whether s is a 2-character lowercase ASCII string,
// the normalized form of an ISO-3166 alpha-2 country code.
func IsLowerAlpha2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
