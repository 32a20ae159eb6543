package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Entity store backends accepted by the reduce command.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// ReduceConfig holds configuration for the reduce command.
type ReduceConfig struct {
	In    string
	Store string

	PGDSN         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	StateFile       string
	StateName       string
	CheckpointEvery int

	// PoolMap is a static pool -> token table. RPCURL, when set, resolves
	// pools missing from it through the pool contract.
	PoolMap map[string]string
	RPCURL  string

	CountExternalTokens bool
	UsersPolicy         string

	MaxRetries   int
	RetryBackoff time.Duration
	MetricsAddr  string
	LogLevel     string
}

// LoadReduce merges config file, environment variables, and flags into ReduceConfig.
func LoadReduce(cfgFile string, flags *pflag.FlagSet) (ReduceConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"store":            StoreMemory,
		"redis-prefix":     "launchpad",
		"state-name":       "reducer",
		"checkpoint-every": 1000,
		"users-policy":     "first-launch",
		"max-retries":      5,
		"retry-backoff":    500 * time.Millisecond,
		"log-level":        "info",
	})
	if err != nil {
		return ReduceConfig{}, err
	}

	cfg := ReduceConfig{
		In:                  v.GetString("in"),
		Store:               strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PGDSN:               v.GetString("pg-dsn"),
		RedisAddr:           v.GetString("redis-addr"),
		RedisPassword:       v.GetString("redis-password"),
		RedisDB:             v.GetInt("redis-db"),
		RedisPrefix:         v.GetString("redis-prefix"),
		StateFile:           v.GetString("state-file"),
		StateName:           v.GetString("state-name"),
		CheckpointEvery:     v.GetInt("checkpoint-every"),
		PoolMap:             getStringMap(v, "pool-map"),
		RPCURL:              v.GetString("rpc"),
		CountExternalTokens: v.GetBool("count-external-tokens"),
		UsersPolicy:         v.GetString("users-policy"),
		MaxRetries:          v.GetInt("max-retries"),
		RetryBackoff:        v.GetDuration("retry-backoff"),
		MetricsAddr:         v.GetString("metrics-addr"),
		LogLevel:            v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c ReduceConfig) Validate() error {
	if c.In == "" {
		return fmt.Errorf("input path is required")
	}
	switch c.Store {
	case StoreMemory:
		// Memory entities die with the process; a persisted cursor would skip
		// events whose effects were lost.
		if c.StateFile != "" {
			return fmt.Errorf("state file requires a persistent store, not %q", c.Store)
		}
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg dsn is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unsupported store: %q", c.Store)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}
	return nil
}
