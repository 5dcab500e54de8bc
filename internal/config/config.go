package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CollectConfig holds configuration for the collect command.
type CollectConfig struct {
	Queries      string
	PoolIDs      []string
	DB           string
	RPCURL       string
	Block        uint64
	Workers      int
	TickWindow   int
	Out          string
	Errors       string
	PGDSN        string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// SnapshotConfig holds configuration for the snapshot command.
type SnapshotConfig struct {
	Queries      string
	PoolIDs      []string
	RPCURL       string
	DB           string
	Block        uint64
	Workers      int
	TickWindow   int
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// ValidateConfig holds configuration for the validate command.
type ValidateConfig struct {
	Queries      string
	PoolIDs      []string
	DB           string
	RPCURL       string
	Block        uint64
	Workers      int
	TickWindow   int
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("workers", 4)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

// LoadCollect merges config file, environment variables, and flags
// into CollectConfig.
func LoadCollect(cfgFile string, flags *pflag.FlagSet) (CollectConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return CollectConfig{}, err
	}

	cfg := CollectConfig{
		Queries:      v.GetString("queries"),
		PoolIDs:      getStringSlice(v, "pool-id"),
		DB:           v.GetString("db"),
		RPCURL:       v.GetString("rpc"),
		Block:        v.GetUint64("block"),
		Workers:      v.GetInt("workers"),
		TickWindow:   v.GetInt("tick-window"),
		Out:          v.GetString("out"),
		Errors:       v.GetString("errors"),
		PGDSN:        v.GetString("pg-dsn"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}
	return cfg, nil
}

// LoadSnapshot merges config file, environment variables, and flags
// into SnapshotConfig.
func LoadSnapshot(cfgFile string, flags *pflag.FlagSet) (SnapshotConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SnapshotConfig{}, err
	}

	cfg := SnapshotConfig{
		Queries:      v.GetString("queries"),
		PoolIDs:      getStringSlice(v, "pool-id"),
		RPCURL:       v.GetString("rpc"),
		DB:           v.GetString("db"),
		Block:        v.GetUint64("block"),
		Workers:      v.GetInt("workers"),
		TickWindow:   v.GetInt("tick-window"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}
	return cfg, nil
}

// LoadValidate merges config file, environment variables, and flags
// into ValidateConfig.
func LoadValidate(cfgFile string, flags *pflag.FlagSet) (ValidateConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ValidateConfig{}, err
	}

	cfg := ValidateConfig{
		Queries:      v.GetString("queries"),
		PoolIDs:      getStringSlice(v, "pool-id"),
		DB:           v.GetString("db"),
		RPCURL:       v.GetString("rpc"),
		Block:        v.GetUint64("block"),
		Workers:      v.GetInt("workers"),
		TickWindow:   v.GetInt("tick-window"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}
	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
