package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds process configuration
type Config struct {
	AppURL       string        `mapstructure:"app_url"`
	WalletAppURL string        `mapstructure:"wallet_app_url"`
	Cluster      string        `mapstructure:"cluster"`
	APIURL       string        `mapstructure:"api_url"`
	APIVersion   string        `mapstructure:"api_version"`
	ListenAddr   string        `mapstructure:"listen_addr"`
	Store        string        `mapstructure:"store"`
	RedisURL     string        `mapstructure:"redis_url"`
	LevelDBPath  string        `mapstructure:"leveldb_path"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFormat    string        `mapstructure:"log_format"`
	AuthTokenTTL time.Duration `mapstructure:"auth_token_ttl"`
	// ExtendThreshold is the remaining token lifetime under which connect extends the token
	ExtendThreshold        time.Duration `mapstructure:"extend_threshold"`
	BypassSignatureEnabled bool          `mapstructure:"bypass_signature_enabled"`
}

const (
	StoreMemory  = "memory"
	StoreRedis   = "redis"
	StoreLevelDB = "leveldb"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_url", "http://localhost:3000")
	v.SetDefault("wallet_app_url", "https://phantom.app")
	v.SetDefault("cluster", "")
	v.SetDefault("api_url", "http://localhost:9000")
	v.SetDefault("api_version", "v1")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("leveldb_path", "./walletlink.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("auth_token_ttl", 7*24*time.Hour)
	v.SetDefault("extend_threshold", 3*24*time.Hour)
	v.SetDefault("bypass_signature_enabled", false)
}

// Load reads defaults, the optional config file at path, then WALLETLINK_* env overrides
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WALLETLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis, StoreLevelDB:
	default:
		return fmt.Errorf("store must be one of memory, redis, leveldb, got: %s", c.Store)
	}

	if c.Store == StoreRedis && c.RedisURL == "" {
		return fmt.Errorf("redis_url is required when store is redis")
	}

	if c.Store == StoreLevelDB && c.LevelDBPath == "" {
		return fmt.Errorf("leveldb_path is required when store is leveldb")
	}

	if c.WalletAppURL == "" {
		return fmt.Errorf("wallet_app_url is required")
	}

	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}

	if c.ExtendThreshold < 0 {
		return fmt.Errorf("extend_threshold must not be negative")
	}

	return nil
}
