package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://phantom.app", cfg.WalletAppURL)
	assert.Equal(t, "v1", cfg.APIVersion)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 72*time.Hour, cfg.ExtendThreshold)
	assert.False(t, cfg.BypassSignatureEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WALLETLINK_STORE", "leveldb")
	t.Setenv("WALLETLINK_LEVELDB_PATH", "/tmp/profile.db")
	t.Setenv("WALLETLINK_CLUSTER", "devnet")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreLevelDB, cfg.Store)
	assert.Equal(t, "/tmp/profile.db", cfg.LevelDBPath)
	assert.Equal(t, "devnet", cfg.Cluster)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walletlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://api.example.com\nextend_threshold: 24h\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, 24*time.Hour, cfg.ExtendThreshold)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown store", func(c *Config) { c.Store = "postgres" }, true},
		{"redis without url", func(c *Config) { c.Store = StoreRedis; c.RedisURL = "" }, true},
		{"missing wallet app", func(c *Config) { c.WalletAppURL = "" }, true},
		{"negative threshold", func(c *Config) { c.ExtendThreshold = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				WalletAppURL: "https://phantom.app",
				APIURL:       "http://localhost:9000",
				Store:        StoreMemory,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
