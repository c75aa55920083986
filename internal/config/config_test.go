package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into a fresh directory so a stray .env is never picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := chdir(t)

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "data/database.json", cfg.Catalog.Path)
	assert.Equal(t, 10, cfg.Spawn.ListPageSize)
	assert.False(t, cfg.Spawn.Ambient.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Crawler.Courtesy)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
discord:
  owner_ids: ["1", "2"]
store:
  backend: memory
spawn:
  list_page_size: 5
  ambient:
    enabled: true
    interval: 30s
log:
  format: json
`), 0o644))

	t.Setenv("DISCORD_BOT_TOKEN", "token-from-env")
	t.Setenv("DIGICORD_STORE", "redis")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "token-from-env", cfg.Discord.BotToken)
	assert.Equal(t, []string{"1", "2"}, cfg.Discord.OwnerIDs)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, 3, cfg.Store.Redis.DB)
	assert.Equal(t, 5, cfg.Spawn.ListPageSize)
	assert.Equal(t, 30*time.Second, cfg.Spawn.Ambient.Interval)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.ValidateBot())
}

func TestLoadOwnerIDsFromEnv(t *testing.T) {
	dir := chdir(t)
	t.Setenv("DISCORD_OWNER_IDS", " 10, ,20 ")

	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20"}, cfg.Discord.OwnerIDs)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"# secrets\nDISCORD_BOT_TOKEN=\"quoted-token\"\nAI_PROVIDER=gemini\n"), 0o644))
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("AI_PROVIDER", "claude")

	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "quoted-token", cfg.Discord.BotToken)
	assert.Equal(t, "claude", cfg.AI.Provider, "real environment wins over .env")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "unknown backend",
			modify: func(c *Config) { c.Store.Backend = "sqlite" },
			errMsg: "unknown store backend",
		},
		{
			name:   "file backend without path",
			modify: func(c *Config) { c.Store.Path = "" },
			errMsg: "store.path",
		},
		{
			name: "redis backend without addr",
			modify: func(c *Config) {
				c.Store.Backend = BackendRedis
				c.Store.Redis.Addr = ""
			},
			errMsg: "store.redis.addr",
		},
		{
			name:   "zero page size",
			modify: func(c *Config) { c.Spawn.ListPageSize = 0 },
			errMsg: "list_page_size",
		},
		{
			name: "ambient without interval",
			modify: func(c *Config) {
				c.Spawn.Ambient.Enabled = true
				c.Spawn.Ambient.Interval = 0
			},
			errMsg: "spawn.ambient.interval",
		},
		{
			name:   "bad log format",
			modify: func(c *Config) { c.Log.Format = "xml" },
			errMsg: "unknown log format",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.modify(cfg)
			err := validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestValidateBotRequiresToken(t *testing.T) {
	cfg := defaults()
	require.ErrorContains(t, cfg.ValidateBot(), "DISCORD_BOT_TOKEN")
}
