package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	Catalog CatalogConfig `yaml:"catalog"`
	Store   StoreConfig   `yaml:"store"`
	Spawn   SpawnConfig   `yaml:"spawn"`
	AI      AIConfig      `yaml:"ai"`
	Claude  ClaudeConfig  `yaml:"claude"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Crawler CrawlerConfig `yaml:"crawler"`
	Log     LogConfig     `yaml:"log"`
}

type DiscordConfig struct {
	BotToken string   `yaml:"bot_token"`
	OwnerIDs []string `yaml:"owner_ids"`
	// GuildID registers slash commands to one guild instead of globally.
	GuildID string `yaml:"guild_id"`
}

type CatalogConfig struct {
	Path      string `yaml:"path"`
	ImagesDir string `yaml:"images_dir"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"` // "memory", "file" or "redis"
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	UseTLS     bool   `yaml:"use_tls"`
	MaxRetries int    `yaml:"max_retries"`
}

type SpawnConfig struct {
	ListPageSize int           `yaml:"list_page_size"`
	Ambient      AmbientConfig `yaml:"ambient"`
}

// AmbientConfig drives spawns that happen without chat activity.
type AmbientConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type AIConfig struct {
	Provider string `yaml:"provider"` // "claude", "gemini", or "" (auto-detect)
}

type ClaudeConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
	MaxTools  int    `yaml:"max_tool_iterations"`
	// Hint rate limit: RateLimit requests per RateWindow.
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type CrawlerConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Courtesy  time.Duration `yaml:"courtesy"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	// Load .env file first (from same directory as binary, or working dir)
	loadDotEnv(".env")

	// Load YAML config if it exists
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// File doesn't exist — use defaults + env vars
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	// Env vars override config file (secrets live in .env or environment)
	if env := os.Getenv("DISCORD_BOT_TOKEN"); env != "" {
		cfg.Discord.BotToken = env
	}
	if env := os.Getenv("DISCORD_GUILD_ID"); env != "" {
		cfg.Discord.GuildID = env
	}
	if env := os.Getenv("DISCORD_OWNER_IDS"); env != "" {
		// Comma-separated list of IDs
		if ids := splitList(env); len(ids) > 0 {
			cfg.Discord.OwnerIDs = ids
		}
	}
	if env := os.Getenv("DIGICORD_STORE"); env != "" {
		cfg.Store.Backend = env
	}
	if env := os.Getenv("REDIS_ADDR"); env != "" {
		cfg.Store.Redis.Addr = env
	}
	if env := os.Getenv("REDIS_PASSWORD"); env != "" {
		cfg.Store.Redis.Password = env
	}
	if env := os.Getenv("REDIS_DB"); env != "" {
		db, err := strconv.Atoi(env)
		if err != nil {
			return nil, fmt.Errorf("parsing REDIS_DB: %w", err)
		}
		cfg.Store.Redis.DB = db
	}
	if env := os.Getenv("ANTHROPIC_API_KEY"); env != "" {
		cfg.Claude.APIKey = env
	}
	if env := os.Getenv("GOOGLE_API_KEY"); env != "" {
		cfg.Gemini.APIKey = env
	}
	if env := os.Getenv("AI_PROVIDER"); env != "" {
		cfg.AI.Provider = env
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		cfg.Log.Level = env
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateBot checks what the bot needs on top of what every command needs.
func (c *Config) ValidateBot() error {
	if c.Discord.BotToken == "" {
		return errors.New("missing DISCORD_BOT_TOKEN (set it in .env or the environment)")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// loadDotEnv reads a .env file and sets env vars that aren't already set.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return // no .env, that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		// Strip surrounding quotes
		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') ||
				(val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		// Only set if not already in environment
		if os.Getenv(key) == "" && val != "" {
			os.Setenv(key, val)
		}
	}
}

func defaults() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path:      "data/database.json",
			ImagesDir: "data/images",
		},
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    "data/store.json",
			Redis: RedisConfig{
				Addr:       "localhost:6379",
				KeyPrefix:  "digicord:",
				MaxRetries: 10,
			},
		},
		Spawn: SpawnConfig{
			ListPageSize: 10,
			Ambient: AmbientConfig{
				Enabled:  false,
				Interval: 10 * time.Minute,
			},
		},
		Claude: ClaudeConfig{
			Model:      "claude-sonnet-4-5-20250929",
			MaxTokens:  300,
			MaxTools:   3,
			RateLimit:  10,
			RateWindow: time.Minute,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Crawler: CrawlerConfig{
			BaseURL:   "http://digidb.io/digimon-list/",
			Courtesy:  2 * time.Second,
			Timeout:   30 * time.Second,
			UserAgent: "digicord-crawler/1.0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if cfg.Store.Path == "" {
			return errors.New("store.path is required for the file backend")
		}
	case BackendRedis:
		if cfg.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis backend (or set REDIS_ADDR)")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want memory, file or redis)", cfg.Store.Backend)
	}

	if cfg.Catalog.Path == "" {
		return errors.New("catalog.path is required")
	}
	if cfg.Spawn.ListPageSize <= 0 {
		return fmt.Errorf("spawn.list_page_size must be positive, got %d", cfg.Spawn.ListPageSize)
	}
	if cfg.Spawn.Ambient.Enabled && cfg.Spawn.Ambient.Interval <= 0 {
		return errors.New("spawn.ambient.interval must be positive when ambient spawns are enabled")
	}
	if cfg.Crawler.Courtesy < 0 {
		return errors.New("crawler.courtesy cannot be negative")
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", cfg.Log.Format)
	}
	return nil
}
