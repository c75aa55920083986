package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moorebrett0/digicord/internal/brain"
	"github.com/moorebrett0/digicord/internal/collection"
	"github.com/moorebrett0/digicord/internal/config"
	"github.com/moorebrett0/digicord/internal/discord"
	"github.com/moorebrett0/digicord/internal/encounter"
	"github.com/moorebrett0/digicord/internal/monitor"
	"github.com/moorebrett0/digicord/internal/proactive"
	redisclient "github.com/moorebrett0/digicord/internal/redis"
	"github.com/moorebrett0/digicord/internal/species"
	"github.com/moorebrett0/digicord/internal/store"
)

const statsInterval = time.Minute

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and run the bot",
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := species.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	slog.Info("catalog loaded", "path", cfg.Catalog.Path, "species", catalog.Len())

	st, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("store close failed", "err", err)
		}
	}()

	collections := collection.NewManager(st, catalog)
	encounters, err := encounter.New(&encounter.Config{
		Catalog:     catalog,
		Store:       st,
		Collections: collections,
	})
	if err != nil {
		return err
	}

	hints := brain.New(ctx, brain.Config{
		ClaudeAPIKey: cfg.Claude.APIKey,
		ClaudeModel:  cfg.Claude.Model,
		GeminiAPIKey: cfg.Gemini.APIKey,
		GeminiModel:  cfg.Gemini.Model,
		Provider:     cfg.AI.Provider,
		MaxTokens:    cfg.Claude.MaxTokens,
		MaxTools:     cfg.Claude.MaxTools,
		RateLimit:    cfg.Claude.RateLimit,
		RateWindow:   cfg.Claude.RateWindow,
	}, catalog)

	mon := monitor.New(filepath.Dir(cfg.Catalog.Path), statsInterval)
	go mon.Run(ctx)

	bot, err := discord.NewBot(cfg.Discord.BotToken, cfg.Discord.GuildID)
	if err != nil {
		return err
	}
	router, err := discord.NewRouter(&discord.RouterConfig{
		Session:     bot.Session(),
		OwnerIDs:    cfg.Discord.OwnerIDs,
		Catalog:     catalog,
		Encounters:  encounters,
		Collections: collections,
		Brain:       hints,
		Monitor:     mon,
		ImagesDir:   cfg.Catalog.ImagesDir,
		PageSize:    cfg.Spawn.ListPageSize,
	})
	if err != nil {
		return err
	}
	bot.SetRouter(router)

	if cfg.Spawn.Ambient.Enabled {
		scheduler, err := proactive.New(&proactive.Config{
			Encounters: encounters,
			Store:      st,
			Announcer:  router,
			Presence:   bot,
			Interval:   cfg.Spawn.Ambient.Interval,
		})
		if err != nil {
			return err
		}
		go scheduler.Run(ctx)
	}

	slog.Info("starting digicord", "store", cfg.Store.Backend, "owners", len(cfg.Discord.OwnerIDs))
	if err := bot.Start(ctx); err != nil {
		return err
	}
	slog.Info("digicord stopped")
	return nil
}

func openStore(sc config.StoreConfig) (store.Store, error) {
	switch sc.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory store, collections are lost on restart")
		return store.NewMemory(), nil

	case config.BackendFile:
		f, err := store.OpenFile(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return f, nil

	case config.BackendRedis:
		client, err := redisclient.NewClient(sc.Redis.Addr, &redisclient.Options{
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
			UseTLS:   sc.Redis.UseTLS,
		})
		if err != nil {
			return nil, err
		}
		r, err := store.NewRedis(&store.RedisConfig{
			Client:     client,
			KeyPrefix:  sc.Redis.KeyPrefix,
			MaxRetries: sc.Redis.MaxRetries,
		})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return r, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}
