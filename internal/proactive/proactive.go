// Package proactive spawns digimon on a timer so quiet servers still see
// wild encounters.
package proactive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/moorebrett0/digicord/internal/encounter"
	"github.com/moorebrett0/digicord/internal/store"
)

// Announcer posts a spawned encounter to its channel.
type Announcer interface {
	AnnounceSpawn(p encounter.Pending) error
}

// PresenceUpdater can update the bot's activity line.
type PresenceUpdater interface {
	UpdatePresence(activity string)
}

// Config for the ambient spawn scheduler.
type Config struct {
	Encounters *encounter.Generator
	Store      store.Store
	Announcer  Announcer
	Presence   PresenceUpdater // optional
	Interval   time.Duration
}

// Validate ensures all required dependencies are provided.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if c.Encounters == nil {
		return errors.New("encounters cannot be nil")
	}
	if c.Store == nil {
		return errors.New("store cannot be nil")
	}
	if c.Announcer == nil {
		return errors.New("announcer cannot be nil")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	return nil
}

// Scheduler rolls a spawn for every idle guild that has a spawn channel.
type Scheduler struct {
	encounters *encounter.Generator
	store      store.Store
	announcer  Announcer
	presence   PresenceUpdater
	interval   time.Duration

	mu           sync.Mutex
	lastActivity string
}

// New creates an ambient spawn scheduler.
func New(cfg *Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Scheduler{
		encounters: cfg.Encounters,
		store:      cfg.Store,
		announcer:  cfg.Announcer,
		presence:   cfg.Presence,
		interval:   cfg.Interval,
	}, nil
}

// Run starts the tick loop. Blocks until context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("proactive: ambient spawns enabled", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check runs one round and returns how many encounters it spawned.
func (s *Scheduler) check(ctx context.Context) int {
	ids, err := s.store.GuildIDs(ctx)
	if err != nil {
		slog.Error("proactive: list guilds failed", "err", err)
		return 0
	}

	spawned, wild := 0, 0
	for _, guildID := range ids {
		if ctx.Err() != nil {
			return spawned
		}

		g, err := s.store.Guild(ctx, guildID)
		if err != nil {
			slog.Error("proactive: load guild failed", "guild", guildID, "err", err)
			continue
		}
		if g.Current != nil {
			wild++
			continue
		}
		// Without a spawn channel there is nowhere sensible to post.
		if g.SpawnChannel == "" {
			continue
		}

		ok, err := s.encounters.ShouldSpawn(ctx)
		if err != nil {
			slog.Error("proactive: spawn roll failed", "guild", guildID, "err", err)
			continue
		}
		if !ok {
			continue
		}

		p, err := s.encounters.SpawnIfIdle(ctx, guildID, g.SpawnChannel)
		if errors.Is(err, encounter.ErrEncounterPending) {
			// A chat message spawned one since the guild was read.
			wild++
			continue
		}
		if err != nil {
			slog.Error("proactive: spawn failed", "guild", guildID, "err", err)
			continue
		}
		spawned++
		wild++
		if err := s.announcer.AnnounceSpawn(p); err != nil {
			slog.Error("proactive: announce failed", "guild", guildID, "channel", p.ChannelID, "err", err)
		}
	}

	s.updatePresence(wild)
	return spawned
}

func (s *Scheduler) updatePresence(wild int) {
	if s.presence == nil {
		return
	}

	activity := "for wild digimon"
	switch {
	case wild == 1:
		activity = "1 wild digimon"
	case wild > 1:
		activity = fmt.Sprintf("%d wild digimon", wild)
	}

	s.mu.Lock()
	changed := activity != s.lastActivity
	s.lastActivity = activity
	s.mu.Unlock()

	if changed {
		s.presence.UpdatePresence(activity)
	}
}
