// Package encounter spawns wild digimon into guilds and resolves catch
// attempts against them.
package encounter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moorebrett0/digicord/internal/collection"
	"github.com/moorebrett0/digicord/internal/digimon"
	"github.com/moorebrett0/digicord/internal/species"
	"github.com/moorebrett0/digicord/internal/store"
)

// Config wires a Generator.
type Config struct {
	Catalog     *species.Catalog
	Store       store.Store
	Collections *collection.Manager
	Rand        *rand.Rand       // defaults to a time-seeded source
	Now         func() time.Time // defaults to time.Now
}

// Validate ensures all required dependencies are provided.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if c.Catalog == nil {
		return errors.New("catalog cannot be nil")
	}
	if c.Store == nil {
		return errors.New("store cannot be nil")
	}
	if c.Collections == nil {
		return errors.New("collections cannot be nil")
	}
	return nil
}

// Pending is a spawned encounter with its species resolved.
type Pending struct {
	store.Encounter
	Species species.Species
}

// CatchResult describes a successful catch.
type CatchResult struct {
	ID          int // id in the catcher's collection
	Digimon     digimon.Individual
	Species     species.Species
	EncounterID uuid.UUID
}

// Generator owns the random source and the per-guild pending encounters.
type Generator struct {
	catalog     *species.Catalog
	store       store.Store
	collections *collection.Manager
	now         func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Generator.
func New(cfg *Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rng := cfg.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Generator{
		catalog:     cfg.Catalog,
		store:       cfg.Store,
		collections: cfg.Collections,
		now:         now,
		rng:         rng,
	}, nil
}

// RandomIndividual draws a species uniformly from the catalog range and a
// level uniformly from [MinLevel, MaxLevel]. It has no nickname.
func (g *Generator) RandomIndividual() digimon.Individual {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()

	n := g.catalog.RandomNumber(g.rng)
	level := digimon.MinLevel + g.rng.IntN(digimon.MaxLevel-digimon.MinLevel+1)
	return digimon.New(n, level)
}

// ShouldSpawn rolls the global spawn chance.
func (g *Generator) ShouldSpawn(ctx context.Context) (bool, error) {
	settings, err := g.store.Settings(ctx)
	if err != nil {
		return false, fmt.Errorf("load settings: %w", err)
	}

	g.rngMu.Lock()
	roll := g.rng.IntN(100)
	g.rngMu.Unlock()

	return roll < settings.SpawnChance, nil
}

// Spawn creates a new encounter for the guild, replacing any pending one.
// The encounter is announced in the guild's spawn channel when one is set,
// otherwise in channelID.
func (g *Generator) Spawn(ctx context.Context, guildID, channelID string) (Pending, error) {
	return g.spawn(ctx, guildID, channelID, true)
}

// SpawnIfIdle is Spawn for guilds with nothing pending. The check and the
// write happen in one guild update, so an unclaimed encounter is never
// replaced; in that case it returns ErrEncounterPending.
func (g *Generator) SpawnIfIdle(ctx context.Context, guildID, channelID string) (Pending, error) {
	return g.spawn(ctx, guildID, channelID, false)
}

func (g *Generator) spawn(ctx context.Context, guildID, channelID string, replace bool) (Pending, error) {
	ind := g.RandomIndividual()
	sp, err := g.catalog.Lookup(ind.SpeciesNumber)
	if err != nil {
		return Pending{}, err
	}

	enc := store.Encounter{
		ID:        uuid.New(),
		Digimon:   ind,
		ChannelID: channelID,
		SpawnedAt: g.now().UTC(),
	}
	err = g.store.UpdateGuild(ctx, guildID, func(rec *store.GuildRecord) error {
		if !replace && rec.Current != nil {
			return ErrEncounterPending
		}
		if rec.SpawnChannel != "" {
			enc.ChannelID = rec.SpawnChannel
		}
		cur := enc
		rec.Current = &cur
		return nil
	})
	if errors.Is(err, ErrEncounterPending) {
		return Pending{}, ErrEncounterPending
	}
	if err != nil {
		return Pending{}, fmt.Errorf("spawn in guild %s: %w", guildID, err)
	}

	slog.Info("encounter: spawned",
		"guild", guildID,
		"channel", enc.ChannelID,
		"species", sp.Name,
		"level", ind.Level,
		"id", enc.ID,
	)
	return Pending{Encounter: enc, Species: sp}, nil
}

// Pending returns the guild's current encounter, or ErrNoEncounter.
func (g *Generator) Pending(ctx context.Context, guildID string) (Pending, error) {
	rec, err := g.store.Guild(ctx, guildID)
	if err != nil {
		return Pending{}, fmt.Errorf("load guild %s: %w", guildID, err)
	}
	if rec.Current == nil {
		return Pending{}, ErrNoEncounter
	}
	sp, err := g.catalog.Lookup(rec.Current.Digimon.SpeciesNumber)
	if err != nil {
		return Pending{}, err
	}
	return Pending{Encounter: *rec.Current, Species: sp}, nil
}

// Match checks a guess against the species of ind. Comparison is
// case-insensitive and exact; surrounding whitespace is not ignored.
func (g *Generator) Match(ind digimon.Individual, guess string) (species.Species, error) {
	sp, err := g.catalog.Lookup(ind.SpeciesNumber)
	if err != nil {
		return species.Species{}, err
	}
	if strings.ToLower(guess) != strings.ToLower(sp.Name) {
		return species.Species{}, ErrNoMatch
	}
	return sp, nil
}

// Catch resolves a guess for the guild's pending encounter. On a correct
// guess the encounter is claimed and registered to userID. Concurrent
// correct guesses have exactly one winner; the rest get ErrAlreadyCaught.
func (g *Generator) Catch(ctx context.Context, guildID, userID, guess string) (CatchResult, error) {
	pending, err := g.Pending(ctx, guildID)
	if err != nil {
		return CatchResult{}, err
	}
	if _, err := g.Match(pending.Digimon, guess); err != nil {
		return CatchResult{}, err
	}

	err = g.store.UpdateGuild(ctx, guildID, func(rec *store.GuildRecord) error {
		if rec.Current == nil || rec.Current.ID != pending.ID {
			return ErrAlreadyCaught
		}
		rec.Current = nil
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyCaught) {
			return CatchResult{}, ErrAlreadyCaught
		}
		return CatchResult{}, fmt.Errorf("claim encounter in guild %s: %w", guildID, err)
	}

	id, err := g.collections.Register(ctx, userID, pending.Digimon)
	if err != nil {
		slog.Error("encounter: claimed but not registered",
			"guild", guildID,
			"user", userID,
			"encounter", pending.ID,
			"err", err,
		)
		return CatchResult{}, err
	}

	slog.Info("encounter: caught",
		"guild", guildID,
		"user", userID,
		"species", pending.Species.Name,
		"id", id,
	)
	return CatchResult{
		ID:          id,
		Digimon:     pending.Digimon,
		Species:     pending.Species,
		EncounterID: pending.ID,
	}, nil
}

// SetSpawnChannel pins the guild's spawns to channelID. An empty channelID
// goes back to spawning where the triggering message was sent.
func (g *Generator) SetSpawnChannel(ctx context.Context, guildID, channelID string) error {
	err := g.store.UpdateGuild(ctx, guildID, func(rec *store.GuildRecord) error {
		rec.SpawnChannel = channelID
		return nil
	})
	if err != nil {
		return fmt.Errorf("set spawn channel for %s: %w", guildID, err)
	}
	return nil
}

// SpawnChance returns the current global chance in percent.
func (g *Generator) SpawnChance(ctx context.Context) (int, error) {
	s, err := g.store.Settings(ctx)
	if err != nil {
		return 0, fmt.Errorf("load settings: %w", err)
	}
	return s.SpawnChance, nil
}

// SetSpawnChance sets the global chance in percent.
func (g *Generator) SetSpawnChance(ctx context.Context, chance int) error {
	if chance < store.MinSpawnChance || chance > store.MaxSpawnChance {
		return ErrInvalidSpawnChance
	}
	err := g.store.UpdateSettings(ctx, func(s *store.Settings) error {
		s.SpawnChance = chance
		return nil
	})
	if err != nil {
		return fmt.Errorf("set spawn chance: %w", err)
	}
	return nil
}
