// Package store persists collections, pending encounters and bot settings.
//
// Every backend serializes read-modify-write per key: an Update* callback
// sees the latest record and its result is written only if nothing else
// changed that key in the meantime. Returning an error from the callback
// aborts the write.
package store

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/moorebrett0/digicord/internal/digimon"
)

//go:generate mockgen -destination=mocks/store.go -package=storemocks -source=store.go Store

const (
	DefaultSpawnChance = 1
	MinSpawnChance     = 1
	MaxSpawnChance     = 100
)

// ErrConflict is returned when an optimistic update kept losing races.
var ErrConflict = errors.New("store: too many concurrent updates")

// Store is the key-value abstraction the bot core runs against.
type Store interface {
	User(ctx context.Context, userID string) (UserRecord, error)
	UpdateUser(ctx context.Context, userID string, fn func(*UserRecord) error) error

	Guild(ctx context.Context, guildID string) (GuildRecord, error)
	UpdateGuild(ctx context.Context, guildID string, fn func(*GuildRecord) error) error
	GuildIDs(ctx context.Context) ([]string, error)

	Settings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, fn func(*Settings) error) error

	Close() error
}

// UserRecord is one user's collection. Ids are handed out from NextID and
// never reused.
type UserRecord struct {
	Digimon  map[int]digimon.Individual `json:"digimon"`
	NextID   int                        `json:"next_id"`
	Selected *int                       `json:"selected_digimon"`
}

// NewUserRecord is the record of a user that has never caught anything.
func NewUserRecord() UserRecord {
	return UserRecord{Digimon: map[int]digimon.Individual{}, NextID: 1}
}

// normalize repairs records decoded from older or hand-edited data.
func (r *UserRecord) normalize() {
	if r.Digimon == nil {
		r.Digimon = map[int]digimon.Individual{}
	}
	for id := range r.Digimon {
		if id >= r.NextID {
			r.NextID = id + 1
		}
	}
	if r.NextID < 1 {
		r.NextID = 1
	}
}

func (r UserRecord) clone() UserRecord {
	out := r
	out.Digimon = maps.Clone(r.Digimon)
	if out.Digimon == nil {
		out.Digimon = map[int]digimon.Individual{}
	}
	if r.Selected != nil {
		sel := *r.Selected
		out.Selected = &sel
	}
	return out
}

// Encounter is a spawned individual waiting for a correct guess.
type Encounter struct {
	ID        uuid.UUID          `json:"id"`
	Digimon   digimon.Individual `json:"digimon"`
	ChannelID string             `json:"channel_id"`
	SpawnedAt time.Time          `json:"spawned_at"`
}

// GuildRecord holds per-guild spawning state.
type GuildRecord struct {
	SpawnChannel string     `json:"spawn_channel,omitempty"`
	Current      *Encounter `json:"current_digimon"`
}

func (r GuildRecord) clone() GuildRecord {
	out := r
	if r.Current != nil {
		cur := *r.Current
		out.Current = &cur
	}
	return out
}

// Settings are bot-wide values.
type Settings struct {
	SpawnChance int `json:"spawn_chance"`
}

// DefaultSettings is what a fresh store reports.
func DefaultSettings() Settings {
	return Settings{SpawnChance: DefaultSpawnChance}
}

func (s *Settings) normalize() {
	if s.SpawnChance < MinSpawnChance || s.SpawnChance > MaxSpawnChance {
		s.SpawnChance = DefaultSpawnChance
	}
}
