package store

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Memory keeps everything in process. A single mutex serializes updates,
// which gives per-key atomicity for free.
type Memory struct {
	mu       sync.Mutex
	users    map[string]UserRecord
	guilds   map[string]GuildRecord
	settings Settings

	// persist runs under the lock after every mutation. If it fails the
	// mutation is rolled back.
	persist func(Snapshot) error
}

// Snapshot is the serialisable form of a Memory store.
type Snapshot struct {
	Users    map[string]UserRecord  `json:"users"`
	Guilds   map[string]GuildRecord `json:"guilds"`
	Settings Settings               `json:"settings"`
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    map[string]UserRecord{},
		guilds:   map[string]GuildRecord{},
		settings: DefaultSettings(),
	}
}

func newMemoryFromSnapshot(snap Snapshot) *Memory {
	m := NewMemory()
	for id, rec := range snap.Users {
		rec.normalize()
		m.users[id] = rec
	}
	for id, rec := range snap.Guilds {
		m.guilds[id] = rec
	}
	m.settings = snap.Settings
	m.settings.normalize()
	return m
}

var _ Store = (*Memory)(nil)

func (m *Memory) User(_ context.Context, userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userLocked(userID), nil
}

func (m *Memory) userLocked(userID string) UserRecord {
	rec, ok := m.users[userID]
	if !ok {
		return NewUserRecord()
	}
	return rec.clone()
}

func (m *Memory) UpdateUser(_ context.Context, userID string, fn func(*UserRecord) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, existed := m.users[userID]
	rec := m.userLocked(userID)
	if err := fn(&rec); err != nil {
		return err
	}
	rec.normalize()
	m.users[userID] = rec

	if err := m.persistLocked(); err != nil {
		if existed {
			m.users[userID] = prev
		} else {
			delete(m.users, userID)
		}
		return err
	}
	return nil
}

func (m *Memory) Guild(_ context.Context, guildID string) (GuildRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guilds[guildID].clone(), nil
}

func (m *Memory) UpdateGuild(_ context.Context, guildID string, fn func(*GuildRecord) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, existed := m.guilds[guildID]
	rec := prev.clone()
	if err := fn(&rec); err != nil {
		return err
	}
	m.guilds[guildID] = rec

	if err := m.persistLocked(); err != nil {
		if existed {
			m.guilds[guildID] = prev
		} else {
			delete(m.guilds, guildID)
		}
		return err
	}
	return nil
}

func (m *Memory) GuildIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.guilds)), nil
}

func (m *Memory) Settings(_ context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *Memory) UpdateSettings(_ context.Context, fn func(*Settings) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.settings
	next := prev
	if err := fn(&next); err != nil {
		return err
	}
	next.normalize()
	m.settings = next

	if err := m.persistLocked(); err != nil {
		m.settings = prev
		return err
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) persistLocked() error {
	if m.persist == nil {
		return nil
	}
	return m.persist(m.snapshotLocked())
}

func (m *Memory) snapshotLocked() Snapshot {
	snap := Snapshot{
		Users:    make(map[string]UserRecord, len(m.users)),
		Guilds:   make(map[string]GuildRecord, len(m.guilds)),
		Settings: m.settings,
	}
	for id, rec := range m.users {
		snap.Users[id] = rec.clone()
	}
	for id, rec := range m.guilds {
		snap.Guilds[id] = rec.clone()
	}
	return snap
}
