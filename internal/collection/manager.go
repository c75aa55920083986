// Package collection manages the digimon each user has caught: numbering,
// selection, nicknames, deletion and paging.
package collection

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/moorebrett0/digicord/internal/digimon"
	"github.com/moorebrett0/digicord/internal/species"
	"github.com/moorebrett0/digicord/internal/store"
)

// DefaultPageSize is used by List when no page size is given.
const DefaultPageSize = 10

// Entry is one owned digimon together with its resolved species.
type Entry struct {
	ID      int
	Digimon digimon.Individual
	Species species.Species
}

// Label renders the entry as "Nickname(Species)".
func (e Entry) Label() string {
	return e.Digimon.Label(e.Species)
}

// Page is one slice of a user's collection, ascending by id.
type Page struct {
	Number     int
	TotalPages int
	Total      int
	Entries    []Entry
}

// Manager applies collection operations on top of a Store.
type Manager struct {
	store   store.Store
	catalog *species.Catalog
}

// NewManager creates a Manager. Both arguments are required.
func NewManager(s store.Store, catalog *species.Catalog) *Manager {
	return &Manager{store: s, catalog: catalog}
}

// Register appends ind to the user's collection and returns its new id.
// The level is clamped into range; the selection is left untouched.
func (m *Manager) Register(ctx context.Context, userID string, ind digimon.Individual) (int, error) {
	ind.SetLevel(ind.Level)

	var id int
	err := m.store.UpdateUser(ctx, userID, func(rec *store.UserRecord) error {
		id = rec.NextID
		rec.Digimon[id] = ind
		rec.NextID++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("register digimon for %s: %w", userID, err)
	}
	return id, nil
}

// Get returns one entry of the user's collection.
func (m *Manager) Get(ctx context.Context, userID string, id int) (Entry, error) {
	rec, err := m.store.User(ctx, userID)
	if err != nil {
		return Entry{}, fmt.Errorf("load collection for %s: %w", userID, err)
	}
	ind, ok := rec.Digimon[id]
	if !ok {
		return Entry{}, &UnknownDigimonIDError{UserID: userID, ID: id}
	}
	return m.entry(id, ind)
}

// Select marks id as the user's selected digimon. On failure the previous
// selection stays.
func (m *Manager) Select(ctx context.Context, userID string, id int) error {
	return m.store.UpdateUser(ctx, userID, func(rec *store.UserRecord) error {
		if _, ok := rec.Digimon[id]; !ok {
			return &UnknownDigimonIDError{UserID: userID, ID: id}
		}
		rec.Selected = &id
		return nil
	})
}

// Rename sets the nickname of entry id. An empty nickname goes back to the
// species name.
func (m *Manager) Rename(ctx context.Context, userID string, id int, nickname string) error {
	return m.store.UpdateUser(ctx, userID, func(rec *store.UserRecord) error {
		ind, ok := rec.Digimon[id]
		if !ok {
			return &UnknownDigimonIDError{UserID: userID, ID: id}
		}
		ind.SetNickname(nickname)
		rec.Digimon[id] = ind
		return nil
	})
}

// Delete removes entry id and returns what was removed. Remaining ids keep
// their numbers; the selection is cleared if it pointed at id.
func (m *Manager) Delete(ctx context.Context, userID string, id int) (Entry, error) {
	var removed digimon.Individual
	err := m.store.UpdateUser(ctx, userID, func(rec *store.UserRecord) error {
		ind, ok := rec.Digimon[id]
		if !ok {
			return &UnknownDigimonIDError{UserID: userID, ID: id}
		}
		removed = ind
		delete(rec.Digimon, id)
		if rec.Selected != nil && *rec.Selected == id {
			rec.Selected = nil
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return m.entry(id, removed)
}

// List returns page number page (1-based) of the user's collection.
func (m *Manager) List(ctx context.Context, userID string, page, pageSize int) (Page, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	rec, err := m.store.User(ctx, userID)
	if err != nil {
		return Page{}, fmt.Errorf("load collection for %s: %w", userID, err)
	}
	if len(rec.Digimon) == 0 {
		return Page{}, ErrNoCaughtDigimon
	}

	ids := slices.Sorted(maps.Keys(rec.Digimon))
	totalPages := (len(ids) + pageSize - 1) / pageSize
	if page < 1 || page > totalPages {
		return Page{}, &InvalidPageError{Requested: page, Max: totalPages}
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(ids))

	out := Page{
		Number:     page,
		TotalPages: totalPages,
		Total:      len(ids),
		Entries:    make([]Entry, 0, end-start),
	}
	for _, id := range ids[start:end] {
		e, err := m.entry(id, rec.Digimon[id])
		if err != nil {
			return Page{}, err
		}
		out.Entries = append(out.Entries, e)
	}
	return out, nil
}

// ResolveSelected returns the user's selected entry.
func (m *Manager) ResolveSelected(ctx context.Context, userID string) (Entry, error) {
	rec, err := m.store.User(ctx, userID)
	if err != nil {
		return Entry{}, fmt.Errorf("load collection for %s: %w", userID, err)
	}
	if len(rec.Digimon) == 0 {
		return Entry{}, ErrNoCaughtDigimon
	}
	if rec.Selected == nil {
		return Entry{}, ErrNoSelectedDigimon
	}
	ind, ok := rec.Digimon[*rec.Selected]
	if !ok {
		// Stale selection from hand-edited data.
		return Entry{}, ErrNoSelectedDigimon
	}
	return m.entry(*rec.Selected, ind)
}

// Count is the number of entries the user owns.
func (m *Manager) Count(ctx context.Context, userID string) (int, error) {
	rec, err := m.store.User(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load collection for %s: %w", userID, err)
	}
	return len(rec.Digimon), nil
}

func (m *Manager) entry(id int, ind digimon.Individual) (Entry, error) {
	sp, err := m.catalog.Lookup(ind.SpeciesNumber)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %d: %w", id, err)
	}
	return Entry{ID: id, Digimon: ind, Species: sp}, nil
}
