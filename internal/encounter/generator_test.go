package encounter_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moorebrett0/digicord/internal/collection"
	"github.com/moorebrett0/digicord/internal/digimon"
	"github.com/moorebrett0/digicord/internal/encounter"
	"github.com/moorebrett0/digicord/internal/species"
	"github.com/moorebrett0/digicord/internal/store"
)

const guild = "guild-1"

type fixture struct {
	gen         *encounter.Generator
	store       *store.Memory
	collections *collection.Manager
}

func newFixture(t *testing.T, records ...species.Record) fixture {
	t.Helper()
	if len(records) == 0 {
		records = []species.Record{{Name: "Agumon", SpeciesNumber: 1, Stage: "Rookie"}}
	}
	catalog, err := species.New(records)
	require.NoError(t, err)

	st := store.NewMemory()
	collections := collection.NewManager(st, catalog)
	gen, err := encounter.New(&encounter.Config{
		Catalog:     catalog,
		Store:       st,
		Collections: collections,
		Rand:        rand.New(rand.NewPCG(1, 2)),
		Now:         func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	require.NoError(t, err)
	return fixture{gen: gen, store: st, collections: collections}
}

func TestNewValidation(t *testing.T) {
	_, err := encounter.New(nil)
	require.Error(t, err)

	_, err = encounter.New(&encounter.Config{})
	require.ErrorContains(t, err, "catalog cannot be nil")
}

func TestRandomIndividualBounds(t *testing.T) {
	f := newFixture(t,
		species.Record{Name: "Botamon", SpeciesNumber: 2, Stage: "Baby"},
		species.Record{Name: "Agumon", SpeciesNumber: 4, Stage: "Rookie"},
		species.Record{Name: "Greymon", SpeciesNumber: 6, Stage: "Champion"},
	)

	for range 2000 {
		ind := f.gen.RandomIndividual()
		assert.Contains(t, []int{2, 4, 6}, ind.SpeciesNumber)
		assert.GreaterOrEqual(t, ind.Level, digimon.MinLevel)
		assert.LessOrEqual(t, ind.Level, digimon.MaxLevel)
		assert.False(t, ind.HasNickname())
	}
}

func TestSpawnReplacesPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.gen.Spawn(ctx, guild, "chan-a")
	require.NoError(t, err)
	assert.Equal(t, "chan-a", first.ChannelID)
	assert.Equal(t, "Agumon", first.Species.Name)

	second, err := f.gen.Spawn(ctx, guild, "chan-b")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	pending, err := f.gen.Pending(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, second.ID, pending.ID)
	assert.Equal(t, "chan-b", pending.ChannelID)
}

func TestSpawnIfIdleKeepsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.gen.SpawnIfIdle(ctx, guild, "chan-a")
	require.NoError(t, err)

	_, err = f.gen.SpawnIfIdle(ctx, guild, "chan-b")
	require.ErrorIs(t, err, encounter.ErrEncounterPending)

	pending, err := f.gen.Pending(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, first.ID, pending.ID)
	assert.Equal(t, "chan-a", pending.ChannelID)
}

func TestConcurrentSpawnIfIdleHasOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const spawners = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []encounter.Pending
	)
	for range spawners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := f.gen.SpawnIfIdle(ctx, guild, "chan")
			if err != nil {
				assert.ErrorIs(t, err, encounter.ErrEncounterPending)
				return
			}
			mu.Lock()
			winners = append(winners, p)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	pending, err := f.gen.Pending(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, winners[0].ID, pending.ID)
}

func TestSpawnUsesConfiguredChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.gen.SetSpawnChannel(ctx, guild, "spawns"))
	p, err := f.gen.Spawn(ctx, guild, "general")
	require.NoError(t, err)
	assert.Equal(t, "spawns", p.ChannelID)

	require.NoError(t, f.gen.SetSpawnChannel(ctx, guild, ""))
	p, err = f.gen.Spawn(ctx, guild, "general")
	require.NoError(t, err)
	assert.Equal(t, "general", p.ChannelID)
}

func TestMatch(t *testing.T) {
	f := newFixture(t)
	ind := digimon.New(1, 10)

	testCases := []struct {
		guess string
		match bool
	}{
		{guess: "Agumon", match: true},
		{guess: "agumon", match: true},
		{guess: "AGUMON", match: true},
		{guess: "Agumon ", match: false},
		{guess: " agumon", match: false},
		{guess: "Agu", match: false},
		{guess: "", match: false},
	}

	for _, tc := range testCases {
		t.Run(tc.guess, func(t *testing.T) {
			sp, err := f.gen.Match(ind, tc.guess)
			if tc.match {
				require.NoError(t, err)
				assert.Equal(t, "Agumon", sp.Name)
				return
			}
			require.ErrorIs(t, err, encounter.ErrNoMatch)
		})
	}

	_, err := f.gen.Match(digimon.New(77, 1), "anything")
	require.ErrorIs(t, err, species.ErrUnknownSpecies)
}

func TestCatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.gen.Catch(ctx, guild, "u1", "agumon")
	require.ErrorIs(t, err, encounter.ErrNoEncounter)

	p, err := f.gen.Spawn(ctx, guild, "c")
	require.NoError(t, err)

	_, err = f.gen.Catch(ctx, guild, "u1", "Gabumon")
	require.ErrorIs(t, err, encounter.ErrNoMatch)

	res, err := f.gen.Catch(ctx, guild, "u1", "agumon")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ID)
	assert.Equal(t, p.ID, res.EncounterID)
	assert.Equal(t, p.Digimon, res.Digimon)

	_, err = f.gen.Pending(ctx, guild)
	require.ErrorIs(t, err, encounter.ErrNoEncounter)

	entry, err := f.collections.Get(ctx, "u1", res.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Digimon.Level, entry.Digimon.Level)
}

func TestConcurrentCatchHasOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.gen.Spawn(ctx, guild, "c")
	require.NoError(t, err)

	const players = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := "user-" + string(rune('a'+i))
			_, err := f.gen.Catch(ctx, guild, userID, "agumon")
			switch {
			case err == nil:
				mu.Lock()
				winners = append(winners, userID)
				mu.Unlock()
			case errors.Is(err, encounter.ErrAlreadyCaught), errors.Is(err, encounter.ErrNoEncounter):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	count, err := f.collections.Count(ctx, winners[0])
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSpawnChance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	chance, err := f.gen.SpawnChance(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultSpawnChance, chance)

	for _, bad := range []int{0, -5, 101} {
		require.ErrorIs(t, f.gen.SetSpawnChance(ctx, bad), encounter.ErrInvalidSpawnChance)
	}

	require.NoError(t, f.gen.SetSpawnChance(ctx, 100))
	for range 100 {
		ok, err := f.gen.ShouldSpawn(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, f.gen.SetSpawnChance(ctx, 1))
	hits := 0
	for range 10000 {
		ok, err := f.gen.ShouldSpawn(ctx)
		require.NoError(t, err)
		if ok {
			hits++
		}
	}
	assert.InDelta(t, 100, hits, 60)
}
