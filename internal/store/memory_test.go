package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moorebrett0/digicord/internal/digimon"
	"github.com/moorebrett0/digicord/internal/store"
)

func addDigimon(speciesNumber int) func(*store.UserRecord) error {
	return func(rec *store.UserRecord) error {
		id := rec.NextID
		rec.Digimon[id] = digimon.New(speciesNumber, 5)
		rec.NextID++
		return nil
	}
}

func TestMemory_UnknownUserIsEmpty(t *testing.T) {
	m := store.NewMemory()

	rec, err := m.User(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, rec.Digimon)
	assert.Equal(t, 1, rec.NextID)
	assert.Nil(t, rec.Selected)
}

func TestMemory_UpdateUser(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.UpdateUser(ctx, "u1", addDigimon(3)))
	require.NoError(t, m.UpdateUser(ctx, "u1", addDigimon(7)))

	rec, err := m.User(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rec.Digimon, 2)
	assert.Equal(t, 3, rec.Digimon[1].SpeciesNumber)
	assert.Equal(t, 7, rec.Digimon[2].SpeciesNumber)
	assert.Equal(t, 3, rec.NextID)
}

func TestMemory_CallbackErrorAbortsWrite(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	boom := errors.New("boom")

	err := m.UpdateUser(ctx, "u1", func(rec *store.UserRecord) error {
		rec.Digimon[1] = digimon.New(1, 1)
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := m.User(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rec.Digimon)
}

func TestMemory_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.UpdateUser(ctx, "u1", addDigimon(3)))

	rec, err := m.User(ctx, "u1")
	require.NoError(t, err)
	delete(rec.Digimon, 1)

	again, err := m.User(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, again.Digimon, 1)
}

func TestMemory_ConcurrentUpdatesKeepEveryEntry(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	const workers = 50
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.UpdateUser(ctx, "u1", addDigimon(i+1)))
		}()
	}
	wg.Wait()

	rec, err := m.User(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, rec.Digimon, workers)
	assert.Equal(t, workers+1, rec.NextID)
}

func TestMemory_Guilds(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	for _, id := range []string{"g2", "g1"} {
		require.NoError(t, m.UpdateGuild(ctx, id, func(rec *store.GuildRecord) error {
			rec.SpawnChannel = "chan-" + id
			return nil
		}))
	}

	ids, err := m.GuildIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, ids)

	g, err := m.Guild(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, "chan-g2", g.SpawnChannel)
	assert.Nil(t, g.Current)
}

func TestMemory_Settings(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	s, err := m.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultSpawnChance, s.SpawnChance)

	require.NoError(t, m.UpdateSettings(ctx, func(s *store.Settings) error {
		s.SpawnChance = 25
		return nil
	}))
	s, err = m.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, s.SpawnChance)

	require.NoError(t, m.UpdateSettings(ctx, func(s *store.Settings) error {
		s.SpawnChance = 500
		return nil
	}))
	s, err = m.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultSpawnChance, s.SpawnChance)
}
