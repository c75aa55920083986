package species_test

import (
	"errors"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moorebrett0/digicord/internal/species"
)

const sampleDatabase = `[
	{"name": "Kuramon", "species_number": 1, "stage": "Baby", "sprite_url": "http://x/s1.png", "page_url": "http://x/1", "field_url": "http://x/f1.png",
	 "digivolutions": {"from": [], "to": [{"name": "Tsumemon", "level": "Lv. 6"}]}},
	{"name": "Tsumemon", "species_number": 2, "stage": "In-Training", "sprite_url": "", "page_url": "", "field_url": "", "digivolutions": {"from": ["Kuramon"], "to": []}},
	{"name": "Agumon", "species_number": 3, "stage": "Rookie"},
	{"name": "Greymon", "species_number": 4, "stage": "Champion"},
	{"name": "MetalGreymon", "species_number": 5, "stage": "Ultimate"}
]`

func loadSample(t *testing.T) *species.Catalog {
	t.Helper()
	c, err := species.Load(strings.NewReader(sampleDatabase))
	require.NoError(t, err)
	return c
}

func TestLoad(t *testing.T) {
	c := loadSample(t)

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, 1, c.Min())
	assert.Equal(t, 5, c.Max())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, c.Numbers())

	rec, err := c.Record(1)
	require.NoError(t, err)
	assert.Equal(t, "http://x/f1.png", rec.FieldURL)
	require.Len(t, rec.Digivolutions.To, 1)
	assert.Equal(t, "Tsumemon", rec.Digivolutions.To[0].Name)
}

func TestLookupReturnsMatchingNumber(t *testing.T) {
	c := loadSample(t)

	for n := c.Min(); n <= c.Max(); n++ {
		sp, err := c.Lookup(n)
		require.NoError(t, err)
		assert.Equal(t, n, sp.Number)
	}

	sp, err := c.Lookup(2)
	require.NoError(t, err)
	assert.Equal(t, "Tsumemon", sp.Name)
	assert.Equal(t, species.StageInTraining, sp.Stage)
}

func TestLookupUnknown(t *testing.T) {
	c := loadSample(t)

	_, err := c.Lookup(42)
	require.Error(t, err)
	assert.ErrorIs(t, err, species.ErrUnknownSpecies)

	var unknown *species.UnknownSpeciesError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, 42, unknown.Number)
}

func TestLoadMalformed(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		reason string
	}{
		{name: "not json", input: `{`, reason: "malformed species database"},
		{name: "empty array", input: `[]`, reason: "no species records"},
		{name: "missing name", input: `[{"species_number": 1, "stage": "Baby"}]`, reason: "missing name"},
		{name: "missing number", input: `[{"name": "Kuramon", "stage": "Baby"}]`, reason: "missing species_number"},
		{name: "missing stage", input: `[{"name": "Kuramon", "species_number": 1}]`, reason: "missing stage"},
		{name: "unknown stage", input: `[{"name": "Kuramon", "species_number": 1, "stage": "Hyper"}]`, reason: "unknown stage"},
		{name: "zero number", input: `[{"name": "Kuramon", "species_number": 0, "stage": "Baby"}]`, reason: "not positive"},
		{name: "empty name", input: `[{"name": " ", "species_number": 1, "stage": "Baby"}]`, reason: "empty name"},
		{
			name:   "duplicate number",
			input:  `[{"name": "Kuramon", "species_number": 1, "stage": "Baby"}, {"name": "Pabumon", "species_number": 1, "stage": "Baby"}]`,
			reason: "duplicate species_number 1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := species.Load(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, species.ErrMalformedRecord)
			assert.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestRandomNumberStaysInRange(t *testing.T) {
	c := loadSample(t)
	rng := rand.New(rand.NewPCG(7, 11))

	seen := map[int]bool{}
	for range 5000 {
		n := c.RandomNumber(rng)
		require.GreaterOrEqual(t, n, c.Min())
		require.LessOrEqual(t, n, c.Max())
		seen[n] = true
	}
	assert.Len(t, seen, 5, "every species should come up over many draws")
}

func TestRandomNumberSkipsGaps(t *testing.T) {
	c, err := species.New([]species.Record{
		{Name: "Kuramon", SpeciesNumber: 1, Stage: "Baby"},
		{Name: "Agumon", SpeciesNumber: 10, Stage: "Rookie"},
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		n := c.RandomNumber(rng)
		assert.Contains(t, []int{1, 10}, n)
	}
}

func TestRandomNumberIsDeterministicForSeed(t *testing.T) {
	c := loadSample(t)

	draw := func() []int {
		rng := rand.New(rand.NewPCG(99, 100))
		out := make([]int, 20)
		for i := range out {
			out[i] = c.RandomNumber(rng)
		}
		return out
	}
	assert.Equal(t, draw(), draw())
}

func TestStageCounts(t *testing.T) {
	c := loadSample(t)
	counts := c.StageCounts()

	assert.Equal(t, 1, counts[species.StageBaby])
	assert.Equal(t, 1, counts[species.StageRookie])
	assert.Equal(t, 0, counts[species.StageMega])
}

func TestAssetPaths(t *testing.T) {
	assert.Equal(t, "sprite-007.png", species.SpriteFile(7))
	assert.Equal(t, "field-123.png", species.FieldFile(123))
	assert.Equal(t, "field-1234.png", species.FieldFile(1234))
	assert.Equal(t, filepath.Join("images", "sprites", "sprite-042.png"), species.SpritePath("images", 42))
	assert.Equal(t, filepath.Join("images", "field", "field-042.png"), species.FieldPath("images", 42))
}
