package species

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
)

// Species is one immutable catalog entry.
type Species struct {
	Number int
	Name   string
	Stage  Stage
}

// Digivolution is a species this one can evolve into, with its level requirement.
type Digivolution struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// Digivolutions lists the evolution links scraped from a species page.
type Digivolutions struct {
	From []string       `json:"from"`
	To   []Digivolution `json:"to"`
}

// Record is one entry of the species database file. Only Name, SpeciesNumber
// and Stage feed the catalog; the rest is for the image tooling and embeds.
type Record struct {
	Name          string        `json:"name"`
	SpeciesNumber int           `json:"species_number"`
	Stage         string        `json:"stage"`
	SpriteURL     string        `json:"sprite_url"`
	PageURL       string        `json:"page_url"`
	FieldURL      string        `json:"field_url"`
	Digivolutions Digivolutions `json:"digivolutions"`
}

// rawRecord uses pointers so missing required fields can be told apart from zero values.
type rawRecord struct {
	Name          *string       `json:"name"`
	SpeciesNumber *int          `json:"species_number"`
	Stage         *string       `json:"stage"`
	SpriteURL     string        `json:"sprite_url"`
	PageURL       string        `json:"page_url"`
	FieldURL      string        `json:"field_url"`
	Digivolutions Digivolutions `json:"digivolutions"`
}

// Catalog is the read-only species table. It is safe for concurrent use.
type Catalog struct {
	species map[int]Species
	records map[int]Record
	numbers []int // ascending
}

// LoadFile reads a species database from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open species database: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load decodes a JSON array of records. Any bad entry fails the whole load.
func Load(r io.Reader) (*Catalog, error) {
	var raws []rawRecord
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, &MalformedRecordError{Index: -1, Reason: err.Error()}
	}
	if len(raws) == 0 {
		return nil, &MalformedRecordError{Index: -1, Reason: "no species records"}
	}

	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := raw.validate(i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return New(records)
}

// New builds a catalog from already decoded records.
func New(records []Record) (*Catalog, error) {
	if len(records) == 0 {
		return nil, &MalformedRecordError{Index: -1, Reason: "no species records"}
	}

	c := &Catalog{
		species: make(map[int]Species, len(records)),
		records: make(map[int]Record, len(records)),
		numbers: make([]int, 0, len(records)),
	}

	for i, rec := range records {
		if rec.SpeciesNumber < 1 {
			return nil, &MalformedRecordError{Index: i, Reason: fmt.Sprintf("species_number %d is not positive", rec.SpeciesNumber)}
		}
		if strings.TrimSpace(rec.Name) == "" {
			return nil, &MalformedRecordError{Index: i, Reason: "empty name"}
		}
		stage, err := ParseStage(rec.Stage)
		if err != nil {
			return nil, &MalformedRecordError{Index: i, Reason: err.Error()}
		}
		if _, dup := c.species[rec.SpeciesNumber]; dup {
			return nil, &MalformedRecordError{Index: i, Reason: fmt.Sprintf("duplicate species_number %d", rec.SpeciesNumber)}
		}

		c.species[rec.SpeciesNumber] = Species{Number: rec.SpeciesNumber, Name: rec.Name, Stage: stage}
		c.records[rec.SpeciesNumber] = rec
		c.numbers = append(c.numbers, rec.SpeciesNumber)
	}
	slices.Sort(c.numbers)

	return c, nil
}

func (raw rawRecord) validate(index int) (Record, error) {
	switch {
	case raw.Name == nil:
		return Record{}, &MalformedRecordError{Index: index, Reason: "missing name"}
	case raw.SpeciesNumber == nil:
		return Record{}, &MalformedRecordError{Index: index, Reason: "missing species_number"}
	case raw.Stage == nil:
		return Record{}, &MalformedRecordError{Index: index, Reason: "missing stage"}
	}
	return Record{
		Name:          *raw.Name,
		SpeciesNumber: *raw.SpeciesNumber,
		Stage:         *raw.Stage,
		SpriteURL:     raw.SpriteURL,
		PageURL:       raw.PageURL,
		FieldURL:      raw.FieldURL,
		Digivolutions: raw.Digivolutions,
	}, nil
}

// Lookup returns the species for a number.
func (c *Catalog) Lookup(number int) (Species, error) {
	sp, ok := c.species[number]
	if !ok {
		return Species{}, &UnknownSpeciesError{Number: number}
	}
	return sp, nil
}

// Record returns the full database entry for a number.
func (c *Catalog) Record(number int) (Record, error) {
	rec, ok := c.records[number]
	if !ok {
		return Record{}, &UnknownSpeciesError{Number: number}
	}
	return rec, nil
}

// Records returns every database entry ordered by species number.
func (c *Catalog) Records() []Record {
	out := make([]Record, 0, len(c.numbers))
	for _, n := range c.numbers {
		out = append(out, c.records[n])
	}
	return out
}

// RandomNumber draws uniformly from [Min, Max]. A draw that lands on a gap in
// the numbering is re-rolled, so the result always resolves.
func (c *Catalog) RandomNumber(rng *rand.Rand) int {
	lo, hi := c.Min(), c.Max()
	for {
		n := lo + rng.IntN(hi-lo+1)
		if _, ok := c.species[n]; ok {
			return n
		}
	}
}

// Numbers returns the species numbers in ascending order.
func (c *Catalog) Numbers() []int {
	return slices.Clone(c.numbers)
}

func (c *Catalog) Len() int { return len(c.numbers) }
func (c *Catalog) Min() int { return c.numbers[0] }
func (c *Catalog) Max() int { return c.numbers[len(c.numbers)-1] }

// StageCounts tallies how many species sit in each stage.
func (c *Catalog) StageCounts() map[Stage]int {
	counts := make(map[Stage]int)
	for _, sp := range c.species {
		counts[sp.Stage]++
	}
	return counts
}
