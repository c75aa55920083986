package digimon

import (
	"encoding/json"
	"fmt"

	"github.com/moorebrett0/digicord/internal/species"
)

const (
	MinLevel = 1
	MaxLevel = 100
)

// Individual is one concrete creature, either a wild encounter or an owned
// collection entry. It only references its species by number. Build one
// with New so the level is clamped.
type Individual struct {
	SpeciesNumber int
	Nickname      string // empty means no override
	Level         int
}

// New creates an individual with its level clamped to [MinLevel, MaxLevel].
func New(speciesNumber, level int) Individual {
	return Individual{SpeciesNumber: speciesNumber, Level: clamp(level)}
}

// SetLevel assigns a level, clamping it into range.
func (i *Individual) SetLevel(level int) {
	i.Level = clamp(level)
}

// SetNickname overrides the display name. An empty string removes the override.
func (i *Individual) SetNickname(nickname string) {
	i.Nickname = nickname
}

// HasNickname reports whether a nickname override is set.
func (i Individual) HasNickname() bool {
	return i.Nickname != ""
}

// DisplayName is the nickname, or the species name when none is set.
func (i Individual) DisplayName(sp species.Species) string {
	if i.Nickname != "" {
		return i.Nickname
	}
	return sp.Name
}

// Label renders "Nickname(Species)" the way collection listings show it.
func (i Individual) Label(sp species.Species) string {
	return fmt.Sprintf("%s(%s)", i.DisplayName(sp), sp.Name)
}

type individualJSON struct {
	SpeciesNumber int     `json:"species_number"`
	Nickname      *string `json:"nickname"`
	Level         int     `json:"level"`
}

func (i Individual) MarshalJSON() ([]byte, error) {
	out := individualJSON{SpeciesNumber: i.SpeciesNumber, Level: i.Level}
	if i.Nickname != "" {
		out.Nickname = &i.Nickname
	}
	return json.Marshal(out)
}

func (i *Individual) UnmarshalJSON(data []byte) error {
	var in individualJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	i.SpeciesNumber = in.SpeciesNumber
	i.Nickname = ""
	if in.Nickname != nil {
		i.Nickname = *in.Nickname
	}
	i.Level = clamp(in.Level)
	return nil
}

func clamp(v int) int {
	if v < MinLevel {
		return MinLevel
	}
	if v > MaxLevel {
		return MaxLevel
	}
	return v
}
