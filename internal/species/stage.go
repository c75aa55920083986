package species

import (
	"fmt"
	"strings"
)

// Stage is the evolutionary tier of a species.
type Stage int

const (
	StageNone Stage = iota
	StageBaby
	StageInTraining
	StageRookie
	StageChampion
	StageUltimate
	StageMega
	StageUltra
	StageArmor
)

var stageNames = map[Stage]string{
	StageNone:       "None",
	StageBaby:       "Baby",
	StageInTraining: "In-Training",
	StageRookie:     "Rookie",
	StageChampion:   "Champion",
	StageUltimate:   "Ultimate",
	StageMega:       "Mega",
	StageUltra:      "Ultra",
	StageArmor:      "Armor",
}

// stageLookup maps the lowercased spellings seen in scraped data to a stage.
var stageLookup = map[string]Stage{
	"none":        StageNone,
	"baby":        StageBaby,
	"in-training": StageInTraining,
	"in_training": StageInTraining,
	"rookie":      StageRookie,
	"champion":    StageChampion,
	"ultimate":    StageUltimate,
	"mega":        StageMega,
	"ultra":       StageUltra,
	"armor":       StageArmor,
}

// ParseStage converts the hyphenated display form ("In-Training") into a Stage.
// Matching ignores case; anything outside the table is an error.
func ParseStage(s string) (Stage, error) {
	st, ok := stageLookup[strings.ToLower(s)]
	if !ok {
		return StageNone, fmt.Errorf("unknown stage %q", s)
	}
	return st, nil
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	if _, ok := stageNames[s]; !ok {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	st, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
