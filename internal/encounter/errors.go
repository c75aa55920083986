package encounter

import "errors"

var (
	// ErrNoEncounter means the guild has nothing waiting to be caught.
	ErrNoEncounter = errors.New("no digimon to catch")
	// ErrNoMatch means the guess did not name the pending species.
	ErrNoMatch = errors.New("guess does not match")
	// ErrAlreadyCaught means another user claimed the encounter first.
	ErrAlreadyCaught = errors.New("digimon was already caught")
	// ErrEncounterPending means SpawnIfIdle found an unclaimed encounter.
	ErrEncounterPending = errors.New("a digimon is already waiting to be caught")
	// ErrInvalidSpawnChance is returned for chances outside 1..100.
	ErrInvalidSpawnChance = errors.New("spawn chance must be between 1 and 100")
)
