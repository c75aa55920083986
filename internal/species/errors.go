package species

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSpecies means a species number has no catalog entry. Callers only
	// pass numbers that came from the catalog, so this is an integrity problem.
	ErrUnknownSpecies = errors.New("unknown species")

	// ErrMalformedRecord means the species database could not be loaded.
	ErrMalformedRecord = errors.New("malformed species record")
)

// UnknownSpeciesError carries the number that failed to resolve.
type UnknownSpeciesError struct {
	Number int
}

func (e *UnknownSpeciesError) Error() string {
	return fmt.Sprintf("unknown species number: %d", e.Number)
}

func (e *UnknownSpeciesError) Is(target error) bool {
	return target == ErrUnknownSpecies
}

// MalformedRecordError points at the offending entry of the database file.
type MalformedRecordError struct {
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed species database: %s", e.Reason)
	}
	return fmt.Sprintf("malformed species record %d: %s", e.Index, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
