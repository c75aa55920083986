package collection

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDigimonID  = errors.New("unknown digimon id")
	ErrNoCaughtDigimon   = errors.New("no caught digimon")
	ErrNoSelectedDigimon = errors.New("no selected digimon")
	ErrInvalidPage       = errors.New("invalid page")
)

// UnknownDigimonIDError means the user has no entry with that id.
type UnknownDigimonIDError struct {
	UserID string
	ID     int
}

func (e *UnknownDigimonIDError) Error() string {
	return fmt.Sprintf("user %s has no digimon with id %d", e.UserID, e.ID)
}

func (e *UnknownDigimonIDError) Is(target error) bool {
	return target == ErrUnknownDigimonID
}

// InvalidPageError reports a page outside [1, Max].
type InvalidPageError struct {
	Requested int
	Max       int
}

func (e *InvalidPageError) Error() string {
	return fmt.Sprintf("page %d is out of range (1-%d)", e.Requested, e.Max)
}

func (e *InvalidPageError) Is(target error) bool {
	return target == ErrInvalidPage
}
