package domain

import "errors"

// Economy error kinds. Handlers match these with errors.Is and translate
// them to HTTP status codes; the engine never returns raw strings.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInsufficientEnergy = errors.New("insufficient energy")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrCooldownActive     = errors.New("cooldown active")
	ErrLevelTooLow        = errors.New("level requirement not met")
	ErrAlreadyClaimed     = errors.New("already claimed")
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrNotEligible        = errors.New("not eligible")
	ErrAlreadyExists      = errors.New("already exists")

	// ErrVersionConflict is returned by the player store when a
	// compare-and-swap save loses the race; the whole operation is retried
	// against a fresh snapshot.
	ErrVersionConflict = errors.New("version conflict")
)
