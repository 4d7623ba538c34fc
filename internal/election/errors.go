package election

import "errors"

// Error kinds reported by the engine. Callers match them with errors.Is.
var (
	ErrNotFound                  = errors.New("not found")
	ErrInvalidPhase              = errors.New("operation not allowed in current phase")
	ErrCancelled                 = errors.New("election is cancelled")
	ErrKeyNotReady               = errors.New("election key not ready")
	ErrKeyRegenerationNotAllowed = errors.New("election key regeneration not allowed")
	ErrDuplicateVote             = errors.New("voter has already cast a ballot")
	ErrInvalidEligibility        = errors.New("voter not eligible for this channel")
	ErrUndefinedTurnout          = errors.New("turnout undefined for election without eligible voters")
	ErrKeyGenerationFailed       = errors.New("election key generation failed")

	ErrInvalidSchedule = errors.New("invalid election schedule")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("concurrent modification")
)
