package board

import "errors"

// Error kinds surfaced by the repositories and the engine. Callers match
// with errors.Is; wrapped messages carry the offending IDs/amounts.
var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidPrice      = errors.New("price must be positive")
	ErrInvalidSide       = errors.New("side must be buy or sell")
	ErrNotFound          = errors.New("not found")
	ErrExceedsRemaining  = errors.New("declared quantity exceeds remaining quantity")
	ErrInvalidTransition = errors.New("invalid state transition")
)
