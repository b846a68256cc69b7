package planning

import "errors"

// Precondition violations. Insufficient history is not an error: methods degrade
// to a simpler estimate instead.
var (
	ErrEmptySeries      = errors.New("demand series is empty")
	ErrNonFiniteValue   = errors.New("demand series contains a non-finite value")
	ErrUnknownMethod    = errors.New("unknown forecasting method")
	ErrInvalidParameter = errors.New("invalid forecasting parameter")
)
