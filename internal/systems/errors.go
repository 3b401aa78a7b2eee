package systems

import "errors"

var (
	ErrUnknownSystem = errors.New("systems: unknown system")
	ErrUnknownParam  = errors.New("systems: unknown parameter")
)
