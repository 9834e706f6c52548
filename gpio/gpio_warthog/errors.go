package gpio_warthog

import "errors"

// Hardware initialization errors
var (
	ErrGPIOChipOpenFailed = errors.New("failed to open GPIO chip")
	ErrLineRequestFailed  = errors.New("failed to request GPIO line")
)

// Regulator operation errors
var (
	ErrSetValue = errors.New("failed to set enable line value")
	ErrGetValue = errors.New("failed to read enable line value")
	ErrClosed   = errors.New("enable line is closed")
)
