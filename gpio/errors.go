package gpio

import (
	"errors"
	"fmt"

	"github.com/larsks/powerhal/regulator"
)

// Hardware initialization errors
var (
	ErrPeriphInitFailed = errors.New("failed to initialize periph.io")
	ErrPinNotFound      = errors.New("failed to find pin")
)

// Pin configuration errors
var (
	ErrInvalidPinSpec = errors.New("invalid pin specification")
	ErrUnsupported    = errors.New("unsupported pin configuration")
)

// Regulator operation errors
var (
	ErrSetLevel = errors.New("failed to set enable pin level")
)

// PinError is the error type of the enable pin regulators. It records which
// operation failed on which pin.
type PinError struct {
	Op  string
	Pin string
	Err error
}

var _ regulator.Error = (*PinError)(nil)

func (e *PinError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Pin, e.Err)
}

func (e *PinError) Unwrap() error {
	return e.Err
}

func (e *PinError) Kind() regulator.ErrorKind {
	return regulator.KindOther
}
