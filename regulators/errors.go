package regulators

import (
	"errors"
	"fmt"

	"github.com/larsks/powerhal/regulator"
)

// Registry errors
var (
	ErrDriverExists  = errors.New("driver already registered")
	ErrUnknownDriver = errors.New("unknown driver")
)

// Configuration errors
var (
	ErrInvalidOptions   = errors.New("invalid driver options")
	ErrMissingAddress   = errors.New("address is required")
	ErrMissingTopic     = errors.New("topic is required")
	ErrUnknownRegulator = errors.New("unknown regulator")
)

// Device errors
var (
	ErrRequestFailed = errors.New("request failed")
	ErrHTTPStatus    = errors.New("unexpected HTTP status")
	ErrBadResponse   = errors.New("unparseable device response")
	ErrNotConfirmed  = errors.New("device did not confirm power state")
)

// Error is the error type of the network regulators in this package.
type Error struct {
	Op        string
	Regulator string
	Err       error
}

var _ regulator.Error = (*Error)(nil)

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Regulator, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Kind() regulator.ErrorKind {
	return regulator.KindOther
}
