package regulator

import (
	"errors"
	"fmt"
)

// ErrorKind is a coarse classification of a regulator error.
//
// HAL implementations are free to define more specific or additional error
// types. By mapping them to an ErrorKind, generic code can still react to
// them. More kinds may be added later, so a switch on an ErrorKind must
// always carry a default arm.
type ErrorKind uint8

const (
	// KindOther means a different error occurred. The original error may
	// contain more information.
	KindOther ErrorKind = iota
)

// Error is implemented by every error a Regulator returns.
type Error interface {
	error

	// Kind converts the error to a generic ErrorKind. It must be pure and
	// defined for every value of the implementing type.
	Kind() ErrorKind
}

// Infallible is the error type of regulators whose operations cannot fail.
// No type can implement it, so the only Infallible value is nil and Kind is
// never reached.
type Infallible interface {
	Error
	infallible()
}

var _ Error = KindOther

// Kind returns the kind itself.
func (k ErrorKind) Kind() ErrorKind {
	return k
}

// Error lets an ErrorKind stand in as an error when no more specific type is
// needed.
func (k ErrorKind) Error() string {
	return k.String()
}

func (k ErrorKind) String() string {
	switch k {
	case KindOther:
		return "A different error occurred. The original error may contain more information"
	default:
		return fmt.Sprintf("unknown error kind (%d)", uint8(k))
	}
}

func (k ErrorKind) GoString() string {
	switch k {
	case KindOther:
		return "regulator.KindOther"
	default:
		return fmt.Sprintf("regulator.ErrorKind(%d)", uint8(k))
	}
}

// IsValid reports whether k is a kind defined by this package.
func (k ErrorKind) IsValid() bool {
	return k <= KindOther
}

// Kind classifies err. It returns the kind of the first Error found in the
// err chain, and KindOther when there is none or the kind is not one this
// package defines. Kind(nil) is KindOther; check err != nil first.
func Kind(err error) ErrorKind {
	var e Error
	if err == nil || !errors.As(err, &e) {
		return KindOther
	}
	if k := e.Kind(); k.IsValid() {
		return k
	}
	return KindOther
}

// As finds the first error in err's chain of type E.
func As[E Error](err error) (E, bool) {
	var target E
	if err == nil {
		return target, false
	}
	ok := errors.As(err, &target)
	return target, ok
}
