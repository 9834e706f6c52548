// Package regulator defines the contract between generic power management
// code and the drivers that switch a power regulator on and off.
//
// A driver implements Regulator. Every non-nil error it returns must carry,
// somewhere in its Unwrap chain, a value that implements Error, so that
// generic code can classify it with Kind without knowing the driver's own
// error type. Drivers whose operations cannot fail document Infallible as
// their error type.
package regulator

import (
	"context"
	"reflect"
)

// Regulator is a power regulator that can be enabled and disabled.
//
// Enable and Disable may block while the hardware transition completes. The
// context bounds that wait; what state the hardware is left in when the
// context is cancelled is up to the implementation. Nothing here serializes
// concurrent callers.
type Regulator interface {
	// Enable moves the regulator to (or keeps it in) its energized state.
	Enable(ctx context.Context) error

	// Disable moves the regulator to (or keeps it in) its de-energized state.
	Disable(ctx context.Context) error
}

// ErrorType is optionally implemented by a Regulator to name the one error
// type it reports. Implementations return ErrorTypeOf[E]() for their E.
type ErrorType interface {
	ErrorType() reflect.Type
}

// ErrorTypeOf returns the type of E. The constraint rejects, at compile time,
// an error type that does not implement Error.
func ErrorTypeOf[E Error]() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}

// Ref is a non-owning handle to a Regulator. It forwards every call to the
// borrowed value unchanged, including the errors it returns, so the handle
// reports the same error type as the value it borrows.
type Ref[R Regulator] struct {
	r R
}

var _ Regulator = (*Ref[Regulator])(nil)

// Borrow returns a Ref to r.
func Borrow[R Regulator](r R) *Ref[R] {
	return &Ref[R]{r: r}
}

func (ref *Ref[R]) Enable(ctx context.Context) error {
	return ref.r.Enable(ctx)
}

func (ref *Ref[R]) Disable(ctx context.Context) error {
	return ref.r.Disable(ctx)
}

// Unwrap returns the borrowed regulator.
func (ref *Ref[R]) Unwrap() R {
	return ref.r
}

// ErrorType forwards to the borrowed regulator. It returns nil when the
// borrowed regulator does not name its error type.
func (ref *Ref[R]) ErrorType() reflect.Type {
	if et, ok := any(ref.r).(ErrorType); ok {
		return et.ErrorType()
	}
	return nil
}

// Async runs op in its own goroutine and returns a channel that receives
// op's result once it completes. The channel is buffered, so the goroutine
// never blocks on a caller that stops listening.
//
//	done := regulator.Async(ctx, reg.Enable)
//	...
//	if err := <-done; err != nil {
func Async(ctx context.Context, op func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()
	return done
}
