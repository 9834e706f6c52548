// Package regulatortest provides a recording Regulator for testing code
// written against package regulator.
package regulatortest

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/larsks/powerhal/regulator"
)

type Call int

const (
	CallEnable Call = iota
	CallDisable
)

func (c Call) String() string {
	switch c {
	case CallEnable:
		return "enable"
	case CallDisable:
		return "disable"
	default:
		return fmt.Sprintf("call(%d)", int(c))
	}
}

// Error is the error type reported by a Recorder.
type Error struct {
	Call Call
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Call, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Kind() regulator.ErrorKind {
	return regulator.KindOther
}

// Recorder is a Regulator that records every call made to it. The zero
// value is ready to use and starts out disabled.
type Recorder struct {
	// FailEnable and FailDisable, when set, are returned (wrapped in *Error)
	// from the matching operation. The call is still recorded but the state
	// does not change.
	FailEnable  error
	FailDisable error

	// Hold, when non-nil, makes each operation wait until Hold is closed
	// or the context is done before doing anything else.
	Hold chan struct{}

	mu      sync.Mutex
	calls   []Call
	enabled bool
}

var (
	_ regulator.Regulator = (*Recorder)(nil)
	_ regulator.ErrorType = (*Recorder)(nil)
)

func (r *Recorder) Enable(ctx context.Context) error {
	return r.do(ctx, CallEnable, r.FailEnable, true)
}

func (r *Recorder) Disable(ctx context.Context) error {
	return r.do(ctx, CallDisable, r.FailDisable, false)
}

func (r *Recorder) ErrorType() reflect.Type {
	return regulator.ErrorTypeOf[*Error]()
}

// Calls returns a copy of the calls recorded so far, oldest first.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Enabled reports the state left by the last successful call.
func (r *Recorder) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Reset forgets all recorded calls and returns to the disabled state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.enabled = false
}

func (r *Recorder) do(ctx context.Context, call Call, fail error, state bool) error {
	if r.Hold != nil {
		select {
		case <-r.Hold:
		case <-ctx.Done():
			r.record(call)
			return &Error{Call: call, Err: ctx.Err()}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if fail != nil {
		return &Error{Call: call, Err: fail}
	}
	r.enabled = state
	return nil
}

func (r *Recorder) record(call Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}
