package regulatortest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/larsks/powerhal/regulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_EnableThenDisable(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()

	require.NoError(t, r.Enable(ctx))
	assert.True(t, r.Enabled())

	require.NoError(t, r.Disable(ctx))
	assert.False(t, r.Enabled())

	assert.Equal(t, []Call{CallEnable, CallDisable}, r.Calls())
}

func TestRecorder_Failures(t *testing.T) {
	errBus := errors.New("bus fault")
	r := &Recorder{FailEnable: errBus}

	err := r.Enable(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBus)
	assert.False(t, r.Enabled(), "failed enable must not change state")
	assert.Equal(t, regulator.KindOther, regulator.Kind(err))

	rerr, ok := regulator.As[*Error](err)
	require.True(t, ok)
	assert.Equal(t, CallEnable, rerr.Call)

	assert.Equal(t, []Call{CallEnable}, r.Calls())
}

func TestRecorder_HoldHonoursContext(t *testing.T) {
	r := &Recorder{Hold: make(chan struct{})}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Enable(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, r.Enabled())
}

func TestRecorder_HoldRelease(t *testing.T) {
	r := &Recorder{Hold: make(chan struct{})}

	done := regulator.Async(context.Background(), r.Enable)
	select {
	case <-done:
		t.Fatal("Enable returned before Hold was released")
	case <-time.After(10 * time.Millisecond):
	}

	close(r.Hold)
	require.NoError(t, <-done)
	assert.True(t, r.Enabled())
}

func TestRecorder_Reset(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Enable(context.Background()))

	r.Reset()
	assert.Empty(t, r.Calls())
	assert.False(t, r.Enabled())
}

func TestCallString(t *testing.T) {
	assert.Equal(t, "enable", CallEnable.String())
	assert.Equal(t, "disable", CallDisable.String())
	assert.Equal(t, "call(7)", Call(7).String())
}
