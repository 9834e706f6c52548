//go:build integration && gpio
// +build integration,gpio

package gpio_warthog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiosim"
)

func TestEnableLineIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	sim, err := gpiosim.NewSimpleton(4)
	if err != nil {
		t.Skipf("gpio-sim not available: %v", err)
	}
	defer sim.Close()

	ctx := context.Background()

	t.Run("active_high", func(t *testing.T) {
		reg, err := NewEnableLine("vdd", Options{Chip: sim.DevPath(), Pin: "1", OffOnClose: true})
		require.NoError(t, err)
		defer reg.Close()

		level, err := sim.Level(1)
		require.NoError(t, err)
		assert.Equal(t, 0, level, "line starts off")

		require.NoError(t, reg.Enable(ctx))
		level, err = sim.Level(1)
		require.NoError(t, err)
		assert.Equal(t, 1, level)

		on, err := reg.Enabled()
		require.NoError(t, err)
		assert.True(t, on)

		require.NoError(t, reg.Disable(ctx))
		level, err = sim.Level(1)
		require.NoError(t, err)
		assert.Equal(t, 0, level)
	})

	t.Run("active_low", func(t *testing.T) {
		reg, err := NewEnableLine("vcore", Options{Chip: sim.DevPath(), Pin: "2:active-low"})
		require.NoError(t, err)
		defer reg.Close()

		level, err := sim.Level(2)
		require.NoError(t, err)
		assert.Equal(t, 1, level, "active-low line starts physically high")

		require.NoError(t, reg.Enable(ctx))
		level, err = sim.Level(2)
		require.NoError(t, err)
		assert.Equal(t, 0, level)
	})

	t.Run("initially_enabled", func(t *testing.T) {
		reg, err := NewEnableLine("vio", Options{Chip: sim.DevPath(), Pin: "3", InitiallyEnabled: true})
		require.NoError(t, err)
		defer reg.Close()

		on, err := reg.Enabled()
		require.NoError(t, err)
		assert.True(t, on)
	})
}
