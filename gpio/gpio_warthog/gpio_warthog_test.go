package gpio_warthog

import (
	"context"
	"testing"

	"github.com/larsks/powerhal/gpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiocdev"
)

func TestLineOptions(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		initial int
		want    []gpiocdev.LineReqOption
	}{
		{
			name: "defaults",
			spec: "GPIO17",
			want: []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.AsPushPull},
		},
		{
			name:    "active low initially on",
			spec:    "GPIO17:active-low",
			initial: 1,
			want:    []gpiocdev.LineReqOption{gpiocdev.AsOutput(1), gpiocdev.AsActiveLow, gpiocdev.AsPushPull},
		},
		{
			name: "open drain",
			spec: "17:open-drain",
			want: []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.AsOpenDrain},
		},
		{
			name: "open source active low",
			spec: "17:active-low:open-source",
			want: []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.AsActiveLow, gpiocdev.AsOpenSource},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := gpio.ParsePin(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, lineOptions(spec, tt.initial))
		})
	}
}

func TestNewEnableLine_InvalidSpec(t *testing.T) {
	_, err := NewEnableLine("vdd", Options{Pin: "not-a-pin"})
	assert.ErrorIs(t, err, gpio.ErrInvalidPinSpec)
}

func TestNewEnableLine_MissingChip(t *testing.T) {
	_, err := NewEnableLine("vdd", Options{Chip: "/dev/does-not-exist", Pin: "GPIO1"})
	assert.ErrorIs(t, err, ErrGPIOChipOpenFailed)
}

func TestEnableLine_Closed(t *testing.T) {
	spec, err := gpio.ParsePin("GPIO3")
	require.NoError(t, err)
	l := &EnableLine{name: "vdd", spec: spec}

	err = l.Enable(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	_, err = l.Enabled()
	assert.ErrorIs(t, err, ErrClosed)

	assert.NoError(t, l.Close(), "closing twice is harmless")
	assert.Equal(t, "vdd (GPIO3:active-high:push-pull)", l.String())
}
