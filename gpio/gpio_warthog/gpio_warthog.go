package gpio_warthog

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/larsks/powerhal/gpio"
	"github.com/larsks/powerhal/regulator"
	"github.com/warthog618/go-gpiocdev"
)

const DefaultChip = "gpiochip0"

// Options configures an enable line regulator.
type Options struct {
	// Chip is the GPIO chip name or device path. Defaults to DefaultChip.
	Chip string `mapstructure:"chip"`

	// Pin is a pin specification accepted by gpio.ParsePin. Polarity and
	// drive are applied by the kernel.
	Pin string `mapstructure:"pin"`

	// InitiallyEnabled requests the line already driven to its on state.
	// Otherwise the line is requested in its off state.
	InitiallyEnabled bool `mapstructure:"initially-enabled"`

	Settle     time.Duration `mapstructure:"settle"`
	OffOnClose bool          `mapstructure:"off-on-close"`
}

// EnableLine is a regulator whose enable input is wired to a GPIO line,
// driven through the GPIO character device.
type EnableLine struct {
	name       string
	spec       *gpio.PinSpec
	line       *gpiocdev.Line
	settle     time.Duration
	offOnClose bool
	mu         sync.Mutex
}

var (
	_ regulator.Regulator = (*EnableLine)(nil)
	_ regulator.ErrorType = (*EnableLine)(nil)
)

// NewEnableLine requests the line named by opts.Pin as an output.
func NewEnableLine(name string, opts Options) (*EnableLine, error) {
	spec, err := gpio.ParsePin(opts.Pin)
	if err != nil {
		return nil, err
	}

	chipName := opts.Chip
	if chipName == "" {
		chipName = DefaultChip
	}

	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(name))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrGPIOChipOpenFailed, chipName, err)
	}
	// Requested lines stay valid after the chip is closed.
	defer chip.Close() //nolint:errcheck

	initial := 0
	if opts.InitiallyEnabled {
		initial = 1
	}

	line, err := chip.RequestLine(spec.LineNum, lineOptions(spec, initial)...)
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", ErrLineRequestFailed, spec.LineNum, err)
	}
	log.Printf("requested line %d on %s for regulator %s", spec.LineNum, chipName, name)

	return &EnableLine{
		name:       name,
		spec:       spec,
		line:       line,
		settle:     opts.Settle,
		offOnClose: opts.OffOnClose,
	}, nil
}

func lineOptions(spec *gpio.PinSpec, initial int) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(initial)}
	if spec.Polarity == gpio.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	switch spec.Drive {
	case gpio.OpenDrain:
		opts = append(opts, gpiocdev.AsOpenDrain)
	case gpio.OpenSource:
		opts = append(opts, gpiocdev.AsOpenSource)
	default:
		opts = append(opts, gpiocdev.AsPushPull)
	}
	return opts
}

func (l *EnableLine) Enable(ctx context.Context) error {
	log.Printf("enabling regulator %s", l)
	return l.set(ctx, "enable", 1)
}

func (l *EnableLine) Disable(ctx context.Context) error {
	log.Printf("disabling regulator %s", l)
	return l.set(ctx, "disable", 0)
}

func (l *EnableLine) ErrorType() reflect.Type {
	return regulator.ErrorTypeOf[*gpio.PinError]()
}

// Enabled reads the logical value of the line back from the kernel.
func (l *EnableLine) Enabled() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.line == nil {
		return false, l.fail("read", ErrClosed)
	}
	v, err := l.line.Value()
	if err != nil {
		return false, l.fail("read", fmt.Errorf("%w: %v", ErrGetValue, err))
	}
	return v == 1, nil
}

// Close releases the line. With off-on-close set the regulator is disabled
// first.
func (l *EnableLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.line == nil {
		return nil
	}

	log.Printf("closing regulator %s", l)
	if l.offOnClose {
		if err := l.line.SetValue(0); err != nil {
			log.Printf("failed to disable regulator %s on close: %s", l, err)
		}
	}

	err := l.line.Close()
	l.line = nil
	if err != nil {
		return l.fail("close", err)
	}
	return nil
}

func (l *EnableLine) String() string {
	return fmt.Sprintf("%s (%s)", l.name, l.spec)
}

func (l *EnableLine) set(ctx context.Context, op string, value int) error {
	if err := ctx.Err(); err != nil {
		return l.fail(op, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.line == nil {
		return l.fail(op, ErrClosed)
	}
	if err := l.line.SetValue(value); err != nil {
		return l.fail(op, fmt.Errorf("%w: %v", ErrSetValue, err))
	}
	if err := gpio.Settle(ctx, l.settle); err != nil {
		return l.fail(op, err)
	}
	return nil
}

func (l *EnableLine) fail(op string, err error) error {
	return &gpio.PinError{Op: op, Pin: fmt.Sprintf("GPIO%d", l.spec.LineNum), Err: err}
}
