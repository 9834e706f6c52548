package gpio

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/larsks/powerhal/regulator"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Options configures an enable pin regulator.
type Options struct {
	// Pin is a pin specification accepted by ParsePin.
	Pin string `mapstructure:"pin"`

	// Settle is how long Enable and Disable wait after changing the pin,
	// giving the regulator output time to rise or fall.
	Settle time.Duration `mapstructure:"settle"`

	// OffOnClose disables the regulator when it is closed.
	OffOnClose bool `mapstructure:"off-on-close"`
}

// EnablePin is a regulator whose enable input is wired to a GPIO pin,
// driven through periph.io.
type EnablePin struct {
	name       string
	pin        gpio.PinIO
	polarity   Polarity
	settle     time.Duration
	offOnClose bool
	mu         sync.Mutex
}

var (
	_ regulator.Regulator = (*EnablePin)(nil)
	_ regulator.ErrorType = (*EnablePin)(nil)
)

// NewEnablePin initializes periph.io and looks up the pin named by
// opts.Pin. The pin level is left untouched until the first Enable or
// Disable.
func NewEnablePin(name string, opts Options) (*EnablePin, error) {
	spec, err := ParsePin(opts.Pin)
	if err != nil {
		return nil, err
	}
	if spec.Drive != PushPull {
		return nil, fmt.Errorf("%w: periph.io pins only support push-pull drive, got %s", ErrUnsupported, spec.Drive)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPeriphInitFailed, err)
	}

	pin := gpioreg.ByName(spec.Name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, spec.Name)
	}

	return newEnablePin(name, pin, spec.Polarity, opts), nil
}

func newEnablePin(name string, pin gpio.PinIO, polarity Polarity, opts Options) *EnablePin {
	return &EnablePin{
		name:       name,
		pin:        pin,
		polarity:   polarity,
		settle:     opts.Settle,
		offOnClose: opts.OffOnClose,
	}
}

func (p *EnablePin) Enable(ctx context.Context) error {
	log.Printf("enabling regulator %s", p)
	return p.set(ctx, "enable", p.onLevel())
}

func (p *EnablePin) Disable(ctx context.Context) error {
	log.Printf("disabling regulator %s", p)
	return p.set(ctx, "disable", p.offLevel())
}

func (p *EnablePin) ErrorType() reflect.Type {
	return regulator.ErrorTypeOf[*PinError]()
}

// Enabled reports whether the pin is currently at its on level.
func (p *EnablePin) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pin.Read() == p.onLevel()
}

func (p *EnablePin) Close() error {
	log.Printf("closing regulator %s", p)
	if !p.offOnClose {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pin.Out(p.offLevel()); err != nil {
		return &PinError{Op: "close", Pin: p.pin.Name(), Err: fmt.Errorf("%w: %v", ErrSetLevel, err)}
	}
	return nil
}

func (p *EnablePin) String() string {
	return fmt.Sprintf("%s (%s:%s)", p.name, p.pin.Name(), p.polarity)
}

func (p *EnablePin) set(ctx context.Context, op string, level gpio.Level) error {
	if err := ctx.Err(); err != nil {
		return &PinError{Op: op, Pin: p.pin.Name(), Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.pin.Out(level); err != nil {
		return &PinError{Op: op, Pin: p.pin.Name(), Err: fmt.Errorf("%w: %v", ErrSetLevel, err)}
	}
	if err := Settle(ctx, p.settle); err != nil {
		return &PinError{Op: op, Pin: p.pin.Name(), Err: err}
	}
	return nil
}

func (p *EnablePin) onLevel() gpio.Level {
	if p.polarity == ActiveHigh {
		return gpio.High
	}
	return gpio.Low
}

func (p *EnablePin) offLevel() gpio.Level {
	return !p.onLevel()
}

// Settle waits for d to elapse or ctx to be done, whichever comes first. It
// returns ctx.Err() if the wait was cut short.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
