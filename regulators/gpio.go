package regulators

import (
	"fmt"

	"github.com/larsks/powerhal/gpio"
	"github.com/larsks/powerhal/gpio/gpio_warthog"
	"github.com/larsks/powerhal/regulator"
)

// GPIOFactory creates enable pin regulators driven through periph.io
type GPIOFactory struct{}

func (f *GPIOFactory) Create(name string, options map[string]any) (regulator.Regulator, error) {
	opts, err := f.parseConfig(options)
	if err != nil {
		return nil, err
	}
	reg, err := gpio.NewEnablePin(name, *opts)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (f *GPIOFactory) ValidateConfig(options map[string]any) error {
	_, err := f.parseConfig(options)
	return err
}

func (f *GPIOFactory) parseConfig(options map[string]any) (*gpio.Options, error) {
	opts := &gpio.Options{}
	if err := decodeOptions(options, opts); err != nil {
		return nil, fmt.Errorf("failed to parse gpio options: %w", err)
	}
	spec, err := gpio.ParsePin(opts.Pin)
	if err != nil {
		return nil, err
	}
	if spec.Drive != gpio.PushPull {
		return nil, fmt.Errorf("%w: gpio driver only supports push-pull, use gpiocdev", gpio.ErrUnsupported)
	}
	return opts, nil
}

// GPIOCdevFactory creates enable line regulators driven through the GPIO
// character device
type GPIOCdevFactory struct{}

func (f *GPIOCdevFactory) Create(name string, options map[string]any) (regulator.Regulator, error) {
	opts, err := f.parseConfig(options)
	if err != nil {
		return nil, err
	}
	reg, err := gpio_warthog.NewEnableLine(name, *opts)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (f *GPIOCdevFactory) ValidateConfig(options map[string]any) error {
	_, err := f.parseConfig(options)
	return err
}

func (f *GPIOCdevFactory) parseConfig(options map[string]any) (*gpio_warthog.Options, error) {
	opts := &gpio_warthog.Options{}
	if err := decodeOptions(options, opts); err != nil {
		return nil, fmt.Errorf("failed to parse gpiocdev options: %w", err)
	}
	if _, err := gpio.ParsePin(opts.Pin); err != nil {
		return nil, err
	}
	return opts, nil
}

func init() {
	MustRegister("gpio", &GPIOFactory{})
	MustRegister("gpiocdev", &GPIOCdevFactory{})
}
