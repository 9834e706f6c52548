package regulators

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/larsks/powerhal/regulator"
)

// DummyOptions represents dummy driver configuration
type DummyOptions struct {
	InitiallyEnabled bool `mapstructure:"initially-enabled"`
}

// DummyFactory implements Factory for dummy regulators
type DummyFactory struct{}

// Create creates a new dummy regulator
func (f *DummyFactory) Create(name string, options map[string]any) (regulator.Regulator, error) {
	var opts DummyOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to parse dummy options: %w", err)
	}
	return NewDummy(name, opts), nil
}

// ValidateConfig validates dummy options
func (f *DummyFactory) ValidateConfig(options map[string]any) error {
	var opts DummyOptions
	return decodeOptions(options, &opts)
}

// Dummy is an in-memory regulator for testing and for running without
// hardware. Its operations cannot fail.
type Dummy struct {
	name    string
	enabled bool
	mutex   sync.RWMutex
}

var (
	_ regulator.Regulator = (*Dummy)(nil)
	_ regulator.ErrorType = (*Dummy)(nil)
)

// NewDummy creates a new dummy regulator
func NewDummy(name string, opts DummyOptions) *Dummy {
	return &Dummy{
		name:    name,
		enabled: opts.InitiallyEnabled,
	}
}

// Enable marks the regulator enabled. It always returns nil.
func (d *Dummy) Enable(context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	log.Printf("enabling dummy regulator %s", d.name)
	d.enabled = true
	return nil
}

// Disable marks the regulator disabled. It always returns nil.
func (d *Dummy) Disable(context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	log.Printf("disabling dummy regulator %s", d.name)
	d.enabled = false
	return nil
}

func (d *Dummy) ErrorType() reflect.Type {
	return regulator.ErrorTypeOf[regulator.Infallible]()
}

// Enabled returns the current state of the regulator
func (d *Dummy) Enabled() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.enabled
}

// String returns a string representation of the regulator
func (d *Dummy) String() string {
	return fmt.Sprintf("dummy:%s", d.name)
}

func init() {
	MustRegister("dummy", &DummyFactory{})
}
