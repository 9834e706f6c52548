package regulators

import (
	"fmt"
	"sort"
	"sync"

	"github.com/larsks/powerhal/regulator"
	"github.com/mitchellh/mapstructure"
)

// Factory creates a regulator from driver options
type Factory interface {
	Create(name string, options map[string]any) (regulator.Regulator, error)
	ValidateConfig(options map[string]any) error
}

// Registry manages driver factories
type Registry struct {
	drivers map[string]Factory
	mu      sync.RWMutex
}

// NewRegistry creates a new driver registry
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[string]Factory),
	}
}

// Register adds a driver factory to the registry
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.drivers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDriverExists, name)
	}

	r.drivers[name] = factory
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Create creates the regulator called name using the given driver
func (r *Registry) Create(driverName, name string, options map[string]any) (regulator.Regulator, error) {
	factory, err := r.lookup(driverName)
	if err != nil {
		return nil, err
	}
	return factory.Create(name, options)
}

// ValidateConfig validates options for the given driver
func (r *Registry) ValidateConfig(driverName string, options map[string]any) error {
	factory, err := r.lookup(driverName)
	if err != nil {
		return err
	}
	return factory.ValidateConfig(options)
}

// ListDrivers returns the sorted names of all registered drivers
func (r *Registry) ListDrivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(driverName string) (Factory, error) {
	r.mu.RLock()
	factory, exists := r.drivers[driverName]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driverName)
	}
	return factory, nil
}

// Default registry instance
var defaultRegistry = NewRegistry()

// Register adds a driver factory to the default registry
func Register(name string, factory Factory) error {
	return defaultRegistry.Register(name, factory)
}

// MustRegister adds a driver factory to the default registry, panicking if
// the name is taken
func MustRegister(name string, factory Factory) {
	defaultRegistry.MustRegister(name, factory)
}

// Create creates a regulator using the default registry
func Create(driverName, name string, options map[string]any) (regulator.Regulator, error) {
	return defaultRegistry.Create(driverName, name, options)
}

// ValidateConfig validates driver options using the default registry
func ValidateConfig(driverName string, options map[string]any) error {
	return defaultRegistry.ValidateConfig(driverName, options)
}

// ListDrivers returns the names of all drivers in the default registry
func ListDrivers() []string {
	return defaultRegistry.ListDrivers()
}

// decodeOptions decodes a driver options table into out. Unknown keys are
// rejected; strings are accepted for numbers, booleans and durations.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}
