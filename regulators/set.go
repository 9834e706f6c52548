package regulators

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/larsks/powerhal/config"
	"github.com/larsks/powerhal/regulator"
)

// Set holds the regulators described by a config.Config, by name. It only
// owns their lifetime; it imposes no ordering on enabling or disabling them.
type Set struct {
	names      []string
	regulators map[string]regulator.Regulator
}

// Open creates every regulator in cfg using the default registry
func Open(cfg *config.Config) (*Set, error) {
	return defaultRegistry.Open(cfg)
}

// Open creates every regulator in cfg. If any regulator cannot be created,
// those already created are closed and the error is returned.
func (r *Registry) Open(cfg *config.Config) (*Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, rc := range cfg.Regulators {
		if err := r.ValidateConfig(rc.Driver, rc.Options); err != nil {
			return nil, fmt.Errorf("regulator %s: %w", rc.Name, err)
		}
	}

	set := &Set{
		regulators: make(map[string]regulator.Regulator, len(cfg.Regulators)),
	}

	for _, rc := range cfg.Regulators {
		reg, err := r.Create(rc.Driver, rc.Name, rc.Options)
		if err != nil {
			if cerr := set.Close(); cerr != nil {
				log.Printf("failed to close regulators: %v", cerr)
			}
			return nil, fmt.Errorf("failed to create regulator %s: %w", rc.Name, err)
		}

		log.Printf("created regulator %s (driver %s)", rc.Name, rc.Driver)
		set.names = append(set.names, rc.Name)
		set.regulators[rc.Name] = reg
	}

	return set, nil
}

// Get returns the named regulator
func (s *Set) Get(name string) (regulator.Regulator, error) {
	reg, exists := s.regulators[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRegulator, name)
	}
	return reg, nil
}

// Names returns the regulator names in configuration order
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Close closes every regulator that implements io.Closer and returns the
// joined errors. The set is empty afterwards.
func (s *Set) Close() error {
	var errs []error
	for _, name := range s.names {
		if closer, ok := s.regulators[name].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}

	s.names = nil
	s.regulators = map[string]regulator.Regulator{}
	return errors.Join(errs...)
}
