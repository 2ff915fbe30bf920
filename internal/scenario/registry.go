package scenario

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// Registry holds scenarios by name. It is plain data owned by whoever
// built it; callers pass it where it is needed.
type Registry struct {
	scenarios map[string]*Scenario
}

// NewRegistry returns a registry preloaded with the built-in conformance
// scenarios and the default sweep.
func NewRegistry() *Registry {
	r := &Registry{scenarios: make(map[string]*Scenario)}
	for _, s := range []*Scenario{NoMatch(), FullMatch(), CancelRoundTrip(), Sweep(nil)} {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Register validates a scenario and adds it. Registering a name twice is
// an error.
func (r *Registry) Register(s *Scenario) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, ok := r.scenarios[s.Name]; ok {
		return fmt.Errorf("%w: duplicate name %q", ErrScenario, s.Name)
	}
	r.scenarios[s.Name] = s
	return nil
}

// Get looks up a scenario by name.
func (r *Registry) Get(name string) (*Scenario, bool) {
	s, ok := r.scenarios[name]
	return s, ok
}

// Names lists the registered scenario names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile reads a scenario definition from a TOML file and validates it.
// The file shares the built-in shape: top-level name and description,
// [[steps]] tables and an optional [expect] table.
func LoadFile(path string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
