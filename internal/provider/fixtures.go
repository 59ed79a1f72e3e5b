package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFixtures builds a memory provider from a YAML file keyed by symbol.
func LoadFixtures(path string) (*Memory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var set map[string]Fixture
	if err := yaml.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	m := NewMemory()
	for symbol, f := range set {
		m.Put(symbol, f)
	}
	return m, nil
}
