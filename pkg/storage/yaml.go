package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SaveYAMLFile serializes v to YAML and writes it atomically to path.
func SaveYAMLFile(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML for %q: %w", path, err)
	}
	if err := AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save YAML file %q: %w", path, err)
	}
	return nil
}

// LoadYAMLFile reads path and unmarshals its YAML content into v.
// v must be a pointer.
func LoadYAMLFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse YAML file %q: %w", path, err)
	}
	return nil
}
