package story

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReadFile reads a story from a YAML file, normalizes and validates it.
func ReadFile(path string) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Story
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteFile writes a story to a YAML file.
func WriteFile(s *Story, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
