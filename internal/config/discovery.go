package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DiscoveryFile is the on-disk shape of the discovery configuration.
// Empty lists fall back to the built-in defaults at wiring time.
type DiscoveryFile struct {
	Discovery struct {
		Queries   []string `yaml:"queries"`
		Seeds     []string `yaml:"seeds"`
		Blocklist []string `yaml:"blocklist"`
	} `yaml:"discovery"`
}

// LoadDiscovery loads the discovery query set from a YAML file.
func LoadDiscovery(path string) (*DiscoveryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read discovery file: %w", err)
	}

	var file DiscoveryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse discovery file: %w", err)
	}
	for i, q := range file.Discovery.Queries {
		if q == "" {
			return nil, fmt.Errorf("discovery query %d is empty", i)
		}
	}
	return &file, nil
}
