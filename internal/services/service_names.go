package services

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed service_names.yaml
var defaultServiceNames []byte

// ServiceNames maps numeric service ids to display names and counts lookups that missed
type ServiceNames struct {
	names map[int]string

	mu       sync.Mutex
	unmapped map[int]int64
}

type serviceNamesFile struct {
	Services map[int]string `yaml:"services"`
}

// LoadServiceNames reads the table from path, or the embedded table when path is empty
func LoadServiceNames(path string) (*ServiceNames, error) {
	raw := defaultServiceNames
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read service names file: %w", err)
		}
		raw = data
	}
	return ParseServiceNames(raw)
}

// ParseServiceNames parses a YAML service name table
func ParseServiceNames(raw []byte) (*ServiceNames, error) {
	var file serviceNamesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse service names: %w", err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("service names table is empty")
	}
	return &ServiceNames{
		names:    file.Services,
		unmapped: make(map[int]int64),
	}, nil
}

// Lookup returns the display name for id. Misses are counted.
func (n *ServiceNames) Lookup(id int) (string, bool) {
	name, ok := n.names[id]
	if !ok {
		n.mu.Lock()
		n.unmapped[id]++
		n.mu.Unlock()
	}
	return name, ok
}

// Unmapped returns a snapshot of the ids that had no display name and how often they were seen
func (n *ServiceNames) Unmapped() map[int]int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make(map[int]int64, len(n.unmapped))
	for id, count := range n.unmapped {
		out[id] = count
	}
	return out
}
