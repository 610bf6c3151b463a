package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sift/internal/filter"
)

// Suite is a YAML file bundling named filters (and optional selection
// paths) for one entity, e.g.:
//
//	entity: User
//	filters:
//	  - name: adults
//	    filter:
//	      age: {gte: 18}
//	    selections: ["group.name"]
//	  - name: recent-admins
//	    query:
//	      "role[eq]": "admin"
//	      "createdAt.gte": "2024-01-01"
type Suite struct {
	// Entity names the schema the suite's filters compile against.
	Entity string `yaml:"entity"`

	// Filters are the suite entries, compiled in order.
	Filters []SuiteFilter `yaml:"filters"`
}

// SuiteFilter is one suite entry. Exactly one of Filter (a structured
// filter object) or Query (flat query-string parameters) must be set.
type SuiteFilter struct {
	Name       string             `yaml:"name"`
	Filter     map[string]any     `yaml:"filter,omitempty"`
	Query      map[string]string  `yaml:"query,omitempty"`
	Selections []string           `yaml:"selections,omitempty"`
	Pagination *filter.Pagination `yaml:"pagination,omitempty"`
}

// LoadSuite reads and validates a suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse suite file %s: %w", path, err)
	}

	if suite.Entity == "" {
		return nil, fmt.Errorf("suite file %s: entity is required", path)
	}
	if len(suite.Filters) == 0 {
		return nil, fmt.Errorf("suite file %s: at least one filter is required", path)
	}
	for i, sf := range suite.Filters {
		if sf.Name == "" {
			return nil, fmt.Errorf("suite file %s: filter %d has no name", path, i)
		}
		if (sf.Filter == nil) == (sf.Query == nil) {
			return nil, fmt.Errorf("suite file %s: filter %q must set exactly one of filter or query", path, sf.Name)
		}
	}

	return &suite, nil
}
