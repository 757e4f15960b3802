package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nature/internal/model"
)

// Scenario defines a routing test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE spec directories to compile and load.
	// Relative paths are resolved against the scenario file's directory.
	Specs []string `yaml:"specs"`

	// Seed fixes the balancer's random source.
	Seed uint64 `yaml:"seed"`

	// Now is the routing clock in Unix seconds.
	Now int64 `yaml:"now"`

	// Instance is routed once.
	Instance InstanceSpec `yaml:"instance"`

	// Expect lists the missions routing must produce, in order.
	Expect []ExpectedMission `yaml:"expect"`

	// Error, when set, is a substring of the error routing must fail with.
	Error string `yaml:"error,omitempty"`
}

// InstanceSpec is the YAML form of the routed instance.
type InstanceSpec struct {
	ID         string            `yaml:"id"`
	Meta       string            `yaml:"meta"`
	Para       string            `yaml:"para,omitempty"`
	States     []string          `yaml:"states,omitempty"`
	Context    map[string]string `yaml:"context,omitempty"`
	SysContext map[string]string `yaml:"sys_context,omitempty"`
}

// Instance converts the spec to a model instance.
func (s InstanceSpec) Instance() model.Instance {
	return model.Instance{
		ID:         s.ID,
		Meta:       s.Meta,
		Para:       s.Para,
		States:     s.States,
		Context:    s.Context,
		SysContext: s.SysContext,
	}
}

// ExpectedMission is one expected routing outcome.
type ExpectedMission struct {
	// To is the downstream meta identifier.
	To string `yaml:"to"`

	// Executor is the chosen executor's URL.
	Executor string `yaml:"executor"`

	// Delay in seconds; nil skips the check.
	Delay *int `yaml:"delay,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
//
// Parameters:
//   - path: the scenario YAML file
//   - basePath: directory relative spec paths are joined to
//
// Absolute spec paths are kept as written.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec directory not found: %s", specPath)
		}
	}

	if s.Instance.Meta == "" {
		return fmt.Errorf("instance.meta is required")
	}

	for i, e := range s.Expect {
		if e.To == "" {
			return fmt.Errorf("expect[%d]: to is required", i)
		}
		if e.Executor == "" {
			return fmt.Errorf("expect[%d]: executor is required", i)
		}
	}

	return nil
}
