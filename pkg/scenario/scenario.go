// Package scenario runs declarative browser automation scenarios: a JSON
// document naming a sequence of actions that execute in order through one
// runner and its shared state, halting at the first failure unless a step
// opts out. Scenarios are the file-driven face of the action surface; the
// gateway and CLI both feed this package.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/harun/rudder/pkg/actions"
)

// Step is one scenario entry: an action name, its parameters, and whether a
// failure of this step should stop the run.
type Step struct {
	Action          string                 `json:"action"`
	Params          map[string]interface{} `json:"params,omitempty"`
	ContinueOnError bool                   `json:"continue_on_error,omitempty"`
}

// Scenario is a named sequence of steps. Context entries seed the run state
// before the first step, so selector templates can reference them as {key}.
type Scenario struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	Steps       []Step            `json:"steps"`
}

// Loader loads and validates scenario documents.
type Loader struct {
	logger zerolog.Logger
	schema gojsonschema.JSONLoader
}

// NewLoader creates a scenario loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "scenario-loader").Logger(),
		schema: gojsonschema.NewStringLoader(Schema),
	}
}

// Load reads and validates a scenario from a file.
func (l *Loader) Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return l.Parse(data)
}

// Parse validates and decodes a scenario document. The schema runs against
// the raw document before the typed decode, so a well-formed document with
// the wrong shape reports a schema violation rather than a decode error.
func (l *Loader) Parse(data []byte) (*Scenario, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}

	if err := l.validateSchema(data); err != nil {
		return nil, fmt.Errorf("scenario schema validation failed: %w", err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}

	l.logger.Debug().
		Str("scenario", s.Name).
		Int("steps", len(s.Steps)).
		Msg("Loaded scenario")

	return &s, nil
}

// validateSchema validates the raw document against the scenario schema.
func (l *Loader) validateSchema(data []byte) error {
	documentLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(l.schema, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for i, err := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += err.String()
		}
		return fmt.Errorf("schema validation errors: %s", errMsg)
	}

	return nil
}

// ValidateActions checks every step against the action registry: the action
// must exist and its parameters must pass the action's schema. Used by the
// validate command and by the runner before the first step executes.
func ValidateActions(s *Scenario, registry *actions.Registry) error {
	for i, step := range s.Steps {
		if registry.Get(step.Action) == nil {
			return fmt.Errorf("step %d: unknown action: %s", i, step.Action)
		}
		if err := registry.ValidateParams(step.Action, step.Params); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}
	return nil
}
