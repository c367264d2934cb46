package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// ParamSpec describes one parameter of an action definition.
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Handler runs one validated action invocation.
type Handler func(ctx context.Context, params Params) (interface{}, error)

// Definition describes a named action: its parameters, for discovery and
// schema validation, and the handler that runs it.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []ParamSpec `json:"parameters"`
	Handler     Handler     `json:"-"`
}

// Registry holds action definitions keyed by name. Each definition carries a
// generated JSON Schema that rejects unknown and mistyped parameters before
// the handler runs; presence checks for required parameters stay in the
// handlers so their errors can say exactly what is missing.
type Registry struct {
	mu      sync.RWMutex
	defs    map[string]*Definition
	schemas map[string]*gojsonschema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:    make(map[string]*Definition),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Register validates and adds an action definition.
func (r *Registry) Register(def Definition) error {
	if err := validateDefinition(def); err != nil {
		return fmt.Errorf("invalid action definition: %w", err)
	}

	schema, err := paramsSchema(def)
	if err != nil {
		return fmt.Errorf("failed to generate schema for %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("action %s is already registered", def.Name)
	}

	r.defs[def.Name] = &def
	r.schemas[def.Name] = schema

	log.Debug().Str("action", def.Name).Msg("Action registered")

	return nil
}

// Get returns the named definition, or nil when unknown.
func (r *Registry) Get(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defs[name]
}

// List returns all definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, *def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns all registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateParams checks raw parameters against the action's schema.
func (r *Registry) ValidateParams(name string, params map[string]interface{}) error {
	r.mu.RLock()
	schema := r.schemas[name]
	r.mu.RUnlock()

	if schema == nil {
		return configErrorf("unknown action: %s", name)
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	res, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return configErrorf("parameter validation failed: %v", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, desc := range res.Errors() {
			msgs = append(msgs, desc.String())
		}
		return configErrorf("parameter validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func validateDefinition(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("action name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("action description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("action handler cannot be nil")
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if param.Type == "" {
			return fmt.Errorf("parameter type cannot be empty for %s", param.Name)
		}
		if param.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		}
		if !validParamTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
	}
	return nil
}

var validParamTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

// paramsSchema builds the JSON Schema used to validate raw parameters. The
// schema never marks parameters as required; see Registry.
func paramsSchema(def Definition) (*gojsonschema.Schema, error) {
	properties := make(map[string]interface{}, len(def.Parameters))
	for _, param := range def.Parameters {
		properties[param.Name] = map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}
