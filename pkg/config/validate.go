package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// profileSchema constrains the shape of a profile document, independent of
// the stack grammar's own validation (which stack.BuildStack performs when
// the profile is actually composed).
const profileSchema = `{
  "type": "object",
  "required": ["name", "stack"],
  "properties": {
    "name":         {"type": "string", "minLength": 1},
    "stack":        {"type": "string", "minLength": 1},
    "adapter_type": {"type": "string", "enum": ["serial", "stdio", "stdin", "loop"]},
    "adapter_arg":  {"type": "string"},
    "bridge_host":  {"type": "string"},
    "bridge_port":  {"type": "integer", "minimum": 1, "maximum": 65535},
    "timeout_ms":   {"type": "integer", "minimum": 1}
  }
}`

// Validator validates JSON payloads against JSON Schema documents, caching
// compiled schemas keyed by their raw bytes.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewValidator creates a Validator with an empty cache.
func NewValidator() *Validator {
	return &Validator{cache: make(map[string]*jsonschema.Schema)}
}

// ValidateProfile validates a profile document against profileSchema.
func (v *Validator) ValidateProfile(payload map[string]any) error {
	return v.Validate(json.RawMessage(profileSchema), payload)
}

// Validate validates payload against the given JSON Schema document.
func (v *Validator) Validate(schemaDoc json.RawMessage, payload map[string]any) error {
	if len(schemaDoc) == 0 || string(schemaDoc) == "{}" || string(schemaDoc) == "null" {
		return nil
	}

	compiled, err := v.compile(schemaDoc)
	if err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}
	return compiled.Validate(payload)
}

func (v *Validator) compile(schemaDoc json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaDoc)

	v.mu.RLock()
	if s, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return s, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.cache[key]; ok {
		return s, nil
	}

	var schemaMap any
	if err := json.Unmarshal(schemaDoc, &schemaMap); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("profile.json", schemaMap); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile("profile.json")
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}
