package prompt

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Schema types understood by Validate.
const (
	TypeObject  = "object"
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeArray   = "array"
)

// Schema is the subset of JSON Schema used by prompt inputs and outputs.
type Schema struct {
	Type        string             `yaml:"type" json:"type"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Properties  map[string]*Schema `yaml:"properties,omitempty" json:"properties,omitempty"`
	Required    []string           `yaml:"required,omitempty" json:"required,omitempty"`
	Items       *Schema            `yaml:"items,omitempty" json:"items,omitempty"`
}

// PropertyNames returns the property names in sorted order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError reports the first mismatch between a value and a schema.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// Validate checks a decoded JSON value (maps, slices, float64, string, bool)
// against the schema.
func (s *Schema) Validate(value any) error {
	return s.validate("", value)
}

func (s *Schema) check() error {
	switch s.Type {
	case TypeObject:
		for _, name := range s.Required {
			if _, ok := s.Properties[name]; !ok {
				return fmt.Errorf("required property %q is not declared", name)
			}
		}
		for _, name := range s.PropertyNames() {
			if err := s.Properties[name].check(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	case TypeArray:
		if s.Items == nil {
			return fmt.Errorf("array schema without items")
		}
		return s.Items.check()
	case TypeString, TypeBoolean, TypeNumber, TypeInteger:
	default:
		return fmt.Errorf("unsupported schema type %q", s.Type)
	}
	return nil
}

func (s *Schema) validate(path string, value any) error {
	fail := func(format string, args ...any) error {
		return &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)}
	}

	switch s.Type {
	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return fail("expected object, got %s", kindOf(value))
		}
		for _, name := range s.Required {
			if v, ok := obj[name]; !ok || v == nil {
				return &ValidationError{Path: join(path, name), Message: "required property missing"}
			}
		}
		for _, name := range s.PropertyNames() {
			v, ok := obj[name]
			if !ok || v == nil {
				continue
			}
			if err := s.Properties[name].validate(join(path, name), v); err != nil {
				return err
			}
		}
	case TypeArray:
		arr, ok := value.([]any)
		if !ok {
			return fail("expected array, got %s", kindOf(value))
		}
		for i, v := range arr {
			if err := s.Items.validate(fmt.Sprintf("%s[%d]", path, i), v); err != nil {
				return err
			}
		}
	case TypeString:
		if _, ok := value.(string); !ok {
			return fail("expected string, got %s", kindOf(value))
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fail("expected boolean, got %s", kindOf(value))
		}
	case TypeNumber:
		if _, ok := value.(float64); !ok {
			return fail("expected number, got %s", kindOf(value))
		}
	case TypeInteger:
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			return fail("expected integer, got %s", kindOf(value))
		}
	default:
		return fail("unsupported schema type %q", s.Type)
	}
	return nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
	}
}
