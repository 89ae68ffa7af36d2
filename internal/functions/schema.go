package functions

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ParameterType is the wire name of a parameter's kind.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeBoolean ParameterType = "boolean"
	TypeObject  ParameterType = "object"
	TypeArray   ParameterType = "array"
)

// Parameter describes one argument of a callable function. Enumerations are
// strings with EnumValues set; arrays carry ArrayItem and objects carry
// ObjectProperties.
type Parameter struct {
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	IsRequired       bool          `json:"isRequired"`
	Type             ParameterType `json:"type"`
	EnumValues       []string      `json:"enumValues,omitempty"`
	ObjectProperties []Parameter   `json:"objectParameterProperties,omitempty"`
	ArrayItem        *Parameter    `json:"arrayItemParameter,omitempty"`
}

// Function is the published description of one callable function.
type Function struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Arguments is implemented by every argument type bound in the dispatch
// table. Parameters lists the fields in declaration order.
type Arguments interface {
	Parameters() []Parameter
}

func newParameter(name, description string, required bool, typ ParameterType) Parameter {
	if description == "" {
		description = name
	}
	return Parameter{Name: name, Description: description, IsRequired: required, Type: typ}
}

func String(name, description string, required bool) Parameter {
	return newParameter(name, description, required, TypeString)
}

func Number(name, description string, required bool) Parameter {
	return newParameter(name, description, required, TypeNumber)
}

func Boolean(name, description string, required bool) Parameter {
	return newParameter(name, description, required, TypeBoolean)
}

// Enum is a string parameter restricted to values.
func Enum(name, description string, required bool, values ...string) Parameter {
	p := newParameter(name, description, required, TypeString)
	p.EnumValues = values
	return p
}

// Array is a list parameter whose elements are described by item.
func Array(name, description string, required bool, item Parameter) Parameter {
	p := newParameter(name, description, required, TypeArray)
	p.ArrayItem = &item
	return p
}

// Object is a nested parameter with its own properties.
func Object(name, description string, required bool, properties ...Parameter) Parameter {
	p := newParameter(name, description, required, TypeObject)
	p.ObjectProperties = properties
	return p
}

// Describe returns the parameter list of the argument type T.
func Describe[T Arguments]() []Parameter {
	var zero T
	return zero.Parameters()
}

// JSONSchema renders params as a JSON Schema object document.
func JSONSchema(params []Parameter) map[string]any {
	properties := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		properties[p.Name] = propertySchema(p)
		if p.IsRequired {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func propertySchema(p Parameter) map[string]any {
	var out map[string]any
	switch p.Type {
	case TypeObject:
		out = JSONSchema(p.ObjectProperties)
	case TypeArray:
		out = map[string]any{"type": string(TypeArray)}
		if p.ArrayItem != nil {
			out["items"] = propertySchema(*p.ArrayItem)
		}
	default:
		out = map[string]any{"type": string(p.Type)}
		if len(p.EnumValues) > 0 {
			out["enum"] = p.EnumValues
		}
	}
	out["description"] = p.Description
	return out
}

// compileSchema builds a validator for the parameters of function name. The
// schema lives under a fixed mem:// URL so validation errors never carry a
// filesystem path.
func compileSchema(name string, params []Parameter) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(JSONSchema(params))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	url := schemaURL(name)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func schemaURL(name string) string {
	return "mem:///functions/" + name + ".json"
}
