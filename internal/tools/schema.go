package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ParamType is the declared type of a tool parameter.
type ParamType string

// Parameter types understood by the schema builder and the normalizer.
const (
	TypeString     ParamType = "string"
	TypeInteger    ParamType = "integer"
	TypeNumber     ParamType = "number"
	TypeBoolean    ParamType = "boolean"
	TypeNumberList ParamType = "number_list"
)

// Param declares one keyword argument of a tool.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Default     any
	Description string
}

// Spec declares a tool: its name, category and parameters.
type Spec struct {
	Name        string
	Category    string
	Description string
	Params      []Param
}

// Param returns the declared parameter called name.
func (s Spec) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Signature renders the spec as "name(a: string, b: integer = 5)".
func (s Spec) Signature() string {
	parts := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		part := fmt.Sprintf("%s: %s", p.Name, p.Type)
		if !p.Required && p.Default != nil {
			part += fmt.Sprintf(" = %v", p.Default)
		}
		parts = append(parts, part)
	}
	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(parts, ", "))
}

// JSONSchema returns the JSON schema of the tool's argument object.
func (s Spec) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Params))
	required := make([]any, 0)
	for _, p := range s.Params {
		prop := map[string]any{}
		switch p.Type {
		case TypeNumberList:
			prop["type"] = []any{"array", "string"}
			prop["items"] = map[string]any{"type": "number"}
		default:
			prop["type"] = string(p.Type)
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func compileSchema(spec Spec) (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.JSONSchema()))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", spec.Name, err)
	}
	return schema, nil
}

// validateArgs checks args against schema and returns a sorted, joined description
// of every violation.
func validateArgs(schema *gojsonschema.Schema, args map[string]any) (string, bool) {
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err.Error(), false
	}
	if result.Valid() {
		return "", true
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)
	return strings.Join(errs, "; "), false
}
