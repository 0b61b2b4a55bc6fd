package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// ValidateSettings validates decoded settings against the embedded JSON schema.
func ValidateSettings(settings map[string]any) error {
	return validate(gojsonschema.NewGoLoader(settings))
}

// ValidateJSON validates a raw config document.
func ValidateJSON(raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("config is not valid JSON")
	}
	return validate(gojsonschema.NewBytesLoader(raw))
}

func validate(doc gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, doc)
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	sort.Strings(msgs)
	return fmt.Errorf("config schema validation failed: %s", strings.Join(msgs, "; "))
}
