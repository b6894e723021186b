package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// argValidator checks tool-call arguments against the tool's JSON schema.
// Compiled schemas are cached by tool name.
type argValidator struct {
	cache sync.Map // map[string]*gojsonschema.Schema
}

func (v *argValidator) validate(tool *Tool, argsJSON string) error {
	schema, err := v.schemaFor(tool)
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", tool.Name, err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(argsJSON))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(errs, "; "))
}

func (v *argValidator) schemaFor(tool *Tool) (*gojsonschema.Schema, error) {
	if cached, ok := v.cache.Load(tool.Name); ok {
		return cached.(*gojsonschema.Schema), nil
	}
	raw, err := json.Marshal(tool.Parameters)
	if err != nil {
		return nil, err
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	v.cache.Store(tool.Name, schema)
	return schema, nil
}
