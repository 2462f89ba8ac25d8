package actions

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func compileParamSchema(key string, params []Param) (*jsonschema.Schema, error) {
	properties := make(map[string]any, len(params))
	for _, p := range params {
		if p.Key == "" {
			return nil, fmt.Errorf("action %q: param key must not be empty", key)
		}
		properties[p.Key] = map[string]any{"type": jsonType(p.Type)}
	}

	doc, err := json.Marshal(map[string]any{
		"type":       "object",
		"properties": properties,
	})
	if err != nil {
		return nil, fmt.Errorf("action %q: marshal param schema: %w", key, err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://dsync.shop.local/actions/%s.schema.json", url.PathEscape(key))
	if err := c.AddResource(schemaURL, strings.NewReader(string(doc))); err != nil {
		return nil, fmt.Errorf("action %q: param schema load failed: %w", key, err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("action %q: param schema compile failed: %w", key, err)
	}
	return schema, nil
}

// jsonType maps an admin form input type to a JSON Schema type.
func jsonType(inputType string) string {
	switch inputType {
	case "number", "range":
		return "number"
	case "checkbox":
		return "boolean"
	default:
		return "string"
	}
}
