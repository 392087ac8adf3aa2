package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ExtractJSON strips markdown code fences that models wrap around JSON output
// despite instructions not to, and trims to the outermost JSON value.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	// Some models prepend prose before the JSON body.
	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}
	return s
}

// ValidateJSONAgainstSchema checks raw JSON against a schema given as a
// generic map (the same map we embed in prompts).
func ValidateJSONAgainstSchema(schema map[string]any, raw []byte) error {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiled, err := jsonschema.CompileString("schema.json", string(schemaBytes))
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return compiled.Validate(doc)
}

// SanitizeUnknownFields drops top-level keys that are not declared in the
// schema's properties, returning the cleaned JSON and the dropped key names.
// Used as a lenient second pass before failing validation outright.
func SanitizeUnknownFields(schema map[string]any, raw []byte) ([]byte, []string, error) {
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		return raw, nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("invalid json: %w", err)
	}
	var dropped []string
	for k := range doc {
		if _, ok := props[k]; !ok {
			dropped = append(dropped, k)
			delete(doc, k)
		}
	}
	cleaned, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	return cleaned, dropped, nil
}

// DecodeStrict extracts JSON from a model response, validates it against the
// schema (with the lenient unknown-field pass), and unmarshals into out.
func DecodeStrict(schema map[string]any, response string, out any) error {
	raw := []byte(ExtractJSON(response))
	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		cleaned, _, sErr := SanitizeUnknownFields(schema, raw)
		if sErr != nil {
			return fmt.Errorf("schema validation failed: %w", err)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return fmt.Errorf("schema validation failed: %w", vErr)
		}
		raw = cleaned
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal model output: %w", err)
	}
	return nil
}
