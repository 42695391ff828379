package cafe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Flatten rewrites a content API payload into the flat shape the rest of the
// package decodes. Objects of the form {id, attributes:{...}} are merged into a
// single object and relation envelopes {data: X} (optionally with meta) are
// replaced by X. The rewrite is applied recursively.
func Flatten(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("cafe: flatten: %w", err)
	}
	out, err := json.Marshal(flattenValue(v))
	if err != nil {
		return nil, fmt.Errorf("cafe: flatten: %w", err)
	}
	return out, nil
}

func flattenValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = flattenValue(el)
		}
		return out
	case map[string]any:
		if inner, ok := relationEnvelope(t); ok {
			return flattenValue(inner)
		}
		src := t
		if attrs, ok := t["attributes"].(map[string]any); ok {
			merged := make(map[string]any, len(attrs)+len(t))
			for k, val := range attrs {
				merged[k] = val
			}
			for k, val := range t {
				if k == "attributes" {
					continue
				}
				if _, exists := merged[k]; !exists {
					merged[k] = val
				}
			}
			src = merged
		}
		out := make(map[string]any, len(src))
		for k, val := range src {
			out[k] = flattenValue(val)
		}
		return out
	default:
		return v
	}
}

func relationEnvelope(m map[string]any) (any, bool) {
	data, ok := m["data"]
	if !ok {
		return nil, false
	}
	switch len(m) {
	case 1:
		return data, true
	case 2:
		if _, ok := m["meta"]; ok {
			return data, true
		}
	}
	return nil, false
}

func rawArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var out []json.RawMessage
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, false
	}
	return out, true
}
