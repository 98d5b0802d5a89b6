package cerfa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// DecodeFormData parses a ContractFormData document. Keys the form does not
// know are ignored and reported as unmapped warnings. A leaf or section whose
// JSON type the form cannot take is dropped and reported as an invalid value;
// only a document that is not a JSON object fails.
func DecodeFormData(raw []byte) (*ContractFormData, []FieldResolutionWarning, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic map[string]any
	if err := dec.Decode(&generic); err != nil {
		return nil, nil, fmt.Errorf("invalid contract form data: %w", err)
	}

	var warnings []FieldResolutionWarning
	for _, path := range unknownKeys(formTree, generic, "") {
		warnings = append(warnings, FieldResolutionWarning{
			FieldID: path,
			Reason:  ReasonUnmapped,
			Detail:  "unknown key ignored",
		})
	}
	warnings = append(warnings, dropMistyped(formTree, generic, "")...)

	clean, err := json.Marshal(generic)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid contract form data: %w", err)
	}
	var data ContractFormData
	if err := json.Unmarshal(clean, &data); err != nil {
		return nil, nil, fmt.Errorf("invalid contract form data: %w", err)
	}
	return &data, warnings, nil
}

// dropMistyped removes from obj every known key whose value has a JSON type
// the matching leaf or section cannot decode.
func dropMistyped(n *node, obj map[string]any, prefix string) []FieldResolutionWarning {
	var out []FieldResolutionWarning
	for _, child := range n.children {
		v, ok := obj[child.name]
		if !ok || v == nil {
			continue
		}
		id := child.name
		if prefix != "" {
			id = prefix + "." + child.name
		}

		if child.leaf {
			if accepts(child, v) {
				continue
			}
			delete(obj, child.name)
			out = append(out, FieldResolutionWarning{
				FieldID: id,
				Reason:  ReasonInvalidValue,
				Detail:  fmt.Sprintf("%s value ignored", jsonType(v)),
			})
			continue
		}

		section, isObject := v.(map[string]any)
		if !isObject {
			delete(obj, child.name)
			out = append(out, FieldResolutionWarning{
				FieldID: id,
				Reason:  ReasonInvalidValue,
				Detail:  fmt.Sprintf("section must be an object, got %s", jsonType(v)),
			})
			continue
		}
		out = append(out, dropMistyped(child, section, id)...)
	}
	return out
}

func accepts(n *node, v any) bool {
	switch v.(type) {
	case string:
		return n.kind != LeafTriState
	case json.Number:
		return n.kind == LeafText && !n.skip
	case bool:
		return n.kind == LeafTriState && !n.skip
	default:
		return false
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "null"
	}
}

func unknownKeys(n *node, obj map[string]any, prefix string) []string {
	children := make(map[string]*node, len(n.children))
	for _, child := range n.children {
		children[child.name] = child
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		child, ok := children[k]
		if !ok {
			out = append(out, path)
			continue
		}
		if child.leaf {
			continue
		}
		if section, ok := obj[k].(map[string]any); ok {
			out = append(out, unknownKeys(child, section, path)...)
		}
	}
	return out
}
