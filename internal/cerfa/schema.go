package cerfa

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaError lists the violations of a ContractFormData document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("contract form data validation failed: %s", strings.Join(e.Violations, "; "))
}

var formSchema = schemaFor(formTree)

// Schema returns the JSON schema ContractFormData documents are checked
// against. Unknown keys are allowed.
func Schema() map[string]interface{} { return formSchema }

func schemaFor(n *node) map[string]interface{} {
	props := make(map[string]interface{}, len(n.children))
	for _, child := range n.children {
		switch {
		case !child.leaf:
			section := schemaFor(child)
			section["type"] = []string{"object", "null"}
			props[child.name] = section
		case child.kind == LeafTriState:
			props[child.name] = map[string]interface{}{"type": []string{"boolean", "null"}}
		case child.kind == LeafSex || child.skip:
			props[child.name] = map[string]interface{}{"type": []string{"string", "null"}}
		default:
			props[child.name] = map[string]interface{}{"type": []string{"string", "number", "null"}}
		}
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
}

// ValidateFormData checks raw against Schema.
func ValidateFormData(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(formSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return &SchemaError{Violations: errs}
	}
	return nil
}
