package cerfa

import (
	"context"
	"sort"

	"github.com/a3tai/mcp-cerfa/internal/pdf/acroform"
)

// TemplateField is a template field and the field id mapped onto it.
type TemplateField struct {
	Name    string             `json:"name"`
	Type    acroform.FieldType `json:"type"`
	Value   string             `json:"value,omitempty"`
	MaxLen  int                `json:"max_len,omitempty"`
	Flags   int                `json:"flags,omitempty"`
	FieldID string             `json:"field_id,omitempty"`
	Role    string             `json:"role,omitempty"`
}

// TemplateReport describes how well a template matches a field map.
type TemplateReport struct {
	Source              string          `json:"source"`
	Pages               int             `json:"pages"`
	FieldMappingVersion string          `json:"field_mapping_version"`
	Fields              []TemplateField `json:"fields"`
	Mapped              int             `json:"mapped"`
	// MissingInTemplate lists physical names the map expects but the
	// template lacks.
	MissingInTemplate []string `json:"missing_in_template,omitempty"`
	// Unmapped lists template fields no field id points at.
	Unmapped []string `json:"unmapped,omitempty"`
	// WrongType lists physical names whose template field has the wrong kind.
	WrongType []string `json:"wrong_type,omitempty"`
}

// Complete reports whether every mapped name exists with the right type.
func (r *TemplateReport) Complete() bool {
	return len(r.MissingInTemplate) == 0 && len(r.WrongType) == 0
}

// InspectTemplate loads the template from src and compares its fields with m.
func InspectTemplate(ctx context.Context, src TemplateSource, m *FieldMap) (*TemplateReport, error) {
	g := NewGenerator(src, WithFieldMap(m))
	doc, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	report := Coverage(doc.Fields(), m)
	report.Source = src.String()
	report.Pages = doc.PageCount()
	return report, nil
}

type physicalRef struct {
	id   string
	role string
	kind acroform.FieldType
}

// Coverage compares template fields with m.
func Coverage(fields []*acroform.Field, m *FieldMap) *TemplateReport {
	expected := make(map[string]physicalRef)
	for _, id := range m.IDs() {
		mapping, _ := m.Lookup(id)
		if mapping.Kind == MappingPair {
			expected[mapping.Yes] = physicalRef{id: id, role: "yes", kind: acroform.FieldTypeCheckbox}
			expected[mapping.No] = physicalRef{id: id, role: "no", kind: acroform.FieldTypeCheckbox}
			continue
		}
		expected[mapping.Name] = physicalRef{id: id, role: "text", kind: acroform.FieldTypeText}
	}

	report := &TemplateReport{FieldMappingVersion: m.Version()}
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f.Name] = true
		tf := TemplateField{Name: f.Name, Type: f.Type, Value: f.Value, MaxLen: f.MaxLen, Flags: f.Flags}
		ref, ok := expected[f.Name]
		switch {
		case !ok:
			report.Unmapped = append(report.Unmapped, f.Name)
		case ref.kind != f.Type:
			report.WrongType = append(report.WrongType, f.Name)
			tf.FieldID, tf.Role = ref.id, ref.role
		default:
			tf.FieldID, tf.Role = ref.id, ref.role
			report.Mapped++
		}
		report.Fields = append(report.Fields, tf)
	}

	for name := range expected {
		if !present[name] {
			report.MissingInTemplate = append(report.MissingInTemplate, name)
		}
	}
	sort.Strings(report.MissingInTemplate)
	sort.Strings(report.Unmapped)
	sort.Strings(report.WrongType)
	return report
}
