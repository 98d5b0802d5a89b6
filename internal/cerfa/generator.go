// Package cerfa fills the CERFA 10103*10 apprenticeship contract form.
//
// A Generator loads the blank template, writes every defined leaf of a
// ContractFormData into the template field named by the FieldMap, flattens
// the form and returns the serialized PDF. The output depends only on the
// template and the data: two calls with the same inputs produce identical
// bytes.
package cerfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-cerfa/internal/metrics"
	"github.com/a3tai/mcp-cerfa/internal/pdf/acroform"
)

// Result is a generated document and what happened while filling it.
type Result struct {
	PDF                 []byte                   `json:"-"`
	FieldsWritten       int                      `json:"fields_written"`
	Warnings            []FieldResolutionWarning `json:"warnings,omitempty"`
	FieldMappingVersion string                   `json:"field_mapping_version"`
}

// formFields is the editable surface of a loaded template.
type formFields interface {
	SetText(name, value string) error
	SetChecked(name string, checked bool) error
}

// Generator produces filled, flattened CERFA documents.
type Generator struct {
	template TemplateSource
	fields   *FieldMap
	logger   *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithFieldMap replaces the default field map.
func WithFieldMap(m *FieldMap) Option {
	return func(g *Generator) { g.fields = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a generator reading its template from src.
func NewGenerator(src TemplateSource, opts ...Option) *Generator {
	g := &Generator{
		template: src,
		fields:   DefaultFieldMap(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FieldMappingVersion returns the version of the active field map.
func (g *Generator) FieldMappingVersion() string { return g.fields.Version() }

// FieldMap returns the active field map.
func (g *Generator) FieldMap() *FieldMap { return g.fields }

// Template returns the source the blank form is read from.
func (g *Generator) Template() TemplateSource { return g.template }

// Generate returns the filled, flattened PDF for data.
func (g *Generator) Generate(ctx context.Context, data *ContractFormData) ([]byte, error) {
	res, err := g.Fill(ctx, data)
	if err != nil {
		return nil, err
	}
	return res.PDF, nil
}

// Fill is Generate plus the fill report. Skipped fields are returned as
// warnings; only template, flatten and serialize failures are errors.
func (g *Generator) Fill(ctx context.Context, data *ContractFormData) (*Result, error) {
	return g.run(ctx, data, nil)
}

// FillJSON decodes raw as ContractFormData and fills it. Unknown keys become
// unmapped warnings and mistyped values invalid_value warnings.
func (g *Generator) FillJSON(ctx context.Context, raw []byte) (*Result, error) {
	data, unknown, err := DecodeFormData(raw)
	if err != nil {
		return nil, err
	}
	return g.run(ctx, data, unknown)
}

func (g *Generator) run(ctx context.Context, data *ContractFormData, pending []FieldResolutionWarning) (*Result, error) {
	start := time.Now()
	res, err := g.fill(ctx, data, pending)
	metrics.CerfaFillDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CerfaFills.WithLabelValues(metrics.OutcomeFailure).Inc()
		g.logger.Error("CERFA generation failed", zap.String("template", g.template.String()), zap.Error(err))
		return nil, err
	}
	metrics.CerfaFills.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return res, nil
}

func (g *Generator) fill(ctx context.Context, data *ContractFormData, pending []FieldResolutionWarning) (*Result, error) {
	doc, err := g.load(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{FieldMappingVersion: g.fields.Version()}
	for _, w := range pending {
		g.warn(res, w)
	}
	g.populate(doc, data, res)

	if err := doc.Flatten(); err != nil {
		return nil, &RenderError{Kind: KindFlatten, Err: err}
	}
	out, err := doc.Bytes()
	if err != nil {
		return nil, &RenderError{Kind: KindSerialize, Err: err}
	}
	res.PDF = out

	g.logger.Debug("CERFA filled",
		zap.Int("fields_written", res.FieldsWritten),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int("bytes", len(out)))
	return res, nil
}

func (g *Generator) load(ctx context.Context) (*acroform.Document, error) {
	source := g.template.String()

	raw, err := g.template.Load(ctx)
	if err != nil {
		var tle *TemplateLoadError
		if errors.As(err, &tle) {
			return nil, err
		}
		return nil, &TemplateLoadError{Kind: KindTemplateRead, Source: source, Err: err}
	}
	if len(raw) == 0 {
		return nil, &TemplateLoadError{Kind: KindTemplateRead, Source: source, Err: ErrEmptyTemplate}
	}

	doc, err := acroform.Open(raw)
	if err != nil {
		return nil, &TemplateLoadError{Kind: KindTemplateParse, Source: source, Err: err}
	}
	if !doc.HasForm() {
		return nil, &TemplateLoadError{Kind: KindTemplateParse, Source: source, Err: ErrNoForm}
	}
	return doc, nil
}

// populate writes every defined leaf of data into doc, section by section.
func (g *Generator) populate(doc formFields, data *ContractFormData, res *Result) {
	for _, leaf := range Leaves(data) {
		g.apply(doc, leaf, res)
	}
}

// apply writes one leaf. Every failure becomes a warning.
func (g *Generator) apply(doc formFields, leaf Leaf, res *Result) {
	mapping, ok := g.fields.Lookup(leaf.ID)
	if !ok {
		g.warn(res, FieldResolutionWarning{FieldID: leaf.ID, Reason: ReasonUnmapped})
		return
	}

	if leaf.Kind == LeafText {
		if mapping.Kind != MappingText {
			g.warn(res, FieldResolutionWarning{FieldID: leaf.ID, Reason: ReasonWrongType,
				Detail: "text value mapped to a checkbox pair"})
			return
		}
		if err := doc.SetText(mapping.Name, leaf.Text); err != nil {
			g.warn(res, resolutionWarning(leaf.ID, mapping.Name, err))
			return
		}
		res.FieldsWritten++
		return
	}

	if mapping.Kind != MappingPair {
		g.warn(res, FieldResolutionWarning{FieldID: leaf.ID, PhysicalName: mapping.Name,
			Reason: ReasonWrongType, Detail: "yes/no value mapped to a text field"})
		return
	}
	if leaf.Invalid() {
		g.warn(res, FieldResolutionWarning{FieldID: leaf.ID, Reason: ReasonInvalidValue,
			Detail: fmt.Sprintf("%q is neither M nor F", leaf.Raw)})
		return
	}

	checked, failures := setPair(doc, leaf.State, mapping.Yes, mapping.No)
	for _, f := range failures {
		g.warn(res, resolutionWarning(leaf.ID, f.name, f.err))
	}
	if checked {
		res.FieldsWritten++
	}
}

func resolutionWarning(id, name string, err error) FieldResolutionWarning {
	w := FieldResolutionWarning{FieldID: id, PhysicalName: name, Detail: err.Error()}
	switch {
	case errors.Is(err, acroform.ErrFieldNotFound):
		w.Reason, w.Detail = ReasonMissingInTemplate, ""
	case errors.Is(err, acroform.ErrFieldType):
		w.Reason = ReasonWrongType
	default:
		w.Reason = ReasonInvalidValue
	}
	return w
}

func (g *Generator) warn(res *Result, w FieldResolutionWarning) {
	res.Warnings = append(res.Warnings, w)
	metrics.CerfaFieldWarnings.WithLabelValues(string(w.Reason)).Inc()
	g.logger.Warn("CERFA field skipped",
		zap.String("field_id", w.FieldID),
		zap.String("physical_name", w.PhysicalName),
		zap.String("reason", string(w.Reason)),
		zap.String("detail", w.Detail))
}
