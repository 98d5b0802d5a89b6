package cerfa

import (
	"errors"
	"fmt"
)

var (
	// ErrNoForm is returned when the template has no AcroForm to fill.
	ErrNoForm = errors.New("template has no fillable form")
	// ErrEmptyTemplate is returned when the template source yields no bytes.
	ErrEmptyTemplate = errors.New("template is empty")
)

// ErrorKind classifies fatal generation failures.
type ErrorKind int

const (
	KindTemplateRead ErrorKind = iota
	KindTemplateParse
	KindFlatten
	KindSerialize
)

func (k ErrorKind) String() string {
	switch k {
	case KindTemplateRead:
		return "TEMPLATE_READ"
	case KindTemplateParse:
		return "TEMPLATE_PARSE"
	case KindFlatten:
		return "FLATTEN"
	case KindSerialize:
		return "SERIALIZE"
	default:
		return "UNKNOWN"
	}
}

// TemplateLoadError means the blank template could not be read or opened as
// a fillable form. Nothing is produced when it is returned.
type TemplateLoadError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *TemplateLoadError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] cannot load CERFA template %s: %v", e.Kind, e.Source, e.Err)
	}
	return fmt.Sprintf("[%s] cannot load CERFA template: %v", e.Kind, e.Err)
}

func (e *TemplateLoadError) Unwrap() error { return e.Err }

// RenderError means a loaded template could not be flattened or serialized.
type RenderError struct {
	Kind ErrorKind
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("[%s] cannot render CERFA document: %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// WarningReason says why a field was skipped.
type WarningReason string

const (
	ReasonUnmapped          WarningReason = "unmapped"
	ReasonMissingInTemplate WarningReason = "missing_in_template"
	ReasonWrongType         WarningReason = "wrong_type"
	ReasonInvalidValue      WarningReason = "invalid_value"
)

// FieldResolutionWarning records one field that was skipped during filling.
// Warnings never abort generation.
type FieldResolutionWarning struct {
	FieldID      string        `json:"field_id"`
	PhysicalName string        `json:"physical_name,omitempty"`
	Reason       WarningReason `json:"reason"`
	Detail       string        `json:"detail,omitempty"`
}

func (w FieldResolutionWarning) String() string {
	s := fmt.Sprintf("%s: %s", w.FieldID, w.Reason)
	if w.PhysicalName != "" {
		s += " (" + w.PhysicalName + ")"
	}
	if w.Detail != "" {
		s += ": " + w.Detail
	}
	return s
}
