package acroform

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	offState     = "Off"
	defaultOnKey = "Yes"
)

// SetText stores value verbatim in a text field and regenerates the
// appearance of each of its widgets.
func (d *Document) SetText(name, value string) error {
	f, err := d.editable(name, FieldTypeText)
	if err != nil {
		return err
	}

	encoded, err := encodeTextString(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	f.dict["V"] = encoded

	for _, w := range f.widgets {
		ap, err := d.textAppearance(f, w, value)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		w["AP"] = types.Dict{"N": ap}
	}

	f.Value = value
	return nil
}

// SetChecked switches a checkbox to its on state or to Off.
func (d *Document) SetChecked(name string, checked bool) error {
	f, err := d.editable(name, FieldTypeCheckbox)
	if err != nil {
		return err
	}

	value := offState
	for _, w := range f.widgets {
		on := d.ensureCheckboxAppearance(w)
		state := offState
		if checked {
			state = on
			if value == offState {
				value = on
			}
		}
		w["AS"] = types.Name(state)
	}

	f.dict["V"] = types.Name(value)
	f.Value = value
	return nil
}

func (d *Document) editable(name string, want FieldType) (*Field, error) {
	if d.flattened {
		return nil, ErrFlattened
	}
	f, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, name)
	}
	if f.Type != want {
		return nil, fmt.Errorf("%w: %s is %s, not %s", ErrFieldType, name, f.Type, want)
	}
	return f, nil
}

// ensureCheckboxAppearance returns the widget's on-state name, synthesizing
// an appearance dictionary when the template did not provide one.
func (d *Document) ensureCheckboxAppearance(w types.Dict) string {
	if states := d.widgetOnStates(w); len(states) > 0 {
		return states[0]
	}

	r, ok := d.rectOf(w["Rect"])
	if !ok {
		r = newRect(0, 0, 10, 10)
	}
	w["AP"] = types.Dict{
		"N": types.Dict{
			defaultOnKey: d.checkAppearance(r),
			offState:     d.formXObject(r, nil, nil),
		},
	}
	return defaultOnKey
}
