package acroform

import (
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// FieldType classifies a terminal form field.
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeRadio     FieldType = "radio"
	FieldTypeButton    FieldType = "button"
	FieldTypeChoice    FieldType = "choice"
	FieldTypeSignature FieldType = "signature"
	FieldTypeUnknown   FieldType = "unknown"
)

// Field flag bits (PDF 32000-1, table 221, 226 and 228).
const (
	FlagReadOnly   = 1 << 0
	FlagRequired   = 1 << 1
	FlagMultiline  = 1 << 12
	FlagRadio      = 1 << 15
	FlagPushbutton = 1 << 16
	FlagComb       = 1 << 24
)

// Field is a terminal form field and the widgets that display it.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Flags    int       `json:"flags,omitempty"`
	MaxLen   int       `json:"max_len,omitempty"`
	Value    string    `json:"value,omitempty"`
	Widgets  int       `json:"widgets"`
	da       string
	quadding int
	dict     types.Dict
	widgets  []types.Dict
}

func (f *Field) ReadOnly() bool  { return f.Flags&FlagReadOnly != 0 }
func (f *Field) Required() bool  { return f.Flags&FlagRequired != 0 }
func (f *Field) Multiline() bool { return f.Flags&FlagMultiline != 0 }
func (f *Field) Comb() bool      { return f.Flags&FlagComb != 0 && f.MaxLen > 0 }

// Checked reports whether a button field is in an on state. Other field
// types are never checked.
func (f *Field) Checked() bool {
	if f.Type != FieldTypeCheckbox && f.Type != FieldTypeRadio {
		return false
	}
	return f.Value != "" && f.Value != offState
}

// inherited carries the attributes a field inherits from its ancestors.
type inherited struct {
	ft       string
	ff       int
	da       string
	quadding int
	maxLen   int
}

func (d *Document) loadFields() {
	af := d.dictOf(d.catalog()["AcroForm"])
	if af == nil {
		return
	}
	d.acroForm = af

	base := inherited{}
	if da, ok := af["DA"]; ok {
		base.da = d.textOf(da)
	}
	if q, ok := d.intOf(af["Q"]); ok {
		base.quadding = q
	}

	seen := make(map[int]bool)
	for _, obj := range d.arrayOf(af["Fields"]) {
		d.walkField(obj, "", base, seen, 0)
	}
}

func (d *Document) walkField(obj types.Object, parent string, inh inherited, seen map[int]bool, depth int) {
	if depth > maxRefDepth {
		return
	}
	if ref, ok := obj.(types.IndirectRef); ok {
		nr := int(ref.ObjectNumber)
		if seen[nr] {
			return
		}
		seen[nr] = true
	}

	dict := d.dictOf(obj)
	if dict == nil {
		return
	}

	name := parent
	if t, ok := dict["T"]; ok {
		partial := d.textOf(t)
		if name == "" {
			name = partial
		} else {
			name = name + "." + partial
		}
	}

	if ft, ok := d.nameOf(dict["FT"]); ok {
		inh.ft = ft
	}
	if ff, ok := d.intOf(dict["Ff"]); ok {
		inh.ff = ff
	}
	if da, ok := dict["DA"]; ok {
		inh.da = d.textOf(da)
	}
	if q, ok := d.intOf(dict["Q"]); ok {
		inh.quadding = q
	}
	if ml, ok := d.intOf(dict["MaxLen"]); ok {
		inh.maxLen = ml
	}

	var children []types.Object
	var widgets []types.Dict
	for _, kid := range d.arrayOf(dict["Kids"]) {
		kd := d.dictOf(kid)
		if kd == nil {
			continue
		}
		if _, named := kd["T"]; named {
			children = append(children, kid)
		} else {
			widgets = append(widgets, kd)
		}
	}

	if len(children) > 0 {
		for _, child := range children {
			d.walkField(child, name, inh, seen, depth+1)
		}
		return
	}

	if len(widgets) == 0 {
		// Field and widget share one dictionary.
		widgets = []types.Dict{dict}
	}

	f := &Field{
		Name:     name,
		Type:     fieldType(inh.ft, inh.ff),
		Flags:    inh.ff,
		MaxLen:   inh.maxLen,
		Widgets:  len(widgets),
		da:       inh.da,
		quadding: inh.quadding,
		dict:     dict,
		widgets:  widgets,
	}
	f.Value = d.fieldValue(f)

	if _, dup := d.byName[name]; dup || name == "" {
		return
	}
	d.fields = append(d.fields, f)
	d.byName[name] = f
}

func fieldType(ft string, ff int) FieldType {
	switch ft {
	case "Btn":
		if ff&FlagRadio != 0 {
			return FieldTypeRadio
		}
		if ff&FlagPushbutton != 0 {
			return FieldTypeButton
		}
		return FieldTypeCheckbox
	case "Tx":
		return FieldTypeText
	case "Ch":
		return FieldTypeChoice
	case "Sig":
		return FieldTypeSignature
	default:
		return FieldTypeUnknown
	}
}

func (d *Document) fieldValue(f *Field) string {
	v, ok := f.dict["V"]
	switch f.Type {
	case FieldTypeCheckbox, FieldTypeRadio:
		if ok {
			if n, isName := d.nameOf(v); isName {
				return n
			}
		}
		for _, w := range f.widgets {
			if as, isName := d.nameOf(w["AS"]); isName {
				return as
			}
		}
		return ""
	default:
		if !ok {
			return ""
		}
		return d.textOf(v)
	}
}

// OnStates lists the non-Off appearance state names of a button field.
func (d *Document) OnStates(f *Field) []string {
	set := make(map[string]bool)
	for _, w := range f.widgets {
		for _, s := range d.widgetOnStates(w) {
			set[s] = true
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (d *Document) widgetOnStates(w types.Dict) []string {
	ap := d.dictOf(w["AP"])
	if ap == nil {
		return nil
	}
	var out []string
	for _, key := range []string{"N", "D"} {
		states := d.dictOf(ap[key])
		if states == nil {
			continue
		}
		if _, isStream := d.streamOf(ap[key]); isStream {
			continue
		}
		for _, k := range sortedKeys(states) {
			if k != offState {
				out = append(out, k)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return out
}

type rect struct {
	llx, lly, urx, ury float64
}

func newRect(x1, y1, x2, y2 float64) rect {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return rect{llx: x1, lly: y1, urx: x2, ury: y2}
}

func (r rect) width() float64  { return r.urx - r.llx }
func (r rect) height() float64 { return r.ury - r.lly }
