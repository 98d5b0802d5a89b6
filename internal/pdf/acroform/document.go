// Package acroform fills and flattens PDF interactive forms.
//
// A Document is parsed with pdfcpu and then held as a private object table so
// that edits, flattening and serialization never depend on map iteration order
// or wall-clock time: the same template and the same edits always produce the
// same bytes.
package acroform

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/unicode"
)

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNoCatalog     = errors.New("document has no catalog")
	ErrFieldNotFound = errors.New("field not found")
	ErrFieldType     = errors.New("field has wrong type")
	ErrFlattened     = errors.New("document is flattened")
)

const maxRefDepth = 32

// Document is an editable in-memory PDF with an optional AcroForm.
type Document struct {
	ctx       *model.Context
	objects   map[int]types.Object
	nextObj   int
	acroForm  types.Dict
	fields    []*Field
	byName    map[string]*Field
	helvetica *types.IndirectRef
	zapf      *types.IndirectRef
	flattened bool
}

// Open parses data and indexes its form fields.
func Open(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	d := &Document{
		ctx:     ctx,
		objects: make(map[int]types.Object, len(ctx.Table)),
		byName:  make(map[string]*Field),
	}

	d.loadObjects()
	if d.catalog() == nil {
		return nil, ErrNoCatalog
	}

	d.loadFields()
	return d, nil
}

// loadObjects materializes every in-use object, including objects that pdfcpu
// keeps compressed inside object streams.
func (d *Document) loadObjects() {
	for nr, entry := range d.ctx.Table {
		if nr >= d.nextObj {
			d.nextObj = nr + 1
		}
		if nr == 0 || entry == nil || entry.Free {
			continue
		}
		gen := 0
		if entry.Generation != nil {
			gen = *entry.Generation
		}
		obj, err := d.ctx.Dereference(*types.NewIndirectRef(nr, gen))
		if err != nil || obj == nil {
			continue
		}
		d.objects[nr] = obj
	}
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// HasForm reports whether the document still carries an interactive form.
func (d *Document) HasForm() bool {
	return d.acroForm != nil && !d.flattened
}

// Fields returns the terminal fields in document order.
func (d *Document) Fields() []*Field {
	out := make([]*Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Field looks up a terminal field by its fully qualified name.
func (d *Document) Field(name string) (*Field, bool) {
	f, ok := d.byName[name]
	return f, ok
}

func (d *Document) catalog() types.Dict {
	if d.ctx.Root == nil {
		return nil
	}
	return d.dictOf(*d.ctx.Root)
}

func (d *Document) add(o types.Object) types.IndirectRef {
	nr := d.nextObj
	d.nextObj++
	d.objects[nr] = o
	return *types.NewIndirectRef(nr, 0)
}

func (d *Document) resolve(o types.Object) types.Object {
	for i := 0; i < maxRefDepth; i++ {
		ref, ok := o.(types.IndirectRef)
		if !ok {
			return o
		}
		o = d.objects[int(ref.ObjectNumber)]
	}
	return nil
}

func (d *Document) dictOf(o types.Object) types.Dict {
	switch v := d.resolve(o).(type) {
	case types.Dict:
		return v
	case types.StreamDict:
		return v.Dict
	}
	return nil
}

func (d *Document) streamOf(o types.Object) (types.StreamDict, bool) {
	sd, ok := d.resolve(o).(types.StreamDict)
	return sd, ok
}

func (d *Document) arrayOf(o types.Object) types.Array {
	a, _ := d.resolve(o).(types.Array)
	return a
}

func (d *Document) nameOf(o types.Object) (string, bool) {
	n, ok := d.resolve(o).(types.Name)
	return string(n), ok
}

func (d *Document) intOf(o types.Object) (int, bool) {
	switch v := d.resolve(o).(type) {
	case types.Integer:
		return int(v), true
	case types.Float:
		return int(v), true
	}
	return 0, false
}

func (d *Document) numberOf(o types.Object) (float64, bool) {
	switch v := d.resolve(o).(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

// textOf decodes a PDF text string (PDFDocEncoding or UTF-16BE with BOM).
func (d *Document) textOf(o types.Object) string {
	switch v := d.resolve(o).(type) {
	case types.HexLiteral:
		b, err := hex.DecodeString(string(v))
		if err != nil {
			return ""
		}
		return decodeTextBytes(b)
	case types.StringLiteral:
		s, err := d.ctx.DereferenceStringOrHexLiteral(v, model.V10, nil)
		if err != nil {
			return ""
		}
		return s
	}
	return ""
}

func decodeTextBytes(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		s, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err == nil {
			return string(s)
		}
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// rectOf returns a normalized rectangle [llx lly urx ury].
func (d *Document) rectOf(o types.Object) (rect, bool) {
	a := d.arrayOf(o)
	if len(a) != 4 {
		return rect{}, false
	}
	var v [4]float64
	for i, c := range a {
		f, ok := d.numberOf(c)
		if !ok {
			return rect{}, false
		}
		v[i] = f
	}
	return newRect(v[0], v[1], v[2], v[3]), true
}

func sortedKeys(dict types.Dict) []string {
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
