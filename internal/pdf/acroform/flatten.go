package acroform

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	annotFlagHidden = 1 << 1
	xobjectPrefix   = "FlatFm"
)

var ErrNoPages = errors.New("document has no page tree")

type page struct {
	dict      types.Dict
	resources types.Object
}

// Flatten draws every visible widget appearance into its page content and
// removes the widgets and the AcroForm. It cannot be undone; further edits
// fail with ErrFlattened.
func (d *Document) Flatten() error {
	if d.flattened {
		return nil
	}

	pages, err := d.pages()
	if err != nil {
		return err
	}

	for i, p := range pages {
		if err := d.flattenPage(p); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
	}

	cat := d.catalog()
	delete(cat, "AcroForm")
	// Usage-rights signatures are invalid once the form is gone.
	delete(cat, "Perms")

	d.flattened = true
	d.fields = nil
	d.byName = make(map[string]*Field)
	return nil
}

func (d *Document) pages() ([]page, error) {
	root, ok := d.catalog()["Pages"]
	if !ok || d.dictOf(root) == nil {
		return nil, ErrNoPages
	}
	var out []page
	seen := make(map[int]bool)
	d.collectPages(root, nil, seen, 0, &out)
	return out, nil
}

func (d *Document) collectPages(node types.Object, res types.Object, seen map[int]bool, depth int, out *[]page) {
	if depth > maxRefDepth {
		return
	}
	if ref, ok := node.(types.IndirectRef); ok {
		if seen[int(ref.ObjectNumber)] {
			return
		}
		seen[int(ref.ObjectNumber)] = true
	}
	dict := d.dictOf(node)
	if dict == nil {
		return
	}
	if r, ok := dict["Resources"]; ok {
		res = r
	}

	if typ, _ := d.nameOf(dict["Type"]); typ == "Page" {
		*out = append(*out, page{dict: dict, resources: res})
		return
	}
	for _, kid := range d.arrayOf(dict["Kids"]) {
		d.collectPages(kid, res, seen, depth+1, out)
	}
}

func (d *Document) flattenPage(p page) error {
	annots := d.arrayOf(p.dict["Annots"])
	if len(annots) == 0 {
		return nil
	}

	var keep types.Array
	var draw bytes.Buffer
	var names []string
	refs := make(map[string]types.IndirectRef)
	removed := false

	for _, a := range annots {
		ad := d.dictOf(a)
		if sub, _ := d.nameOf(ad["Subtype"]); ad == nil || sub != "Widget" {
			keep = append(keep, a)
			continue
		}
		removed = true

		if flags, _ := d.intOf(ad["F"]); flags&annotFlagHidden != 0 {
			continue
		}
		ref, ok := d.normalAppearance(ad)
		if !ok {
			continue
		}
		r, ok := d.rectOf(ad["Rect"])
		if !ok {
			continue
		}

		name := fmt.Sprintf("%s%d", xobjectPrefix, int(ref.ObjectNumber))
		if _, dup := refs[name]; !dup {
			names = append(names, name)
			refs[name] = ref
		}
		fmt.Fprintf(&draw, "q\n%s cm\n/%s Do\nQ\n", d.placement(ref, r), name)
	}

	if !removed {
		return nil
	}
	if len(keep) == 0 {
		delete(p.dict, "Annots")
	} else {
		p.dict["Annots"] = keep
	}

	if draw.Len() == 0 {
		return nil
	}

	xobjects := types.Dict{}
	res := d.pageResources(p)
	for k, v := range d.dictOf(res["XObject"]) {
		xobjects[k] = v
	}
	for _, name := range names {
		xobjects[name] = refs[name]
	}
	res["XObject"] = xobjects

	contents := types.Array{d.contentStream([]byte("q\n"))}
	switch c := d.resolve(p.dict["Contents"]).(type) {
	case types.StreamDict:
		contents = append(contents, p.dict["Contents"])
	case types.Array:
		contents = append(contents, c...)
	}
	contents = append(contents, d.contentStream(append([]byte("Q\n"), draw.Bytes()...)))
	p.dict["Contents"] = contents
	return nil
}

// normalAppearance returns the N appearance stream selected by the widget's
// appearance state.
func (d *Document) normalAppearance(w types.Dict) (types.IndirectRef, bool) {
	ap := d.dictOf(w["AP"])
	if ap == nil {
		return types.IndirectRef{}, false
	}
	n := ap["N"]
	if _, isStream := d.streamOf(n); isStream {
		ref, ok := n.(types.IndirectRef)
		return ref, ok
	}

	states := d.dictOf(n)
	state, ok := d.nameOf(w["AS"])
	if states == nil || !ok {
		return types.IndirectRef{}, false
	}
	ref, ok := states[state].(types.IndirectRef)
	if !ok {
		return types.IndirectRef{}, false
	}
	if _, isStream := d.streamOf(ref); !isStream {
		return types.IndirectRef{}, false
	}
	return ref, true
}

// placement computes the cm operands that map the appearance BBox, after
// its Matrix, onto the widget rectangle.
func (d *Document) placement(ref types.IndirectRef, r rect) string {
	sd, ok := d.streamOf(ref)
	if !ok || sd.Dict == nil {
		return fmt.Sprintf("1 0 0 1 %s %s", num(r.llx), num(r.lly))
	}
	sd.Dict["Type"] = types.Name("XObject")
	sd.Dict["Subtype"] = types.Name("Form")

	bbox, ok := d.rectOf(sd.Dict["BBox"])
	if !ok {
		bbox = newRect(0, 0, r.width(), r.height())
		sd.Dict["BBox"] = types.Array{
			types.Float(0), types.Float(0), types.Float(bbox.urx), types.Float(bbox.ury),
		}
	}

	m := [6]float64{1, 0, 0, 1, 0, 0}
	if arr := d.arrayOf(sd.Dict["Matrix"]); len(arr) == 6 {
		for i, v := range arr {
			if f, ok := d.numberOf(v); ok {
				m[i] = f
			}
		}
	}
	tb := transformRect(bbox, m)

	sx, sy := 1.0, 1.0
	if tb.width() > 0 {
		sx = r.width() / tb.width()
	}
	if tb.height() > 0 {
		sy = r.height() / tb.height()
	}
	ex := r.llx - tb.llx*sx
	ey := r.lly - tb.lly*sy
	return fmt.Sprintf("%s 0 0 %s %s %s", num(sx), num(sy), num(ex), num(ey))
}

func transformRect(r rect, m [6]float64) rect {
	pts := [4][2]float64{{r.llx, r.lly}, {r.urx, r.lly}, {r.llx, r.ury}, {r.urx, r.ury}}
	var out rect
	for i, p := range pts {
		x := m[0]*p[0] + m[2]*p[1] + m[4]
		y := m[1]*p[0] + m[3]*p[1] + m[5]
		if i == 0 {
			out = rect{x, y, x, y}
			continue
		}
		out = rect{
			llx: min(out.llx, x), lly: min(out.lly, y),
			urx: max(out.urx, x), ury: max(out.ury, y),
		}
	}
	return out
}

// pageResources returns the page's own resource dictionary, materializing an
// inherited one on the page first.
func (d *Document) pageResources(p page) types.Dict {
	if _, own := p.dict["Resources"]; own {
		if res := d.dictOf(p.dict["Resources"]); res != nil {
			return res
		}
	}
	res := types.Dict{}
	for k, v := range d.dictOf(p.resources) {
		res[k] = v
	}
	p.dict["Resources"] = res
	return res
}

func (d *Document) contentStream(content []byte) types.IndirectRef {
	return d.add(types.StreamDict{
		Dict:    types.Dict{"Length": types.Integer(len(content))},
		Raw:     content,
		Content: content,
	})
}
