// Package acroformtest builds small fillable PDF templates for tests.
//
// Checkbox appearance streams carry a marker comment ("% on:<name>" or
// "% off:<name>") so a flattened document can be inspected for the state that
// was drawn: after flattening only the drawn appearances remain in the file.
package acroformtest

import (
	"fmt"
	"strings"
)

// Kind is the type of a template field.
type Kind int

const (
	Text Kind = iota
	Checkbox
)

// Field describes one field of a generated template. Zero Rect values are
// laid out automatically.
type Field struct {
	Name      string
	Kind      Kind
	Parent    string
	Rect      [4]float64
	MaxLen    int
	Comb      bool
	Multiline bool
	DA        string
	Value     string
	OnState   string
	Checked   bool
}

// OnMarker is the comment written into a checkbox's on appearance.
func OnMarker(name string) string { return "% on:" + name }

// OffMarker is the comment written into a checkbox's off appearance.
func OffMarker(name string) string { return "% off:" + name }

const (
	catalogObj = 1
	pagesObj   = 2
	pageObj    = 3
	formObj    = 4
	fontObj    = 5
	contentObj = 6
	infoObj    = 7
	firstFree  = 8
)

type builder struct {
	objs map[int]string
	next int
}

func (b *builder) reserve() int {
	nr := b.next
	b.next++
	return nr
}

// Build renders a one-page PDF whose AcroForm contains fields.
func Build(fields []Field) []byte {
	b := &builder{objs: make(map[int]string), next: firstFree}

	var topLevel, annots []string
	parents := make(map[string]int)
	kids := make(map[string][]string)
	var parentOrder []string

	for i, f := range fields {
		r := f.Rect
		if r == [4]float64{} {
			r = autoRect(i, f.Kind)
		}

		nr := b.reserve()
		ref := fmt.Sprintf("%d 0 R", nr)
		annots = append(annots, ref)

		var parentRef string
		if f.Parent != "" {
			pnr, ok := parents[f.Parent]
			if !ok {
				pnr = b.reserve()
				parents[f.Parent] = pnr
				parentOrder = append(parentOrder, f.Parent)
				topLevel = append(topLevel, fmt.Sprintf("%d 0 R", pnr))
			}
			kids[f.Parent] = append(kids[f.Parent], ref)
			parentRef = fmt.Sprintf("/Parent %d 0 R\n", pnr)
		} else {
			topLevel = append(topLevel, ref)
		}

		rect := fmt.Sprintf("[%s %s %s %s]", num(r[0]), num(r[1]), num(r[2]), num(r[3]))
		switch f.Kind {
		case Checkbox:
			b.objs[nr] = b.checkbox(f, rect, r, parentRef)
		default:
			b.objs[nr] = textField(f, rect, parentRef)
		}
	}

	for _, name := range parentOrder {
		b.objs[parents[name]] = fmt.Sprintf("<<\n/T (%s)\n/Kids [%s]\n>>", name, strings.Join(kids[name], " "))
	}

	b.objs[catalogObj] = fmt.Sprintf("<<\n/Type /Catalog\n/Pages %d 0 R\n/AcroForm %d 0 R\n>>", pagesObj, formObj)
	b.objs[pagesObj] = fmt.Sprintf("<<\n/Type /Pages\n/Kids [%d 0 R]\n/Count 1\n>>", pageObj)
	b.objs[pageObj] = fmt.Sprintf("<<\n/Type /Page\n/Parent %d 0 R\n/MediaBox [0 0 595 842]\n"+
		"/Resources <<\n/Font <<\n/F1 %d 0 R\n>>\n>>\n/Contents %d 0 R\n/Annots [%s]\n>>",
		pagesObj, fontObj, contentObj, strings.Join(annots, " "))
	b.objs[formObj] = fmt.Sprintf("<<\n/Fields [%s]\n/DR <<\n/Font <<\n/Helv %d 0 R\n>>\n>>\n/DA (/Helv 0 Tf 0 g)\n>>",
		strings.Join(topLevel, " "), fontObj)
	b.objs[fontObj] = "<<\n/Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica\n/Encoding /WinAnsiEncoding\n>>"
	b.objs[contentObj] = stream("", "BT\n/F1 12 Tf\n40 810 Td\n(CERFA 10103*10 test template) Tj\nET\n")
	b.objs[infoObj] = "<<\n/Title (CERFA test template)\n/Producer (acroformtest)\n>>"

	return b.render()
}

func textField(f Field, rect, parentRef string) string {
	var sb strings.Builder
	sb.WriteString("<<\n/Type /Annot\n/Subtype /Widget\n/FT /Tx\n")
	fmt.Fprintf(&sb, "/T (%s)\n/Rect %s\n/P %d 0 R\n/F 4\n", f.Name, rect, pageObj)
	sb.WriteString(parentRef)
	da := f.DA
	if da == "" {
		da = "/Helv 10 Tf 0 g"
	}
	fmt.Fprintf(&sb, "/DA (%s)\n", da)
	flags := 0
	if f.Multiline {
		flags |= 1 << 12
	}
	if f.Comb {
		flags |= 1 << 24
	}
	if flags != 0 {
		fmt.Fprintf(&sb, "/Ff %d\n", flags)
	}
	if f.MaxLen > 0 {
		fmt.Fprintf(&sb, "/MaxLen %d\n", f.MaxLen)
	}
	if f.Value != "" {
		fmt.Fprintf(&sb, "/V (%s)\n", f.Value)
	}
	sb.WriteString(">>")
	return sb.String()
}

func (b *builder) checkbox(f Field, rect string, r [4]float64, parentRef string) string {
	on := f.OnState
	if on == "" {
		on = "Yes"
	}
	w, h := r[2]-r[0], r[3]-r[1]
	bbox := fmt.Sprintf("[0 0 %s %s]", num(w), num(h))

	onNr := b.reserve()
	b.objs[onNr] = stream("/Type /XObject\n/Subtype /Form\n/BBox "+bbox+"\n",
		OnMarker(f.Name)+"\n0 g\n1 1 "+num(w-2)+" "+num(h-2)+" re f\n")
	offNr := b.reserve()
	b.objs[offNr] = stream("/Type /XObject\n/Subtype /Form\n/BBox "+bbox+"\n",
		OffMarker(f.Name)+"\n0 G\n0.5 0.5 "+num(w-1)+" "+num(h-1)+" re S\n")

	state := "Off"
	if f.Checked {
		state = on
	}

	var sb strings.Builder
	sb.WriteString("<<\n/Type /Annot\n/Subtype /Widget\n/FT /Btn\n")
	fmt.Fprintf(&sb, "/T (%s)\n/Rect %s\n/P %d 0 R\n/F 4\n", f.Name, rect, pageObj)
	sb.WriteString(parentRef)
	fmt.Fprintf(&sb, "/V /%s\n/AS /%s\n", state, state)
	fmt.Fprintf(&sb, "/AP <<\n/N <<\n/%s %d 0 R\n/Off %d 0 R\n>>\n>>\n", on, onNr, offNr)
	sb.WriteString(">>")
	return sb.String()
}

func stream(dict, content string) string {
	return fmt.Sprintf("<<\n%s/Length %d\n>>\nstream\n%s\nendstream", dict, len(content), content)
}

func (b *builder) render() []byte {
	var sb strings.Builder
	sb.WriteString("%PDF-1.7\n")

	offsets := make([]int, b.next)
	for nr := 1; nr < b.next; nr++ {
		offsets[nr] = sb.Len()
		fmt.Fprintf(&sb, "%d 0 obj\n%s\nendobj\n", nr, b.objs[nr])
	}

	xref := sb.Len()
	fmt.Fprintf(&sb, "xref\n0 %d\n0000000000 65535 f \n", b.next)
	for nr := 1; nr < b.next; nr++ {
		fmt.Fprintf(&sb, "%010d 00000 n \n", offsets[nr])
	}
	fmt.Fprintf(&sb, "trailer\n<<\n/Size %d\n/Root %d 0 R\n/Info %d 0 R\n"+
		"/ID [<0123456789ABCDEF0123456789ABCDEF> <0123456789ABCDEF0123456789ABCDEF>]\n>>\n",
		b.next, catalogObj, infoObj)
	fmt.Fprintf(&sb, "startxref\n%d\n%%%%EOF\n", xref)
	return []byte(sb.String())
}

// autoRect lays fields out in columns of forty rows, six columns per page
// width. Later columns run past the media box, which readers tolerate.
func autoRect(i int, kind Kind) [4]float64 {
	x := 20 + float64(i/40)*95
	y := 790 - float64(i%40)*19
	if kind == Checkbox {
		return [4]float64{x, y, x + 10, y + 10}
	}
	return [4]float64{x, y, x + 90, y + 14}
}

func num(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", f), "0"), ".")
}
