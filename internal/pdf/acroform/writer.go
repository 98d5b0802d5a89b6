package acroform

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const pdfHeader = "%PDF-1.7\n%\xE2\xE3\xCF\xD3\n"

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes the objects reachable from the trailer with a classic
// cross-reference table. Objects are renumbered densely in ascending order of
// their original numbers, dictionary keys are sorted, and the template's file
// identifier is kept, so output depends only on document content.
func (d *Document) Write(w io.Writer) error {
	if d.ctx.Root == nil {
		return ErrNoCatalog
	}

	roots := []types.IndirectRef{*d.ctx.Root}
	if d.ctx.Info != nil {
		roots = append(roots, *d.ctx.Info)
	}
	order := d.reachable(roots)

	renum := make(map[int]int, len(order))
	for i, nr := range order {
		renum[nr] = i + 1
	}

	var buf bytes.Buffer
	buf.WriteString(pdfHeader)

	offsets := make([]int, len(order))
	for i, nr := range order {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		writeObject(&buf, d.objects[nr], renum)
		buf.WriteString("\nendobj\n")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(order)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}

	trailer := types.Dict{
		"Size": types.Integer(len(order) + 1),
		"Root": *d.ctx.Root,
	}
	if d.ctx.Info != nil {
		trailer["Info"] = *d.ctx.Info
	}
	if len(d.ctx.ID) == 2 {
		trailer["ID"] = d.ctx.ID
	}
	buf.WriteString("trailer\n")
	writeObject(&buf, trailer, renum)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xref)

	_, err := w.Write(buf.Bytes())
	return err
}

// reachable returns the sorted numbers of all objects reachable from roots.
func (d *Document) reachable(roots []types.IndirectRef) []int {
	seen := make(map[int]bool)
	var stack []types.Object
	for _, r := range roots {
		stack = append(stack, r)
	}

	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := o.(type) {
		case types.IndirectRef:
			nr := int(v.ObjectNumber)
			if seen[nr] {
				continue
			}
			target, ok := d.objects[nr]
			if !ok {
				continue
			}
			seen[nr] = true
			stack = append(stack, target)
		case types.Dict:
			for _, child := range v {
				stack = append(stack, child)
			}
		case types.StreamDict:
			for k, child := range v.Dict {
				if k != "Length" {
					stack = append(stack, child)
				}
			}
		case types.Array:
			stack = append(stack, v...)
		}
	}

	order := make([]int, 0, len(seen))
	for nr := range seen {
		order = append(order, nr)
	}
	sort.Ints(order)
	return order
}

func writeObject(buf *bytes.Buffer, o types.Object, renum map[int]int) {
	switch v := o.(type) {
	case nil:
		buf.WriteString("null")
	case types.Dict:
		writeDict(buf, v, renum)
	case types.Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, item, renum)
		}
		buf.WriteByte(']')
	case types.IndirectRef:
		nr, ok := renum[int(v.ObjectNumber)]
		if !ok {
			buf.WriteString("null")
			return
		}
		fmt.Fprintf(buf, "%d 0 R", nr)
	case types.StreamDict:
		writeStream(buf, v, renum)
	case types.Float:
		buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))
	default:
		buf.WriteString(v.PDFString())
	}
}

func writeDict(buf *bytes.Buffer, dict types.Dict, renum map[int]int) {
	buf.WriteString("<<")
	for _, k := range sortedKeys(dict) {
		buf.WriteString(types.Name(k).PDFString())
		buf.WriteByte(' ')
		writeObject(buf, dict[k], renum)
	}
	buf.WriteString(">>")
}

func writeStream(buf *bytes.Buffer, sd types.StreamDict, renum map[int]int) {
	data := sd.Raw
	dict := make(types.Dict, len(sd.Dict)+1)
	for k, v := range sd.Dict {
		dict[k] = v
	}
	if data == nil && sd.Content != nil {
		// Only the decoded form is available.
		data = sd.Content
		delete(dict, "Filter")
		delete(dict, "DecodeParms")
	}
	dict["Length"] = types.Integer(len(data))

	writeDict(buf, dict, renum)
	buf.WriteString("\nstream\n")
	buf.Write(data)
	buf.WriteString("\nendstream")
}
