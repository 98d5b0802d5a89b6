package acroform

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	defaultFontName = "Helv"
	defaultFontSize = 10.0
	maxAutoFontSize = 12.0
	minAutoFontSize = 4.0
	textPadding     = 2.0
	lineSpacing     = 1.15
	capHeightRatio  = 0.72
)

// style is the parsed form of a default appearance (DA) string.
type style struct {
	font  string
	size  float64
	color string
}

func parseDA(da string) style {
	st := style{}
	tokens := strings.Fields(da)
	for i, tok := range tokens {
		switch tok {
		case "Tf":
			if i >= 2 {
				st.font = strings.TrimPrefix(tokens[i-2], "/")
				if size, err := strconv.ParseFloat(tokens[i-1], 64); err == nil {
					st.size = size
				}
			}
		case "g":
			if i >= 1 {
				st.color = strings.Join(tokens[i-1:i+1], " ")
			}
		case "rg":
			if i >= 3 {
				st.color = strings.Join(tokens[i-3:i+1], " ")
			}
		case "k":
			if i >= 4 {
				st.color = strings.Join(tokens[i-4:i+1], " ")
			}
		}
	}
	if st.color == "" {
		st.color = "0 g"
	}
	return st
}

// encodeTextString encodes a field value as a UTF-16BE text string with BOM.
func encodeTextString(s string) (types.HexLiteral, error) {
	b, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return "", fmt.Errorf("encode text string: %w", err)
	}
	return types.HexLiteral(strings.ToUpper(hex.EncodeToString(b))), nil
}

// winAnsi encodes s for a WinAnsiEncoding font; unmappable runes become '?'.
func winAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			out = append(out, ' ')
			continue
		}
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

func hexString(b []byte) string {
	return "<" + strings.ToUpper(hex.EncodeToString(b)) + ">"
}

// textAppearance builds the normal appearance stream of one text widget.
func (d *Document) textAppearance(f *Field, w types.Dict, value string) (types.IndirectRef, error) {
	r, ok := d.rectOf(w["Rect"])
	if !ok {
		return types.IndirectRef{}, fmt.Errorf("widget has no usable Rect")
	}

	da := f.da
	if own, ok := w["DA"]; ok {
		da = d.textOf(own)
	}
	st := parseDA(da)
	quadding := f.quadding
	if q, ok := d.intOf(w["Q"]); ok {
		quadding = q
	}

	fontObj, fontName := d.appearanceFont(st.font)
	width, height := r.width(), r.height()
	encoded := winAnsi(value)

	size := st.size
	if size <= 0 {
		size = autoFontSize(encoded, width, height, f.Multiline())
	}

	var buf bytes.Buffer
	buf.WriteString("/Tx BMC\nq\n")
	fmt.Fprintf(&buf, "%s %s %s %s re W n\n",
		num(1), num(1), num(math.Max(width-2, 0)), num(math.Max(height-2, 0)))
	buf.WriteString("BT\n")
	fmt.Fprintf(&buf, "/%s %s Tf\n%s\n", fontName, num(size), st.color)

	switch {
	case f.Comb():
		writeComb(&buf, encoded, f.MaxLen, width, height, size)
	case f.Multiline():
		writeMultiline(&buf, encoded, width, height, size, quadding)
	default:
		x := alignX(textWidth(encoded, size), width, quadding)
		y := (height - size*capHeightRatio) / 2
		fmt.Fprintf(&buf, "1 0 0 1 %s %s Tm\n%s Tj\n", num(x), num(y), hexString(encoded))
	}
	buf.WriteString("ET\nQ\nEMC\n")

	resources := types.Dict{"Font": types.Dict{fontName: fontObj}}
	return d.formXObject(newRect(0, 0, width, height), resources, buf.Bytes()), nil
}

func writeComb(buf *bytes.Buffer, text []byte, maxLen int, width, height, size float64) {
	cell := width / float64(maxLen)
	y := (height - size*capHeightRatio) / 2
	for i, c := range text {
		cw := charWidth(c) * size / 1000
		x := float64(i)*cell + (cell-cw)/2
		fmt.Fprintf(buf, "1 0 0 1 %s %s Tm\n%s Tj\n", num(x), num(y), hexString([]byte{c}))
	}
}

func writeMultiline(buf *bytes.Buffer, text []byte, width, height, size float64, quadding int) {
	lines := wrap(text, width-2*textPadding, size)
	leading := size * lineSpacing
	y := height - textPadding - size
	for _, line := range lines {
		x := alignX(textWidth(line, size), width, quadding)
		fmt.Fprintf(buf, "1 0 0 1 %s %s Tm\n%s Tj\n", num(x), num(y), hexString(line))
		y -= leading
	}
}

// wrap splits text into lines that fit avail, breaking at spaces.
func wrap(text []byte, avail, size float64) [][]byte {
	words := bytes.Fields(text)
	var lines [][]byte
	var line []byte
	for _, word := range words {
		candidate := word
		if len(line) > 0 {
			candidate = append(append(append([]byte{}, line...), ' '), word...)
		}
		if len(line) > 0 && textWidth(candidate, size) > avail {
			lines = append(lines, line)
			line = append([]byte{}, word...)
			continue
		}
		line = candidate
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}
	return lines
}

func alignX(textW, width float64, quadding int) float64 {
	switch quadding {
	case 1:
		return (width - textW) / 2
	case 2:
		return width - textPadding - textW
	default:
		return textPadding
	}
}

func autoFontSize(text []byte, width, height float64, multiline bool) float64 {
	if multiline {
		return defaultFontSize
	}
	size := math.Min(maxAutoFontSize, (height-2*textPadding)/capHeightRatio*0.8)
	if tw := textWidth(text, size); tw > 0 && tw > width-2*textPadding {
		size *= (width - 2*textPadding) / tw
	}
	return math.Max(size, minAutoFontSize)
}

// appearanceFont picks the form's DR font when it is WinAnsi-encoded,
// otherwise a shared Helvetica WinAnsi font.
func (d *Document) appearanceFont(name string) (types.Object, string) {
	if name != "" && d.acroForm != nil {
		if dr := d.dictOf(d.acroForm["DR"]); dr != nil {
			if fonts := d.dictOf(dr["Font"]); fonts != nil {
				if obj, ok := fonts[name]; ok {
					if enc, _ := d.nameOf(d.dictOf(obj)["Encoding"]); enc == "WinAnsiEncoding" {
						return obj, name
					}
				}
			}
		}
	}

	if d.helvetica == nil {
		ref := d.add(types.Dict{
			"Type":     types.Name("Font"),
			"Subtype":  types.Name("Type1"),
			"BaseFont": types.Name("Helvetica"),
			"Encoding": types.Name("WinAnsiEncoding"),
		})
		d.helvetica = &ref
	}
	return *d.helvetica, defaultFontName
}

// checkAppearance draws a ZapfDingbats check mark sized to r.
func (d *Document) checkAppearance(r rect) types.IndirectRef {
	if d.zapf == nil {
		ref := d.add(types.Dict{
			"Type":     types.Name("Font"),
			"Subtype":  types.Name("Type1"),
			"BaseFont": types.Name("ZapfDingbats"),
		})
		d.zapf = &ref
	}

	w, h := r.width(), r.height()
	size := math.Min(w, h) * 0.8
	x := (w - size*0.846) / 2
	y := (h - size*0.7) / 2
	content := fmt.Sprintf("q\nBT\n/ZaDb %s Tf\n0 g\n1 0 0 1 %s %s Tm\n(4) Tj\nET\nQ\n", num(size), num(x), num(y))
	resources := types.Dict{"Font": types.Dict{"ZaDb": *d.zapf}}
	return d.formXObject(newRect(0, 0, w, h), resources, []byte(content))
}

// formXObject registers a new unfiltered form XObject.
func (d *Document) formXObject(bbox rect, resources types.Dict, content []byte) types.IndirectRef {
	if content == nil {
		content = []byte{}
	}
	dict := types.Dict{
		"Type":    types.Name("XObject"),
		"Subtype": types.Name("Form"),
		"BBox": types.Array{
			types.Float(bbox.llx), types.Float(bbox.lly),
			types.Float(bbox.urx), types.Float(bbox.ury),
		},
		"Length": types.Integer(len(content)),
	}
	if resources != nil {
		dict["Resources"] = resources
	}
	return d.add(types.StreamDict{Dict: dict, Raw: content, Content: content})
}

func textWidth(text []byte, size float64) float64 {
	total := 0.0
	for _, c := range text {
		total += charWidth(c)
	}
	return total * size / 1000
}

func charWidth(c byte) float64 {
	if c >= 32 && c <= 126 {
		return float64(helveticaWidths[c-32])
	}
	return 556
}

// num formats a content-stream number with at most three decimals.
func num(f float64) string {
	f = math.Round(f*1000) / 1000
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// helveticaWidths holds Helvetica advance widths for codes 32..126.
var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}
