package acroform

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-cerfa/internal/pdf/acroform/acroformtest"
)

func sampleTemplate() []byte {
	return acroformtest.Build([]acroformtest.Field{
		{Name: "last_name", Kind: acroformtest.Text},
		{Name: "first_name", Kind: acroformtest.Text, Value: "placeholder"},
		{Name: "sex_m", Kind: acroformtest.Checkbox},
		{Name: "sex_f", Kind: acroformtest.Checkbox, OnState: "On"},
		{Name: "child", Kind: acroformtest.Text, Parent: "section"},
		{Name: "postal", Kind: acroformtest.Text, MaxLen: 5, Comb: true},
		{Name: "notes", Kind: acroformtest.Text, Multiline: true, Rect: [4]float64{300, 100, 500, 160}},
	})
}

func openSample(t *testing.T) *Document {
	t.Helper()
	doc, err := Open(sampleTemplate())
	require.NoError(t, err)
	return doc
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not a pdf", data: []byte("this is not a PDF document")},
		{name: "truncated", data: sampleTemplate()[:64]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Open(tt.data)
			assert.Error(t, err)
			assert.Nil(t, doc)
		})
	}
}

func TestOpen_IndexesFields(t *testing.T) {
	doc := openSample(t)

	assert.True(t, doc.HasForm())
	assert.Equal(t, 1, doc.PageCount())

	var names []string
	for _, f := range doc.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"last_name", "first_name", "sex_m", "sex_f", "section.child", "postal", "notes"}, names)

	tests := []struct {
		name      string
		fieldType FieldType
		value     string
		checked   bool
	}{
		{name: "last_name", fieldType: FieldTypeText},
		{name: "first_name", fieldType: FieldTypeText, value: "placeholder"},
		{name: "sex_m", fieldType: FieldTypeCheckbox, value: "Off"},
		{name: "section.child", fieldType: FieldTypeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := doc.Field(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.fieldType, f.Type)
			assert.Equal(t, tt.value, f.Value)
			assert.Equal(t, tt.checked, f.Checked())
		})
	}

	postal, ok := doc.Field("postal")
	require.True(t, ok)
	assert.True(t, postal.Comb())
	assert.Equal(t, 5, postal.MaxLen)

	notes, ok := doc.Field("notes")
	require.True(t, ok)
	assert.True(t, notes.Multiline())
}

func TestOnStates(t *testing.T) {
	doc := openSample(t)

	m, _ := doc.Field("sex_m")
	f, _ := doc.Field("sex_f")
	assert.Equal(t, []string{"Yes"}, doc.OnStates(m))
	assert.Equal(t, []string{"On"}, doc.OnStates(f))
}

func TestWrite_RoundTripKeepsForm(t *testing.T) {
	doc := openSample(t)

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-1.7")))

	reopened, err := Open(out)
	require.NoError(t, err)
	assert.True(t, reopened.HasForm())
	assert.Len(t, reopened.Fields(), len(doc.Fields()))

	f, ok := reopened.Field("first_name")
	require.True(t, ok)
	assert.Equal(t, "placeholder", f.Value)
}

func TestWrite_Deterministic(t *testing.T) {
	render := func() []byte {
		doc := openSample(t)
		require.NoError(t, doc.SetText("last_name", "Dupont"))
		require.NoError(t, doc.SetChecked("sex_m", true))
		require.NoError(t, doc.Flatten())
		out, err := doc.Bytes()
		require.NoError(t, err)
		return out
	}

	first := render()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, render(), "render %d differs", i)
	}
}

func TestWrite_KeepsTrailerID(t *testing.T) {
	doc := openSample(t)
	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(string(out)), "/ID [<0123456789ABCDEF0123456789ABCDEF> <0123456789ABCDEF0123456789ABCDEF>]")
	assert.NotContains(t, string(out), "ModDate")
}
