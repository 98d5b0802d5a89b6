package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-cerfa/internal/pdf/acroform"
	"github.com/a3tai/mcp-cerfa/internal/pdf/acroform/acroformtest"
)

func flattenedFixture(t *testing.T) []byte {
	t.Helper()
	doc, err := acroform.Open(acroformtest.Build([]acroformtest.Field{
		{Name: "name", Kind: acroformtest.Text},
		{Name: "ok", Kind: acroformtest.Checkbox},
	}))
	require.NoError(t, err)
	require.NoError(t, doc.SetText("name", "Centre ABC"))
	require.NoError(t, doc.SetChecked("ok", true))
	require.NoError(t, doc.Flatten())
	out, err := doc.Bytes()
	require.NoError(t, err)
	return out
}

func TestValidator_ValidateBytes(t *testing.T) {
	validator := NewValidator(1024 * 1024)

	tests := []struct {
		name        string
		data        []byte
		expectValid bool
		expectPages int
	}{
		{name: "template", data: acroformtest.Build(nil), expectValid: true, expectPages: 1},
		{name: "flattened output", data: flattenedFixture(t), expectValid: true, expectPages: 1},
		{name: "empty", data: nil},
		{name: "garbage", data: []byte("%PDF-1.7\nnot really a pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.ValidateBytes(tt.data)
			assert.Equal(t, tt.expectValid, result.Valid, result.Message)
			assert.Equal(t, tt.expectPages, result.Pages)
			if !tt.expectValid {
				assert.NotEmpty(t, result.Message)
			}
		})
	}
}

func TestValidator_SizeLimit(t *testing.T) {
	validator := NewValidator(16)
	result := validator.ValidateBytes(acroformtest.Build(nil))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "too large")
}

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "cerfa.pdf")
	require.NoError(t, os.WriteFile(good, flattenedFixture(t), 0o600))
	notPDF := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("hello"), 0o600))

	validator := NewValidator(1024 * 1024)

	tests := []struct {
		name        string
		path        string
		expectValid bool
	}{
		{name: "valid", path: good, expectValid: true},
		{name: "empty path", path: ""},
		{name: "missing", path: filepath.Join(dir, "missing.pdf")},
		{name: "directory", path: dir},
		{name: "wrong extension", path: notPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateFile(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.path, result.Path)
			assert.Equal(t, tt.expectValid, result.Valid, result.Message)
		})
	}
}
