package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ValidationResult describes whether a PDF could be read back independently.
type ValidationResult struct {
	Path    string `json:"path,omitempty"`
	Valid   bool   `json:"valid"`
	Pages   int    `json:"pages"`
	Size    int64  `json:"size"`
	Message string `json:"message,omitempty"`
}

// Validator checks PDFs with a reader that shares no code with the writer,
// so a generated document is known to open outside this service.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile validates a PDF on disk.
func (v *Validator) ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{Path: path}

	data, err := v.readFile(path)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // Return result with validation error, not a processing error
	}

	v.check(data, result)
	return result, nil
}

// ValidateBytes validates an in-memory PDF.
func (v *Validator) ValidateBytes(data []byte) *ValidationResult {
	result := &ValidationResult{}
	v.check(data, result)
	return result
}

func (v *Validator) readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, fmt.Errorf("file is not a PDF: %s", path)
	}

	return os.ReadFile(path)
}

func (v *Validator) check(data []byte, result *ValidationResult) {
	result.Size = int64(len(data))

	if len(data) == 0 {
		result.Message = "file is empty"
		return
	}
	if v.maxFileSize > 0 && result.Size > v.maxFileSize {
		result.Message = fmt.Sprintf("file too large: %d bytes (max: %d bytes)", result.Size, v.maxFileSize)
		return
	}

	pages, err := countPages(data)
	if err != nil {
		result.Message = fmt.Sprintf("invalid PDF file: %v", err)
		return
	}
	if pages == 0 {
		result.Message = "PDF has no pages"
		return
	}

	result.Pages = pages
	result.Valid = true
}

// countPages opens data with ledongthuc/pdf and touches every page.
func countPages(data []byte) (n int, err error) {
	defer func() {
		// The reader panics on some malformed inputs.
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}

	n = r.NumPage()
	for i := 1; i <= n; i++ {
		if r.Page(i).V.IsNull() {
			return 0, fmt.Errorf("page %d cannot be resolved", i)
		}
	}
	return n, nil
}
