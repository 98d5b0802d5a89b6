package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
	"github.com/a3tai/mcp-cerfa/internal/config"
	"github.com/a3tai/mcp-cerfa/internal/pdf/acroform/acroformtest"
	"github.com/a3tai/mcp-cerfa/internal/records"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testTemplate(t *testing.T) []byte {
	t.Helper()

	m := cerfa.DefaultFieldMap()
	var fields []acroformtest.Field
	for _, id := range []string{"apprentice.lastName", "apprentice.firstName", "employer.name"} {
		mapping, ok := m.Lookup(id)
		if !ok {
			t.Fatalf("field %s is not mapped", id)
		}
		fields = append(fields, acroformtest.Field{Name: mapping.Name, Kind: acroformtest.Text})
	}
	sex, ok := m.Lookup("apprentice.sex")
	if !ok {
		t.Fatal("apprentice.sex is not mapped")
	}
	fields = append(fields,
		acroformtest.Field{Name: sex.Yes, Kind: acroformtest.Checkbox},
		acroformtest.Field{Name: sex.No, Kind: acroformtest.Checkbox},
		acroformtest.Field{Name: "text_unused", Kind: acroformtest.Text},
	)
	return acroformtest.Build(fields)
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	cfg := &config.Config{
		Mode:            "stdio",
		OutputDirectory: t.TempDir(),
		Version:         "1.0.0",
		ServerName:      "test-server",
		MaxFileSize:     1024 * 1024,
	}
	generator := cerfa.NewGenerator(cerfa.StaticTemplate(testTemplate(t)))

	server, err := NewServer(cfg, generator, opts...)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	server.now = func() time.Time { return fixedNow }
	return server
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

type fakeHistory struct {
	list []records.GenerationRecord
	err  error
}

func (f *fakeHistory) ListByContract(_ context.Context, _ string) ([]records.GenerationRecord, error) {
	return f.list, f.err
}

func TestNewServer(t *testing.T) {
	generator := cerfa.NewGenerator(cerfa.StaticTemplate(acroformtest.Build(nil)))
	cfg := config.DefaultConfig()

	tests := []struct {
		name        string
		config      *config.Config
		generator   *cerfa.Generator
		expectError bool
	}{
		{name: "valid config", config: cfg, generator: generator},
		{name: "nil config", config: nil, generator: generator, expectError: true},
		{name: "nil generator", config: cfg, generator: nil, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, tt.generator)

			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if server.mcpServer == nil {
				t.Error("MCP server should be initialized")
			}
			if server.validator == nil {
				t.Error("validator should be initialized")
			}
		})
	}
}

func TestServer_HandleGenerate(t *testing.T) {
	server := newTestServer(t)

	data := `{"contractNumber":"C-2025/001","apprentice":{"lastName":"Dupont","firstName":"Jean","sex":"M","nir":"1"},"unknown":{"x":"y"}}`
	result, err := server.handleGenerate(context.Background(), callRequest(map[string]any{"data": data}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := extractTextFromResult(result)
	if result.IsError {
		t.Fatalf("expected success, got: %s", text)
	}

	want := filepath.Join(server.config.OutputDirectory, "cerfa-C-2025_001-1748779200000.pdf")
	if !strings.Contains(text, want) {
		t.Errorf("result should name the output file %s, got: %s", want, text)
	}
	if !strings.Contains(text, "Pages: 1") {
		t.Errorf("generated file should pass validation, got: %s", text)
	}
	if !strings.Contains(text, "Field mapping version: "+cerfa.FieldMappingVersion) {
		t.Errorf("result should carry the field mapping version, got: %s", text)
	}
	if !strings.Contains(text, "Skipped fields") || !strings.Contains(text, "unknown: unmapped") {
		t.Errorf("result should report the skipped fields, got: %s", text)
	}

	written, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	sex, _ := cerfa.DefaultFieldMap().Lookup("apprentice.sex")
	if !strings.Contains(string(written), acroformtest.OnMarker(sex.Yes)) {
		t.Error("male checkbox should be checked in the output")
	}
}

func TestServer_HandleGenerate_MistypedValues(t *testing.T) {
	server := newTestServer(t)

	data := `{"contractNumber":"C-2","apprentice":{"lastName":"Dupont","sex":true},"contract":{"dangerousMachines":"false"}}`
	result, err := server.handleGenerate(context.Background(), callRequest(map[string]any{"data": data}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := extractTextFromResult(result)
	if result.IsError {
		t.Fatalf("mistyped values should be skipped, got: %s", text)
	}
	for _, want := range []string{
		"apprentice.sex: invalid_value",
		"contract.dangerousMachines: invalid_value",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("result should report %q, got: %s", want, text)
		}
	}
	if _, err := os.Stat(filepath.Join(server.config.OutputDirectory, "cerfa-C-2-1748779200000.pdf")); err != nil {
		t.Errorf("output file not written: %v", err)
	}
}

func TestServer_HandleGenerate_InvalidArguments(t *testing.T) {
	server := newTestServer(t)
	outside := filepath.Join(t.TempDir(), "missing", "out.pdf")

	tests := []struct {
		name     string
		args     map[string]any
		contains string
	}{
		{name: "missing data", args: map[string]any{}, contains: "data"},
		{name: "not json", args: map[string]any{"data": "{"}, contains: ""},
		{name: "not an object", args: map[string]any{"data": `[]`}, contains: "invalid contract form data"},
		{name: "not a pdf name", args: map[string]any{"data": `{}`, "output": "cerfa.txt"}, contains: "must be a .pdf file"},
		{name: "unwritable directory", args: map[string]any{"data": `{}`, "output": outside}, contains: "failed to write"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleGenerate(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler errors are reported in the result, got: %v", err)
			}
			if !result.IsError {
				t.Fatalf("expected an error result, got: %s", extractTextFromResult(result))
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.contains) {
				t.Errorf("error %q should contain %q", text, tt.contains)
			}
		})
	}
}

func TestServer_OutputPath(t *testing.T) {
	server := newTestServer(t)
	dir := server.config.OutputDirectory
	abs := filepath.Join(t.TempDir(), "abs.PDF")

	tests := []struct {
		name   string
		output string
		data   string
		want   string
	}{
		{name: "contract number", data: `{"contractNumber":"C 1"}`, want: filepath.Join(dir, "cerfa-C_1-1748779200000.pdf")},
		{name: "contract id", data: `{"id":"7c1e"}`, want: filepath.Join(dir, "cerfa-7c1e-1748779200000.pdf")},
		{name: "no identity", data: `{}`, want: filepath.Join(dir, "cerfa-form-1748779200000.pdf")},
		{name: "relative", output: "sub/../out.pdf", data: `{}`, want: filepath.Join(dir, "out.pdf")},
		{name: "absolute", output: abs, data: `{}`, want: abs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := server.outputPath(tt.output, []byte(tt.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("outputPath() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestServer_HandleList(t *testing.T) {
	ctx := context.Background()
	req := callRequest(map[string]any{"contract_id": "contract-1"})

	t.Run("without database", func(t *testing.T) {
		server := newTestServer(t)
		result, _ := server.handleList(ctx, req)
		if !result.IsError || !strings.Contains(extractTextFromResult(result), "database") {
			t.Errorf("expected a database error, got: %s", extractTextFromResult(result))
		}
	})

	t.Run("empty history", func(t *testing.T) {
		server := newTestServer(t, WithHistory(&fakeHistory{list: []records.GenerationRecord{}}))
		result, _ := server.handleList(ctx, req)
		if text := extractTextFromResult(result); !strings.Contains(text, "No CERFA generated for contract contract-1") {
			t.Errorf("unexpected result: %s", text)
		}
	})

	t.Run("records", func(t *testing.T) {
		rec := records.GenerationRecord{
			ID:                  uuid.New(),
			ContractID:          "contract-1",
			UserID:              "user-1",
			FormVersion:         cerfa.FormVersion,
			ObjectPath:          "cerfas/cerfa-C-1.pdf",
			FieldMappingVersion: cerfa.FieldMappingVersion,
			GeneratedAt:         fixedNow,
		}
		server := newTestServer(t, WithHistory(&fakeHistory{list: []records.GenerationRecord{rec}}))
		result, _ := server.handleList(ctx, req)
		text := extractTextFromResult(result)
		for _, want := range []string{"Found 1 CERFA", rec.ID.String(), "2025-06-01T12:00:00Z by user-1", "cerfas/cerfa-C-1.pdf"} {
			if !strings.Contains(text, want) {
				t.Errorf("result should contain %q, got: %s", want, text)
			}
		}
	})

	t.Run("store failure", func(t *testing.T) {
		server := newTestServer(t, WithHistory(&fakeHistory{err: errors.New("connection refused")}))
		result, _ := server.handleList(ctx, req)
		if !result.IsError {
			t.Error("expected an error result")
		}
	})
}

func TestServer_HandleFieldMap(t *testing.T) {
	server := newTestServer(t)

	result, err := server.handleFieldMap(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := extractTextFromResult(result)

	m := cerfa.DefaultFieldMap()
	sex, _ := m.Lookup("apprentice.sex")
	lastName, _ := m.Lookup("apprentice.lastName")
	for _, want := range []string{
		"version " + cerfa.FieldMappingVersion,
		"apprentice.lastName → " + lastName.Name,
		"apprentice.sex → yes: " + sex.Yes + ", no: " + sex.No,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("field map should contain %q", want)
		}
	}
}

func TestServer_HandleTemplateFields(t *testing.T) {
	server := newTestServer(t)

	result, err := server.handleTemplateFields(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := extractTextFromResult(result)
	if result.IsError {
		t.Fatalf("unexpected error result: %s", text)
	}

	for _, want := range []string{"Template: memory", "Pages: 1", "Missing from template", "Not used by the field map", "text_unused"} {
		if !strings.Contains(text, want) {
			t.Errorf("report should contain %q, got: %s", want, text)
		}
	}
}

func TestServer_HandleTemplateFields_BrokenTemplate(t *testing.T) {
	cfg := &config.Config{ServerName: "test-server", Version: "1.0.0"}
	server, err := NewServer(cfg, cerfa.NewGenerator(cerfa.StaticTemplate("not a pdf")))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	result, _ := server.handleTemplateFields(context.Background(), callRequest(nil))
	if !result.IsError {
		t.Errorf("expected an error result, got: %s", extractTextFromResult(result))
	}
}

func TestServer_HandleValidatePDF(t *testing.T) {
	server := newTestServer(t)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.pdf")
	if err := os.WriteFile(good, acroformtest.Build(nil), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.pdf")
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		args     map[string]any
		isError  bool
		contains string
	}{
		{name: "valid", args: map[string]any{"path": good}, contains: "is valid and readable (1 pages"},
		{name: "invalid", args: map[string]any{"path": bad}, contains: "PDF validation failed for " + bad},
		{name: "missing file", args: map[string]any{"path": filepath.Join(dir, "nope.pdf")}, contains: "file does not exist"},
		{name: "missing argument", args: map[string]any{}, isError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleValidatePDF(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError != tt.isError {
				t.Fatalf("IsError = %v, want %v", result.IsError, tt.isError)
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.contains) {
				t.Errorf("result %q should contain %q", text, tt.contains)
			}
		})
	}
}

func TestFormatTemplateReport(t *testing.T) {
	report := &cerfa.TemplateReport{
		Source:              "file:/srv/cerfa.pdf",
		Pages:               1,
		FieldMappingVersion: cerfa.FieldMappingVersion,
		Fields: []cerfa.TemplateField{
			{Name: "text_31tkvp", Type: "text", FieldID: "apprentice.lastName", Role: "text", MaxLen: 40},
			{Name: "checkbox_51itfw", Type: "checkbox", FieldID: "apprentice.sex", Role: "yes"},
		},
		Mapped: 2,
	}

	formatted := formatTemplateReport(report)
	for _, want := range []string{
		"Template: file:/srv/cerfa.pdf",
		"Fields: 2 (2 mapped)",
		"text_31tkvp [text] ← apprentice.lastName max 40",
		"checkbox_51itfw [checkbox] ← apprentice.sex (yes)",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("formatted report should contain %q, got: %s", want, formatted)
		}
	}
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
