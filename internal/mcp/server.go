package mcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
	"github.com/a3tai/mcp-cerfa/internal/config"
	"github.com/a3tai/mcp-cerfa/internal/descriptions"
	"github.com/a3tai/mcp-cerfa/internal/metrics"
	"github.com/a3tai/mcp-cerfa/internal/pdf"
	"github.com/a3tai/mcp-cerfa/internal/records"
)

// History lists stored generation records.
type History interface {
	ListByContract(ctx context.Context, contractID string) ([]records.GenerationRecord, error)
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	generator *cerfa.Generator
	validator *pdf.Validator
	history   History
	logger    *zap.Logger
	mcpServer *server.MCPServer
	now       func() time.Time
}

type Option func(*Server)

// WithHistory enables cerfa_list.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, generator *cerfa.Generator, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		generator: generator,
		validator: pdf.NewValidator(cfg.MaxFileSize),
		logger:    zap.NewNop(),
		mcpServer: mcpServer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(
		"cerfa_generate",
		mcp.WithDescription(descriptions.GetToolDescription("cerfa_generate")),
		mcp.WithString("data",
			mcp.Required(),
			mcp.Description("Contract form data as a JSON object"),
		),
		mcp.WithString("output",
			mcp.Description("Output file name or path (defaults to a generated name in the output directory)"),
		),
	), s.handleGenerate)

	s.addTool(mcp.NewTool(
		"cerfa_list",
		mcp.WithDescription(descriptions.GetToolDescription("cerfa_list")),
		mcp.WithString("contract_id",
			mcp.Required(),
			mcp.Description("Contract id"),
		),
	), s.handleList)

	s.addTool(mcp.NewTool(
		"cerfa_field_map",
		mcp.WithDescription(descriptions.GetToolDescription("cerfa_field_map")),
	), s.handleFieldMap)

	s.addTool(mcp.NewTool(
		"cerfa_template_fields",
		mcp.WithDescription(descriptions.GetToolDescription("cerfa_template_fields")),
	), s.handleTemplateFields)

	s.addTool(mcp.NewTool(
		"cerfa_validate_pdf",
		mcp.WithDescription(descriptions.GetToolDescription("cerfa_validate_pdf")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	), s.handleValidatePDF)
}

// addTool registers a handler and counts its calls by outcome.
func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := handler(ctx, request)
		outcome := metrics.OutcomeSuccess
		if err != nil || (result != nil && result.IsError) {
			outcome = metrics.OutcomeFailure
		}
		metrics.MCPToolCalls.WithLabelValues(tool.Name, outcome).Inc()
		return result, err
	})
}

// Handler functions
func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	output := ""
	if o, ok := request.GetArguments()["output"].(string); ok {
		output = o
	}
	path, err := s.outputPath(output, []byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.generator.FillJSON(ctx, []byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := os.WriteFile(path, result.PDF, 0o644); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write %s: %v", path, err)), nil
	}
	s.logger.Info("generate_cerfa",
		zap.String("path", path),
		zap.Int("fields_written", result.FieldsWritten),
		zap.Int("warnings", len(result.Warnings)))

	check := s.validator.ValidateBytes(result.PDF)
	return mcp.NewToolResultText(s.formatGenerateResult(path, result, check)), nil
}

// outputPath resolves the requested output against the output directory.
func (s *Server) outputPath(output string, raw []byte) (string, error) {
	if output == "" {
		label := "form"
		if data, _, err := cerfa.DecodeFormData(raw); err == nil && data.ContractNumber != "" {
			label = data.ContractNumber
		} else if err == nil && data.ID != "" {
			label = data.ID
		}
		label = strings.Map(func(r rune) rune {
			if r == '/' || r == '\\' || r == ' ' {
				return '_'
			}
			return r
		}, label)
		output = "cerfa-" + label + "-" + strconv.FormatInt(s.now().UnixMilli(), 10) + ".pdf"
	}

	if !strings.EqualFold(filepath.Ext(output), ".pdf") {
		return "", fmt.Errorf("output must be a .pdf file: %s", output)
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(s.config.OutputDirectory, output)
	}
	return filepath.Clean(output), nil
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contractID, err := request.RequireString("contract_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.history == nil {
		return mcp.NewToolResultError("cerfa_list requires a database; set database.dsn"), nil
	}

	list, err := s.history.ListByContract(ctx, contractID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(list) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No CERFA generated for contract %s", contractID)), nil
	}

	text := fmt.Sprintf("Found %d CERFA document(s) for contract %s\n", len(list), contractID)
	for i, rec := range list {
		text += fmt.Sprintf("\n%d. %s\n", i+1, rec.ID)
		text += fmt.Sprintf("   Generated: %s by %s\n", rec.GeneratedAt.Format(time.RFC3339), rec.UserID)
		text += fmt.Sprintf("   Form: %s, field mapping %s\n", rec.FormVersion, rec.FieldMappingVersion)
		text += fmt.Sprintf("   Object: %s\n", rec.ObjectPath)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFieldMap(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m := s.generator.FieldMap()

	text := fmt.Sprintf("CERFA %s field map, version %s (%d fields)\n\n", cerfa.FormVersion, m.Version(), m.Len())
	for _, id := range m.IDs() {
		mapping, _ := m.Lookup(id)
		if mapping.Kind == cerfa.MappingPair {
			text += fmt.Sprintf("%s → yes: %s, no: %s\n", id, mapping.Yes, mapping.No)
			continue
		}
		text += fmt.Sprintf("%s → %s\n", id, mapping.Name)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTemplateFields(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := cerfa.InspectTemplate(ctx, s.generator.Template(), s.generator.FieldMap())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTemplateReport(report)), nil
}

func (s *Server) handleValidatePDF(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.validator.ValidateFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d pages, %d bytes)", result.Path, result.Pages, result.Size)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}
	return mcp.NewToolResultText(responseText), nil
}

// Formatting methods
func (s *Server) formatGenerateResult(path string, result *cerfa.Result, check *pdf.ValidationResult) string {
	text := fmt.Sprintf("Generated CERFA %s: %s\n", cerfa.FormVersion, path)
	text += fmt.Sprintf("Size: %d bytes\n", len(result.PDF))
	if check.Valid {
		text += fmt.Sprintf("Pages: %d\n", check.Pages)
	} else {
		text += fmt.Sprintf("⚠️  Output did not pass validation: %s\n", check.Message)
	}
	text += fmt.Sprintf("Fields written: %d\n", result.FieldsWritten)
	text += fmt.Sprintf("Field mapping version: %s\n", result.FieldMappingVersion)

	if len(result.Warnings) > 0 {
		text += fmt.Sprintf("\nSkipped fields (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			text += "  • " + w.String() + "\n"
		}
	}
	return text
}

func formatTemplateReport(r *cerfa.TemplateReport) string {
	text := fmt.Sprintf("Template: %s\n", r.Source)
	text += fmt.Sprintf("Pages: %d\n", r.Pages)
	text += fmt.Sprintf("Fields: %d (%d mapped)\n", len(r.Fields), r.Mapped)
	text += fmt.Sprintf("Field mapping version: %s\n", r.FieldMappingVersion)
	if r.Complete() {
		text += "✅ Every mapped field exists in the template\n"
	}

	writeList := func(title string, names []string) {
		if len(names) == 0 {
			return
		}
		text += fmt.Sprintf("\n%s (%d):\n", title, len(names))
		for _, name := range names {
			text += "  • " + name + "\n"
		}
	}
	writeList("Missing from template", r.MissingInTemplate)
	writeList("Wrong field type", r.WrongType)
	writeList("Not used by the field map", r.Unmapped)

	text += "\nTemplate fields:\n"
	for _, f := range r.Fields {
		text += fmt.Sprintf("  %s [%s]", f.Name, f.Type)
		if f.FieldID != "" {
			text += fmt.Sprintf(" ← %s", f.FieldID)
			if f.Role != "text" {
				text += " (" + f.Role + ")"
			}
		}
		if f.MaxLen > 0 {
			text += fmt.Sprintf(" max %d", f.MaxLen)
		}
		text += "\n"
	}
	return text
}

// Run serves MCP over stdin/stdout until ctx is cancelled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("starting CERFA MCP server in stdio mode",
		zap.String("template", s.config.TemplateSource()),
		zap.String("output_dir", s.config.OutputDirectory))

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
