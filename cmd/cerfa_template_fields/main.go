package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
	"github.com/a3tai/mcp-cerfa/internal/pdf"
)

const maxFileSize = 50 * 1024 * 1024

type options struct {
	format string
	strict bool
	fill   string
	output string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cerfa_template_fields", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.BoolVar(&opts.strict, "strict", false, "Exit with status 2 when mapped fields are missing or mistyped")
	fs.StringVar(&opts.fill, "fill", "", "Contract form data (JSON file) to fill the template with")
	fs.StringVar(&opts.output, "o", "", "Where the filled PDF is written (with -fill)")
	fs.Usage = func() { printHelp(stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(stderr, "Error: template path required\n\n")
		printUsage(stderr)
		return 1
	}

	templatePath, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if _, err := os.Stat(templatePath); os.IsNotExist(err) {
		fmt.Fprintf(stderr, "Error: File not found: %s\n", templatePath)
		return 1
	}

	ctx := context.Background()
	src := cerfa.FileTemplate{Path: templatePath}
	report, err := cerfa.InspectTemplate(ctx, src, cerfa.DefaultFieldMap())
	if err != nil {
		fmt.Fprintf(stderr, "Error inspecting template: %v\n", err)
		return 1
	}

	if err := outputReport(stdout, opts.format, report); err != nil {
		fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
		return 1
	}

	if opts.fill != "" {
		if err := fillTemplate(ctx, stdout, templatePath, opts); err != nil {
			fmt.Fprintf(stderr, "Error filling template: %v\n", err)
			return 1
		}
	}

	if opts.strict && !report.Complete() {
		return 2
	}
	return 0
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "CERFA Template Fields - Check a blank CERFA 10103*10 template against the field map")
	fmt.Fprintln(w)
	printUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprintln(w, "  -format        Output format: text (default), json")
	fmt.Fprintln(w, "  -strict        Exit with status 2 when the template does not cover the field map")
	fmt.Fprintln(w, "  -fill          Fill the template with a contract form data JSON file")
	fmt.Fprintln(w, "  -o             Output path of the filled PDF (default: <template>-filled.pdf)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  cerfa_template_fields cerfa_10103-10.pdf")
	fmt.Fprintln(w, "  cerfa_template_fields -format json -strict cerfa_10103-10.pdf")
	fmt.Fprintln(w, "  cerfa_template_fields -fill contract.json -o out.pdf cerfa_10103-10.pdf")
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  cerfa_template_fields [OPTIONS] <template.pdf>")
}

func outputReport(w io.Writer, format string, report *cerfa.TemplateReport) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "text":
		outputText(w, report)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputText(w io.Writer, report *cerfa.TemplateReport) {
	fmt.Fprintf(w, "Template: %s (%d pages)\n", report.Source, report.Pages)
	fmt.Fprintf(w, "Field mapping version: %s\n", report.FieldMappingVersion)
	if report.Complete() {
		fmt.Fprintf(w, "✅ %d fields, %d mapped, every mapped field present\n", len(report.Fields), report.Mapped)
	} else {
		fmt.Fprintf(w, "⚠️  %d fields, %d mapped, %d missing, %d of the wrong type\n",
			len(report.Fields), report.Mapped, len(report.MissingInTemplate), len(report.WrongType))
	}
	fmt.Fprintln(w)

	for i, f := range report.Fields {
		fmt.Fprintf(w, "[%d] %s\n", i+1, f.Name)
		fmt.Fprintf(w, "    Type: %s\n", f.Type)
		if f.FieldID != "" {
			fmt.Fprintf(w, "    Field id: %s (%s)\n", f.FieldID, f.Role)
		}
		if f.Value != "" {
			fmt.Fprintf(w, "    Value: %s\n", f.Value)
		}
		if f.MaxLen > 0 {
			fmt.Fprintf(w, "    Max Length: %d\n", f.MaxLen)
		}
	}

	printList(w, "MISSING FROM TEMPLATE", report.MissingInTemplate)
	printList(w, "WRONG FIELD TYPE", report.WrongType)
	printList(w, "NOT USED BY THE FIELD MAP", report.Unmapped)
}

func printList(w io.Writer, title string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	for _, name := range names {
		fmt.Fprintf(w, "  • %s\n", name)
	}
}

// fillTemplate fills the template with the form data file and checks the
// output with the independent reader.
func fillTemplate(ctx context.Context, w io.Writer, templatePath string, opts options) error {
	raw, err := os.ReadFile(opts.fill)
	if err != nil {
		return err
	}

	result, err := cerfa.NewGenerator(cerfa.FileTemplate{Path: templatePath}).FillJSON(ctx, raw)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(templatePath, filepath.Ext(templatePath)) + "-filled.pdf"
	}
	if err := os.WriteFile(output, result.PDF, 0o644); err != nil {
		return err
	}

	check := pdf.NewValidator(maxFileSize).ValidateBytes(result.PDF)
	if !check.Valid {
		return fmt.Errorf("filled document %s is not readable: %s", output, check.Message)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Filled %s: %d fields written, %d pages\n", output, result.FieldsWritten, check.Pages)
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  ⚠️  %s\n", warning)
	}
	return nil
}
