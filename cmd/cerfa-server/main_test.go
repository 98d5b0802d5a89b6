package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-cerfa/internal/config"
	"github.com/a3tai/mcp-cerfa/internal/storage"
)

func TestPrintVersion(t *testing.T) {
	originalStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version = "1.2.3"
	buildTime = "2025-06-01_10:30:00"
	gitCommit = "abc123"

	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
		os.Stdout = originalStdout
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done

	output := buf.String()
	for _, expected := range []string{
		"CERFA service",
		"Version: 1.2.3",
		"Build Time: 2025-06-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestTemplateSource(t *testing.T) {
	store, err := storage.NewMinioStore(config.StorageConfig{
		Endpoint: "127.0.0.1:9000",
		Bucket:   "cerfa",
		Region:   config.DefaultRegion,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	tests := []struct {
		name        string
		template    config.TemplateConfig
		store       *storage.MinioStore
		want        string
		expectError bool
	}{
		{name: "file", template: config.TemplateConfig{Path: "/srv/cerfa.pdf"}, want: "file:/srv/cerfa.pdf"},
		{name: "object", template: config.TemplateConfig{Object: "templates/cerfa.pdf"}, store: store, want: "object:cerfa/templates/cerfa.pdf"},
		{name: "object wins over file", template: config.TemplateConfig{Path: "/srv/cerfa.pdf", Object: "templates/cerfa.pdf"}, store: store, want: "object:cerfa/templates/cerfa.pdf"},
		{name: "object without storage", template: config.TemplateConfig{Object: "templates/cerfa.pdf"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Template = tt.template

			src, err := templateSource(cfg, tt.store)
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src.String() != tt.want {
				t.Errorf("templateSource() = %s, want %s", src.String(), tt.want)
			}
		})
	}
}

func TestOpenStore_Disabled(t *testing.T) {
	store, err := openStore(context.Background(), config.DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store != nil {
		t.Error("no store expected without a storage endpoint")
	}
}

func TestRunStdioMode_ObjectTemplateWithoutStorage(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Template.Object = "templates/cerfa.pdf"

	err := runStdioMode(context.Background(), cfg, zap.NewNop())
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if !strings.Contains(err.Error(), "requires object storage") {
		t.Errorf("unexpected error: %v", err)
	}
}
