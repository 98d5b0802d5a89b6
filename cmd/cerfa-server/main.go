package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-cerfa/internal/api"
	"github.com/a3tai/mcp-cerfa/internal/cerfa"
	"github.com/a3tai/mcp-cerfa/internal/config"
	"github.com/a3tai/mcp-cerfa/internal/generation"
	"github.com/a3tai/mcp-cerfa/internal/logger"
	"github.com/a3tai/mcp-cerfa/internal/mcp"
	"github.com/a3tai/mcp-cerfa/internal/records"
	"github.com/a3tai/mcp-cerfa/internal/storage"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// templateSource picks the template location. store may be nil when no
// object storage is configured.
func templateSource(cfg *config.Config, store *storage.MinioStore) (cerfa.TemplateSource, error) {
	if cfg.Template.Object != "" {
		if store == nil {
			return nil, fmt.Errorf("template object %s requires object storage", cfg.Template.Object)
		}
		return storage.ObjectTemplate{Store: store, Key: cfg.Template.Object}, nil
	}
	return cerfa.FileTemplate{Path: cfg.Template.Path}, nil
}

// openStore connects to object storage when it is configured.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.MinioStore, error) {
	if !cfg.Storage.Enabled() {
		return nil, nil
	}
	store, err := storage.NewMinioStore(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// runServerMode serves the HTTP API until ctx is cancelled.
func runServerMode(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	src, err := templateSource(cfg, store)
	if err != nil {
		return err
	}

	db, err := records.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	repo := records.NewRepository(db)

	generator := cerfa.NewGenerator(src, cerfa.WithLogger(logger))
	service := generation.NewService(repo, repo, store, generator,
		generation.WithLogger(logger),
		generation.WithFormVersion(cfg.FormVersion),
	)

	handler := api.NewCerfaHandler(service, generator.FieldMap(), logger)
	router := api.NewRouter(handler, cfg.Auth.JWTSecret, logger)
	return api.NewServer(cfg.Address(), router, logger).Run(ctx)
}

// runStdioMode serves MCP on stdin/stdout. The parent process controls the
// lifecycle: closing stdin stops the server.
func runStdioMode(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	src, err := templateSource(cfg, store)
	if err != nil {
		return err
	}

	opts := []mcp.Option{mcp.WithLogger(logger)}
	if cfg.Database.Enabled() {
		db, err := records.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		opts = append(opts, mcp.WithHistory(records.NewRepository(db)))
	}

	server, err := mcp.NewServer(cfg, cerfa.NewGenerator(src, cerfa.WithLogger(logger)), opts...)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	zapLogger := logger.Must(cfg.LogLevel, cfg.LogFormat, cfg.IsStdioMode())
	defer func() { _ = zapLogger.Sync() }()

	if cfg.IsDebug() {
		zapLogger.Debug("starting", zap.String("config", cfg.String()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if cfg.IsServerMode() {
		err = runServerMode(ctx, cfg, zapLogger)
	} else {
		err = runStdioMode(ctx, cfg, zapLogger)
	}
	if err != nil {
		zapLogger.Error("server stopped with error", zap.Error(err))
		stop()
		os.Exit(1)
	}
	zapLogger.Info("server stopped")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("CERFA service\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
