package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	DefaultMaxFileSize = 20 * 1024 * 1024 // 20MB
	DefaultBucket      = "cerfa"
	DefaultRegion      = "us-east-1"
	DefaultURLExpiry   = 7 * 24 * time.Hour
	DefaultFormVersion = "10103_10"
	DefaultMaxOpen     = 10
	DefaultMaxIdle     = 5

	// MaxURLExpiry is the longest lifetime S3 SigV4 accepts for a presigned URL.
	MaxURLExpiry = 7 * 24 * time.Hour

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "CERFA"
)

// TemplateConfig says where the blank CERFA template is read from. Object
// takes precedence over Path when both are set.
type TemplateConfig struct {
	Path   string
	Object string
}

// StorageConfig is the S3-compatible bucket generated documents go to.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
	URLExpiry time.Duration
}

// Enabled reports whether an object store is configured.
func (s StorageConfig) Enabled() bool { return s.Endpoint != "" }

type DatabaseConfig struct {
	DSN     string
	MaxOpen int
	MaxIdle int
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.DSN != "" }

type AuthConfig struct {
	JWTSecret string
}

// Config holds all configuration for the CERFA service
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Directory generated documents are written to by the MCP tools
	OutputDirectory string

	Template    TemplateConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	FormVersion string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	LogFormat   string
	MaxFileSize int64 // Maximum PDF size accepted by the validator
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio,
		Host:            DefaultHost,
		Port:            DefaultPort,
		OutputDirectory: currentDir,
		Storage: StorageConfig{
			Bucket:    DefaultBucket,
			Region:    DefaultRegion,
			URLExpiry: DefaultURLExpiry,
		},
		Database: DatabaseConfig{
			MaxOpen: DefaultMaxOpen,
			MaxIdle: DefaultMaxIdle,
		},
		FormVersion: DefaultFormVersion,
		Version:     "1.0.0",
		ServerName:  "mcp-cerfa",
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
// Precedence is flags, then environment (CERFA_*), then a .env file, then
// defaults.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.OutputDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputDirectory); err == nil {
			cfg.OutputDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.OutputDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logformat", cfg.LogFormat)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("template.path", cfg.Template.Path)
	viper.SetDefault("template.object", cfg.Template.Object)
	viper.SetDefault("storage.endpoint", cfg.Storage.Endpoint)
	viper.SetDefault("storage.access_key", cfg.Storage.AccessKey)
	viper.SetDefault("storage.secret_key", cfg.Storage.SecretKey)
	viper.SetDefault("storage.bucket", cfg.Storage.Bucket)
	viper.SetDefault("storage.region", cfg.Storage.Region)
	viper.SetDefault("storage.prefix", cfg.Storage.Prefix)
	viper.SetDefault("storage.use_ssl", cfg.Storage.UseSSL)
	viper.SetDefault("storage.url_expiry", cfg.Storage.URLExpiry)
	viper.SetDefault("database.dsn", cfg.Database.DSN)
	viper.SetDefault("database.max_open", cfg.Database.MaxOpen)
	viper.SetDefault("database.max_idle", cfg.Database.MaxIdle)
	viper.SetDefault("auth.jwt_secret", cfg.Auth.JWTSecret)
	viper.SetDefault("generation.form_version", cfg.FormVersion)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for the HTTP API")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.OutputDirectory, "Directory generated PDFs are written to (stdio mode)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logformat", cfg.LogFormat, "Log format (console, json)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF size in bytes accepted for validation")
	pflag.String("template", cfg.Template.Path, "Path of the blank CERFA 10103*10 template")
	pflag.String("template-object", cfg.Template.Object, "Object key of the template in the storage bucket")
	pflag.String("storage-endpoint", cfg.Storage.Endpoint, "S3-compatible storage endpoint (host:port)")
	pflag.String("storage-bucket", cfg.Storage.Bucket, "Storage bucket for generated documents")
	pflag.Bool("storage-ssl", cfg.Storage.UseSSL, "Use TLS to reach the storage endpoint")
	pflag.String("database-dsn", cfg.Database.DSN, "PostgreSQL connection string")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("logformat", pflag.Lookup("logformat"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
	_ = viper.BindPFlag("template.path", pflag.Lookup("template"))
	_ = viper.BindPFlag("template.object", pflag.Lookup("template-object"))
	_ = viper.BindPFlag("storage.endpoint", pflag.Lookup("storage-endpoint"))
	_ = viper.BindPFlag("storage.bucket", pflag.Lookup("storage-bucket"))
	_ = viper.BindPFlag("storage.use_ssl", pflag.Lookup("storage-ssl"))
	_ = viper.BindPFlag("database.dsn", pflag.Lookup("database-dsn"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nCERFA 10103*10 generation service (HTTP API or MCP over stdio)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --template=cerfa_10103-10.pdf            "+
			"# MCP stdio mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --template-object=templates/cerfa_10103-10.pdf "+
			"--storage-endpoint=localhost:9000 --database-dsn=postgres://...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (also read from .env):\n")
		fmt.Fprintf(os.Stderr, "  CERFA_MODE                 Run mode\n")
		fmt.Fprintf(os.Stderr, "  CERFA_HOST, CERFA_PORT     Server address\n")
		fmt.Fprintf(os.Stderr, "  CERFA_LOGLEVEL             Log level\n")
		fmt.Fprintf(os.Stderr, "  CERFA_LOGFORMAT            Log format\n")
		fmt.Fprintf(os.Stderr, "  CERFA_TEMPLATE_PATH        Template file\n")
		fmt.Fprintf(os.Stderr, "  CERFA_TEMPLATE_OBJECT      Template object key\n")
		fmt.Fprintf(os.Stderr, "  CERFA_STORAGE_ENDPOINT     Storage endpoint\n")
		fmt.Fprintf(os.Stderr, "  CERFA_STORAGE_ACCESS_KEY   Storage access key\n")
		fmt.Fprintf(os.Stderr, "  CERFA_STORAGE_SECRET_KEY   Storage secret key\n")
		fmt.Fprintf(os.Stderr, "  CERFA_STORAGE_BUCKET       Storage bucket\n")
		fmt.Fprintf(os.Stderr, "  CERFA_STORAGE_PREFIX       Object key prefix\n")
		fmt.Fprintf(os.Stderr, "  CERFA_STORAGE_URL_EXPIRY   Presigned URL lifetime (e.g. 168h)\n")
		fmt.Fprintf(os.Stderr, "  CERFA_DATABASE_DSN         PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  CERFA_AUTH_JWT_SECRET      HMAC secret for bearer tokens\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.OutputDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFormat = viper.GetString("logformat")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")

	cfg.Template.Path = viper.GetString("template.path")
	cfg.Template.Object = viper.GetString("template.object")

	cfg.Storage.Endpoint = viper.GetString("storage.endpoint")
	cfg.Storage.AccessKey = viper.GetString("storage.access_key")
	cfg.Storage.SecretKey = viper.GetString("storage.secret_key")
	cfg.Storage.Bucket = viper.GetString("storage.bucket")
	cfg.Storage.Region = viper.GetString("storage.region")
	cfg.Storage.Prefix = viper.GetString("storage.prefix")
	cfg.Storage.UseSSL = viper.GetBool("storage.use_ssl")
	cfg.Storage.URLExpiry = viper.GetDuration("storage.url_expiry")

	cfg.Database.DSN = viper.GetString("database.dsn")
	cfg.Database.MaxOpen = viper.GetInt("database.max_open")
	cfg.Database.MaxIdle = viper.GetInt("database.max_idle")

	cfg.Auth.JWTSecret = viper.GetString("auth.jwt_secret")
	cfg.FormVersion = viper.GetString("generation.form_version")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if err := c.validateTemplate(); err != nil {
		return err
	}

	if c.Mode == ModeServer {
		if !c.Storage.Enabled() || c.Storage.Bucket == "" {
			return errors.New("server mode requires a storage endpoint and bucket")
		}
		if !c.Database.Enabled() {
			return errors.New("server mode requires a database DSN")
		}
		if c.Auth.JWTSecret == "" {
			return errors.New("server mode requires a JWT secret")
		}
	}

	if c.Storage.Enabled() && c.Storage.URLExpiry <= 0 {
		return errors.New("presigned URL expiry must be positive")
	}
	if c.Storage.Enabled() && c.Storage.URLExpiry > MaxURLExpiry {
		return fmt.Errorf("presigned URL expiry %s exceeds the %s maximum", c.Storage.URLExpiry, MaxURLExpiry)
	}

	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}
	if _, err := os.Stat(c.OutputDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.OutputDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create output directory %s: %w", c.OutputDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access output directory %s: %w", c.OutputDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.FormVersion == "" {
		return errors.New("form version cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.LogFormat)
	}

	return nil
}

func (c *Config) validateTemplate() error {
	switch {
	case c.Template.Object != "":
		if !c.Storage.Enabled() {
			return errors.New("template object requires a storage endpoint")
		}
		return nil
	case c.Template.Path != "":
		info, err := os.Stat(c.Template.Path)
		if err != nil {
			return fmt.Errorf("cannot access template %s: %w", c.Template.Path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("template %s is a directory", c.Template.Path)
		}
		return nil
	default:
		return errors.New("a template path or template object is required")
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. Secrets are
// left out.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Template: %s, Bucket: %s, Database: %t, LogLevel: %s}",
		c.Mode, c.Host, c.Port, c.TemplateSource(), c.Storage.Bucket, c.Database.Enabled(), c.LogLevel)
}

// TemplateSource names where the template is read from.
func (c *Config) TemplateSource() string {
	if c.Template.Object != "" {
		return "object:" + c.Template.Object
	}
	return "file:" + c.Template.Path
}

// IsServerMode returns true if the service runs the HTTP API
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the service runs the MCP stdio server
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
