package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

const ConfigPathEnv = "INVOICECTL_CONFIG"

const (
	defaultServiceURL     = "http://localhost:5000"
	defaultConsolePort    = "8090"
	defaultMaxUploadBytes = 20 * 1024 * 1024
	defaultExportDir      = "."
	defaultExportBucket   = "invoice-exports"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

type Config struct {
	ServiceURL          string `toml:"service_url" validate:"required,url"`
	ExtractTimeout      string `toml:"extract_timeout"`
	ConsolePort         string `toml:"console_port" validate:"required,numeric"`
	MaxUploadBytes      int64  `toml:"max_upload_bytes" validate:"gt=0"`
	ExportDir           string `toml:"export_dir" validate:"required"`
	ExportMinioEndpoint string `toml:"export_minio_endpoint"`
	ExportMinioAccess   string `toml:"export_minio_access_key" validate:"required_with=ExportMinioEndpoint"`
	ExportMinioSecret   string `toml:"export_minio_secret_key" validate:"required_with=ExportMinioEndpoint"`
	ExportMinioBucket   string `toml:"export_minio_bucket" validate:"required_with=ExportMinioEndpoint"`
	ExportMinioUseSSL   bool   `toml:"export_minio_use_ssl"`
	LogLevel            string `toml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat           string `toml:"log_format" validate:"oneof=json console"`

	extractTimeout time.Duration
}

func Default() Config {
	return Config{
		ServiceURL:        defaultServiceURL,
		ConsolePort:       defaultConsolePort,
		MaxUploadBytes:    defaultMaxUploadBytes,
		ExportDir:         defaultExportDir,
		ExportMinioBucket: defaultExportBucket,
		LogLevel:          defaultLogLevel,
		LogFormat:         defaultLogFormat,
	}
}

// Load resolves configuration as defaults, then the optional TOML file, then environment.
// An empty path falls back to $INVOICECTL_CONFIG.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ServiceURL = getenv("EXTRACTOR_SERVICE_URL", cfg.ServiceURL)
	cfg.ExtractTimeout = getenv("EXTRACT_TIMEOUT", cfg.ExtractTimeout)
	cfg.ConsolePort = getenv("CONSOLE_HTTP_PORT", cfg.ConsolePort)
	cfg.MaxUploadBytes = int64(getenvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.ExportDir = getenv("EXPORT_DIR", cfg.ExportDir)
	cfg.ExportMinioEndpoint = getenv("EXPORT_MINIO_ENDPOINT", cfg.ExportMinioEndpoint)
	cfg.ExportMinioAccess = getenv("EXPORT_MINIO_ACCESS_KEY", cfg.ExportMinioAccess)
	cfg.ExportMinioSecret = getenv("EXPORT_MINIO_SECRET_KEY", cfg.ExportMinioSecret)
	cfg.ExportMinioBucket = getenv("EXPORT_MINIO_BUCKET", cfg.ExportMinioBucket)
	cfg.ExportMinioUseSSL = getenvBool("EXPORT_MINIO_USE_SSL", cfg.ExportMinioUseSSL)
	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getenv("LOG_FORMAT", cfg.LogFormat))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ExtractTimeoutDuration is zero when no client timeout is configured.
func (c Config) ExtractTimeoutDuration() time.Duration {
	return c.extractTimeout
}

func (c Config) MinioExportEnabled() bool {
	return c.ExportMinioEndpoint != ""
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config field %s: failed %q check", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	c.extractTimeout = 0
	if strings.TrimSpace(c.ExtractTimeout) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(c.ExtractTimeout))
		if err != nil {
			return fmt.Errorf("invalid config field ExtractTimeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("invalid config field ExtractTimeout: must not be negative")
		}
		c.extractTimeout = d
	}
	return nil
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
