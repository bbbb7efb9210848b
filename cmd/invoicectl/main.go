package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invoice-extractor/internal/config"
	"invoice-extractor/internal/domain"
	"invoice-extractor/internal/export"
	"invoice-extractor/internal/extractor"
	"invoice-extractor/internal/logging"
)

const (
	exitOK         = 0
	exitOther      = 1
	exitValidation = 2
	exitTransport  = 3
	exitService    = 4
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitOther
}

func exitCodeFor(kind domain.FailureKind) int {
	switch kind {
	case domain.FailureValidation:
		return exitValidation
	case domain.FailureTransport:
		return exitTransport
	case domain.FailureService:
		return exitService
	default:
		return exitOther
	}
}

type cli struct {
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "invoicectl",
		Short:         "Extract structured data from invoice PDFs",
		Long:          `invoicectl sends invoice PDFs to the extraction service and shows the header fields, line items and additional information it returns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "TOML config file (default $"+config.ConfigPathEnv+")")

	root.AddCommand(c.extractCmd(), c.serveCmd(), c.healthCmd(), versionCmd())
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Fields: map[string]string{"app": "invoicectl"},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

func (c *cli) newClient() *extractor.HTTPClient {
	return extractor.NewHTTPClient(c.cfg.ServiceURL,
		extractor.WithTimeout(c.cfg.ExtractTimeoutDuration()),
		extractor.WithLogger(c.logger),
	)
}

// archiveSink is nil unless MinIO export is configured.
func (c *cli) archiveSink(ctx context.Context) (export.Sink, error) {
	if !c.cfg.MinioExportEnabled() {
		return nil, nil
	}
	sink, err := export.NewMinioSink(ctx,
		c.cfg.ExportMinioEndpoint,
		c.cfg.ExportMinioAccess,
		c.cfg.ExportMinioSecret,
		c.cfg.ExportMinioUseSSL,
		c.cfg.ExportMinioBucket,
		"exports",
	)
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}
	return sink, nil
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invoicectl: %v\n", err)
	}
	os.Exit(exitCode(err))
}
