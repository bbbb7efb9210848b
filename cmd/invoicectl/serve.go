package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invoice-extractor/internal/api"
	"invoice-extractor/internal/session"
)

func (c *cli) serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browser console",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				c.cfg.ConsolePort = port
			}
			return c.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Console port (overrides config)")
	return cmd
}

func (c *cli) runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	archive, err := c.archiveSink(ctx)
	if err != nil {
		return err
	}

	client := c.newClient()
	sess := session.New(client, session.WithLogger(c.logger))
	h := api.NewHandler(sess, client, api.HandlerConfig{
		MaxUploadBytes: c.cfg.MaxUploadBytes,
		Archive:        archive,
		Logger:         c.logger,
	})

	srv := &http.Server{
		Addr:              ":" + c.cfg.ConsolePort,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("console listening",
			zap.String("addr", srv.Addr),
			zap.String("service_url", client.BaseURL()),
			zap.String("session_id", sess.ID()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

