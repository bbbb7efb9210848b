package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invoice-extractor/internal/domain"
	"invoice-extractor/internal/export"
	"invoice-extractor/internal/intake"
	"invoice-extractor/internal/render"
	"invoice-extractor/internal/session"
)

const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

type extractOptions struct {
	format       string
	exportRaw    bool
	exportXLSX   bool
	printRawText bool
}

func (c *cli) extractCmd() *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract [file.pdf]",
		Short: "Extract structured data from an invoice PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.runExtract(ctx, cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text, markdown or json")
	cmd.Flags().BoolVar(&opts.exportRaw, "export", false, "Write the raw text to the export directory")
	cmd.Flags().BoolVar(&opts.exportXLSX, "xlsx", false, "Write the structured result as an XLSX workbook")
	cmd.Flags().BoolVar(&opts.printRawText, "raw", false, "Also print the raw OCR text")
	return cmd
}

func (c *cli) runExtract(ctx context.Context, cmd *cobra.Command, path string, opts *extractOptions) error {
	switch opts.format {
	case formatText, formatMarkdown, formatJSON:
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}

	file, err := intake.FromPath(path)
	if err != nil {
		return err
	}

	sess := session.New(c.newClient(), session.WithLogger(c.logger))
	if !sess.SubmitCandidate(domain.SourcePicker, file) {
		return &exitError{code: exitValidation, err: errors.New(sess.Snapshot().ErrorMessage())}
	}
	if err := sess.SubmitExtraction(ctx); err != nil {
		return err
	}

	snap := sess.Snapshot()
	if snap.Failure != nil {
		return &exitError{code: exitCodeFor(snap.Failure.Kind), err: errors.New(snap.Failure.Message)}
	}

	out := cmd.OutOrStdout()
	view := render.Build(*snap.Result)
	switch opts.format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap.Result); err != nil {
			return err
		}
	case formatMarkdown:
		fmt.Fprint(out, render.Markdown(view))
	default:
		if err := render.Text(out, view); err != nil {
			return err
		}
	}
	if opts.printRawText && opts.format != formatJSON {
		fmt.Fprintf(out, "Raw Text\n%s\n", snap.Result.RawText)
	}

	if !opts.exportRaw && !opts.exportXLSX {
		return nil
	}
	archive, err := c.archiveSink(ctx)
	if err != nil {
		return err
	}
	sink := export.MultiSink(archive, export.NewDirSink(c.cfg.ExportDir))

	if opts.exportRaw {
		location, _, err := sess.ExportRawText(ctx, sink)
		if err != nil {
			return err
		}
		c.logger.Info("cli.export", zap.String("format", export.FormatText), zap.String("location", location))
		fmt.Fprintf(cmd.ErrOrStderr(), "raw text written to %s\n", location)
	}
	if opts.exportXLSX {
		location, _, err := sess.ExportWorkbook(ctx, sink)
		if err != nil {
			return err
		}
		c.logger.Info("cli.export", zap.String("format", export.FormatXLSX), zap.String("location", location))
		fmt.Fprintf(cmd.ErrOrStderr(), "workbook written to %s\n", location)
	}
	return nil
}
