// Package session owns the single-user extraction session: the selected file,
// the busy flag and the result or error slot.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invoice-extractor/internal/domain"
	"invoice-extractor/internal/export"
	"invoice-extractor/internal/extractor"
	"invoice-extractor/internal/logging"
	"invoice-extractor/internal/metrics"
)

// ErrBusy is returned for operations rejected while an extraction is in flight.
var ErrBusy = errors.New("extraction already in progress")

type Option func(*Session)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logging.OrNop(logger)
	}
}

// WithClock replaces the clock used to stamp exported filenames.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

type Session struct {
	id     string
	client extractor.Client
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	file       *domain.SelectedFile
	status     domain.ProcessingStatus
	result     *domain.ExtractionResult
	failure    *domain.Failure
	dragActive bool
}

func New(client extractor.Client, opts ...Option) *Session {
	s := &Session{
		id:     uuid.NewString(),
		client: client,
		logger: zap.NewNop(),
		now:    time.Now,
		status: domain.StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))
	return s
}

func (s *Session) ID() string {
	return s.id
}

// SubmitCandidate considers the first of files as the new selection. An invalid
// candidate keeps the current selection and fills the error slot. It reports
// whether the candidate was accepted.
func (s *Session) SubmitCandidate(source domain.CandidateSource, files ...domain.SelectedFile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source == domain.SourceDrop {
		s.dragActive = false
	}

	if len(files) == 0 || !files[0].IsPDF() {
		s.failure = &domain.Failure{Kind: domain.FailureValidation, Message: domain.MessagePDFOnly}
		s.result = nil
		fields := []zap.Field{zap.String("source", string(source)), zap.Int("candidates", len(files))}
		if len(files) > 0 {
			fields = append(fields, zap.String("file", files[0].Name), zap.String("media_type", files[0].MediaType))
		}
		s.logger.Info("session.candidate.rejected", fields...)
		return false
	}

	f := files[0]
	s.file = &f
	s.failure = nil
	s.logger.Info("session.candidate.accepted",
		zap.String("source", string(source)),
		zap.String("file", f.Name),
		zap.Int64("size", f.Size),
	)
	return true
}

func (s *Session) Drag(event domain.DragEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event {
	case domain.DragEnter, domain.DragOver:
		s.dragActive = true
	case domain.DragLeave, domain.DragDrop:
		s.dragActive = false
	}
}

// ResetAll returns the session to its initial state. It is rejected while processing.
func (s *Session) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusProcessing {
		return ErrBusy
	}
	s.file = nil
	s.result = nil
	s.failure = nil
	s.status = domain.StatusIdle
	s.logger.Debug("session.reset")
	return nil
}

// SubmitExtraction sends the selected file to the extraction service and stores
// the outcome. Validation, transport and service failures land in the error slot
// and are not returned; only ErrBusy is.
func (s *Session) SubmitExtraction(ctx context.Context) error {
	s.mu.Lock()
	if s.status == domain.StatusProcessing {
		s.mu.Unlock()
		metrics.RecordRequest(metrics.OutcomeBusy, 0)
		return ErrBusy
	}
	if s.file == nil {
		s.failure = &domain.Failure{Kind: domain.FailureValidation, Message: domain.MessageSelectFile}
		s.result = nil
		s.mu.Unlock()
		metrics.RecordRequest(metrics.OutcomeValidationError, 0)
		s.logger.Info("session.extract.rejected", zap.String("reason", "no file selected"))
		return nil
	}
	file := *s.file
	s.status = domain.StatusProcessing
	s.failure = nil
	s.result = nil
	s.mu.Unlock()

	settled := false
	defer func() {
		if settled {
			return
		}
		s.mu.Lock()
		s.status = domain.StatusIdle
		s.mu.Unlock()
	}()

	s.logger.Info("session.extract.start", zap.String("file", file.Name), zap.Int64("size", file.Size))
	start := time.Now()
	result, err := s.client.Extract(ctx, file)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = domain.StatusIdle
	settled = true

	if err != nil {
		failure := domain.FailureFromError(err)
		s.failure = &failure
		s.result = nil
		metrics.RecordRequest(metrics.OutcomeFor(failure.Kind), elapsed)
		s.logger.Warn("session.extract.failed",
			zap.String("kind", string(failure.Kind)),
			zap.String("message", failure.Message),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil
	}

	s.result = &result
	s.failure = nil
	metrics.RecordRequest(metrics.OutcomeSuccess, elapsed)
	metrics.RecordServiceTiming(result.Timing)
	s.logger.Info("session.extract.succeeded",
		zap.Int("header_fields", result.HeaderFields.Len()),
		zap.Int("items", len(result.Items)),
		zap.Int("additional_fields", result.AdditionalFields.Len()),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// ExportRawText hands the raw text of the current result to sink. Without a
// result it does nothing and reports exported=false.
func (s *Session) ExportRawText(ctx context.Context, sink export.Sink) (location string, exported bool, err error) {
	result, ok := s.currentResult()
	if !ok {
		return "", false, nil
	}
	return s.deliver(ctx, sink, export.FormatText, export.RawText(result, s.now()))
}

func (s *Session) ExportWorkbook(ctx context.Context, sink export.Sink) (location string, exported bool, err error) {
	result, ok := s.currentResult()
	if !ok {
		return "", false, nil
	}
	artifact, err := export.Workbook(result, s.now())
	if err != nil {
		return "", false, fmt.Errorf("build workbook: %w", err)
	}
	return s.deliver(ctx, sink, export.FormatXLSX, artifact)
}

func (s *Session) deliver(ctx context.Context, sink export.Sink, format string, artifact export.Artifact) (string, bool, error) {
	location, err := sink.Put(ctx, artifact)
	if err != nil {
		s.logger.Error("session.export.failed", zap.String("format", format), zap.Error(err))
		return "", false, fmt.Errorf("export %s: %w", format, err)
	}
	metrics.RecordExport(format)
	s.logger.Info("session.export.done",
		zap.String("format", format),
		zap.String("filename", artifact.Filename),
		zap.String("location", location),
	)
	return location, true, nil
}

func (s *Session) currentResult() (domain.ExtractionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.ExtractionResult{}, false
	}
	return *s.result, true
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status:     s.status,
		DragActive: s.dragActive,
	}
	if s.file != nil {
		summary := s.file.Summary()
		snap.File = &summary
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	if s.failure != nil {
		failure := *s.failure
		snap.Failure = &failure
	}
	return snap
}
