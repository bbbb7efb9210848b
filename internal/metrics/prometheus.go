// Package metrics holds the Prometheus collectors for extraction and export activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"invoice-extractor/internal/domain"
)

const (
	OutcomeSuccess         = "success"
	OutcomeServiceError    = "service_error"
	OutcomeTransportError  = "transport_error"
	OutcomeValidationError = "validation_error"
	OutcomeBusy            = "busy"
)

var (
	ExtractionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_extraction_requests_total",
			Help: "Extraction submissions by outcome",
		},
		[]string{"outcome"},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "invoice_extraction_duration_seconds",
			Help:    "Client-observed time waiting on the extraction service",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	ServiceStageSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invoice_extraction_service_seconds",
			Help:    "Stage timings reported by the extraction service",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"stage"},
	)

	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_exports_total",
			Help: "Exported artifacts by format",
		},
		[]string{"format"},
	)
)

func OutcomeFor(kind domain.FailureKind) string {
	switch kind {
	case domain.FailureValidation:
		return OutcomeValidationError
	case domain.FailureService:
		return OutcomeServiceError
	default:
		return OutcomeTransportError
	}
}

func RecordRequest(outcome string, elapsed time.Duration) {
	ExtractionRequests.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		ExtractionDuration.Observe(elapsed.Seconds())
	}
}

func RecordServiceTiming(t *domain.Timing) {
	if t == nil {
		return
	}
	ServiceStageSeconds.WithLabelValues("ocr").Observe(t.OCRSeconds)
	ServiceStageSeconds.WithLabelValues("structure").Observe(t.StructureSeconds)
	ServiceStageSeconds.WithLabelValues("total").Observe(t.TotalSeconds)
}

func RecordExport(format string) {
	Exports.WithLabelValues(format).Inc()
}
