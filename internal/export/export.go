package export

import (
	"context"
	"fmt"
	"time"

	"invoice-extractor/internal/domain"
)

const (
	ContentTypeText = "text/plain"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	FormatText = "txt"
	FormatXLSX = "xlsx"
)

type Artifact struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Sink delivers an artifact somewhere the user can pick it up and reports where.
type Sink interface {
	Put(ctx context.Context, artifact Artifact) (string, error)
}

func Filename(now time.Time, format string) string {
	return fmt.Sprintf("invoice_extracted_%d.%s", now.UnixMilli(), format)
}

// RawText packages the service's raw text verbatim.
func RawText(result domain.ExtractionResult, now time.Time) Artifact {
	return Artifact{
		Filename:    Filename(now, FormatText),
		ContentType: ContentTypeText,
		Content:     []byte(result.RawText),
	}
}

type multiSink []Sink

// MultiSink delivers to each sink in order, stopping at the first failure.
// The reported location is the last sink's.
func MultiSink(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Put(ctx context.Context, artifact Artifact) (string, error) {
	var location string
	for _, s := range m {
		loc, err := s.Put(ctx, artifact)
		if err != nil {
			return "", err
		}
		location = loc
	}
	return location, nil
}
