// Package intake turns files picked on disk or uploaded from a browser into
// domain.SelectedFile candidates. It declares a media type but never validates it;
// the session decides whether a candidate is acceptable.
package intake

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"invoice-extractor/internal/domain"
)

var ErrTooLarge = errors.New("upload too large")

// FromPath reads a file from disk and declares its media type from its content.
func FromPath(path string) (domain.SelectedFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.SelectedFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.SelectedFile{
		Name:      filepath.Base(path),
		MediaType: baseMediaType(mimetype.Detect(content).String()),
		Size:      int64(len(content)),
		Content:   content,
	}, nil
}

// FromMultipart reads an uploaded part, trusting the browser's declared type when
// it sent a specific one. Uploads larger than maxBytes are refused.
func FromMultipart(header *multipart.FileHeader, maxBytes int64) (domain.SelectedFile, error) {
	f, err := header.Open()
	if err != nil {
		return domain.SelectedFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return domain.SelectedFile{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > maxBytes {
		return domain.SelectedFile{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxBytes)
	}

	declared := baseMediaType(header.Header.Get("Content-Type"))
	if declared == "" || declared == "application/octet-stream" {
		declared = baseMediaType(mimetype.Detect(content).String())
	}

	return domain.SelectedFile{
		Name:      filepath.Base(header.Filename),
		MediaType: declared,
		Size:      int64(len(content)),
		Content:   content,
	}, nil
}

func baseMediaType(v string) string {
	if v == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil {
		return v
	}
	return mediaType
}
