package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invoice-extractor/internal/domain"
	"invoice-extractor/internal/logging"
)

const (
	ExtractPath     = "/api/extract-invoice"
	HealthPath      = "/api/health"
	FileField       = "file"
	RequestIDHeader = "X-Request-ID"
)

type Client interface {
	Extract(ctx context.Context, file domain.SelectedFile) (domain.ExtractionResult, error)
	Health(ctx context.Context) (HealthStatus, error)
}

type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type HTTPClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithTimeout bounds each extraction request. Zero keeps the transport defaults.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		h.timeout = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *HTTPClient) {
		h.logger = logging.OrNop(logger)
	}
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) Extract(ctx context.Context, file domain.SelectedFile) (domain.ExtractionResult, error) {
	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := encodeUpload(file)
	if err != nil {
		return domain.ExtractionResult{}, &domain.TransportError{Err: fmt.Errorf("encode upload: %w", err)}
	}

	url := c.baseURL + ExtractPath
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, body)
	if err != nil {
		return domain.ExtractionResult{}, &domain.TransportError{Err: fmt.Errorf("build request: %w", err)}
	}
	reqID := uuid.NewString()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, reqID)

	log := c.logger.With(zap.String("req_id", reqID))
	log.Info("extractor.http.request",
		zap.String("url", url),
		zap.String("file", file.Name),
		zap.Int64("file_bytes", file.Size),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Error("extractor.http.send_error", zap.Error(err), zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return domain.ExtractionResult{}, &domain.TransportError{Err: err}
	}
	defer closeBody(log, resp)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("extractor.http.read_error", zap.Error(err), zap.Int("status", resp.StatusCode))
		return domain.ExtractionResult{}, &domain.TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	log.Info("extractor.http.response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	return decodeResponse(resp.StatusCode, raw)
}

func (c *HTTPClient) Health(ctx context.Context) (HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err != nil {
		return HealthStatus{}, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return HealthStatus{}, &domain.TransportError{Err: err}
	}
	defer closeBody(c.logger, resp)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return HealthStatus{}, &domain.TransportError{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 400 {
		return HealthStatus{}, fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	var out HealthStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		return HealthStatus{}, fmt.Errorf("unable to parse health response: %w", err)
	}
	return out, nil
}

func closeBody(log *zap.Logger, resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		log.Warn("extractor.http.response_body_close_error", zap.Error(err), zap.Int("status", resp.StatusCode))
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeUpload writes the single "file" part. CreateFormFile would label it
// application/octet-stream, so the part header is built by hand.
func encodeUpload(file domain.SelectedFile) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", domain.MediaTypePDF)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}
