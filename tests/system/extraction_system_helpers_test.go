//go:build system

package system_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"invoice-extractor/internal/domain"
)

type snapshotResponse struct {
	SessionID string                   `json:"session_id"`
	Phase     domain.Phase             `json:"phase"`
	File      *domain.FileSummary      `json:"file"`
	Error     string                   `json:"error"`
	ErrorKind domain.FailureKind       `json:"error_kind"`
	Result    *domain.ExtractionResult `json:"result"`
	CanSubmit bool                     `json:"can_submit"`
	CanReset  bool                     `json:"can_reset"`
}

type systemTestConfig struct {
	ServiceURL  string
	HealthPath  string
	FixturePath string

	PreflightTimeout time.Duration
	ExtractTimeout   time.Duration
}

var defaultSystemTestConfig = systemTestConfig{
	ServiceURL:       "http://localhost:5000",
	HealthPath:       "/api/health",
	PreflightTimeout: 8 * time.Second,
	ExtractTimeout:   5 * time.Minute,
}

func loadSystemTestConfig() systemTestConfig {
	cfg := defaultSystemTestConfig
	cfg.ServiceURL = getenv("SYSTEM_TEST_SERVICE_URL", cfg.ServiceURL)
	cfg.HealthPath = getenv("SYSTEM_TEST_HEALTH_PATH", cfg.HealthPath)
	cfg.FixturePath = getenv("SYSTEM_TEST_FIXTURE_PATH", cfg.FixturePath)
	cfg.PreflightTimeout = getenvDuration("SYSTEM_TEST_PREFLIGHT_TIMEOUT", cfg.PreflightTimeout)
	cfg.ExtractTimeout = getenvDuration("SYSTEM_TEST_EXTRACT_TIMEOUT", cfg.ExtractTimeout)
	return cfg
}

func waitForHTTPStatus(url string, expectedStatus int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	httpClient := &http.Client{Timeout: 5 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := httpClient.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == expectedStatus {
				return nil
			}
		}
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("endpoint %s did not return %d in %s", url, expectedStatus, timeout)
}

// fixturePath returns the configured invoice PDF, or writes a one-page generated one into dir.
func fixturePath(cfg systemTestConfig, dir string) (string, error) {
	if cfg.FixturePath != "" {
		return cfg.FixturePath, nil
	}
	path := filepath.Join(dir, "invoice-INV-1001.pdf")
	if err := os.WriteFile(path, generatedInvoicePDF(), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func generatedInvoicePDF() []byte {
	stream := strings.Join([]string{
		"BT /F1 18 Tf 72 720 Td (INVOICE) Tj ET",
		"BT /F1 12 Tf 72 690 Td (Invoice No: INV-1001) Tj ET",
		"BT /F1 12 Tf 72 672 Td (Date: 2024-01-01) Tj ET",
		"BT /F1 12 Tf 72 640 Td (Widget  Qty 2  Amount 10.00) Tj ET",
		"BT /F1 12 Tf 72 610 Td (Total: 20.00) Tj ET",
	}, "\n")
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func uploadFile(url string, filePath string) (snapshotResponse, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return snapshotResponse{}, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filePath)))
	header.Set("Content-Type", domain.MediaTypePDF)
	part, err := writer.CreatePart(header)
	if err != nil {
		return snapshotResponse{}, err
	}
	if _, err := part.Write(content); err != nil {
		return snapshotResponse{}, err
	}
	if err := writer.Close(); err != nil {
		return snapshotResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return snapshotResponse{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return doSnapshot(req, http.DefaultClient)
}

func postSnapshot(url string, timeout time.Duration) (snapshotResponse, error) {
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return snapshotResponse{}, err
	}
	return doSnapshot(req, &http.Client{Timeout: timeout})
}

func doSnapshot(req *http.Request, httpClient *http.Client) (snapshotResponse, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return snapshotResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return snapshotResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return snapshotResponse{}, fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var snap snapshotResponse
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snapshotResponse{}, err
	}
	return snap, nil
}

func unusedAddress() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		return "", err
	}
	return "http://" + addr, nil
}

func getenv(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
