//go:build system

package system_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invoice-extractor/internal/api"
	"invoice-extractor/internal/domain"
	"invoice-extractor/internal/extractor"
	"invoice-extractor/internal/session"
)

func startConsole(serviceURL string, cfg systemTestConfig) *httptest.Server {
	client := extractor.NewHTTPClient(serviceURL, extractor.WithTimeout(cfg.ExtractTimeout))
	sess := session.New(client)
	h := api.NewHandler(sess, client, api.HandlerConfig{MaxUploadBytes: 20 << 20})
	srv := httptest.NewServer(api.NewRouter(h))
	DeferCleanup(srv.Close)
	return srv
}

var _ = Describe("Console extraction happy path", Ordered, func() {
	var cfg systemTestConfig
	var fixture string

	BeforeAll(func() {
		if os.Getenv("RUN_EXTRACTION_SYSTEM_TEST") != "1" {
			Skip("set RUN_EXTRACTION_SYSTEM_TEST=1 to run the extraction system test against a live service")
		}

		cfg = loadSystemTestConfig()

		By("failing fast if the extraction service is unreachable")
		Expect(waitForHTTPStatus(strings.TrimRight(cfg.ServiceURL, "/")+cfg.HealthPath, http.StatusOK, cfg.PreflightTimeout)).To(Succeed())

		var err error
		fixture, err = fixturePath(cfg, GinkgoT().TempDir())
		Expect(err).ToNot(HaveOccurred())
	})

	It("uploads a real PDF through the console and renders the service's structured result", func() {
		console := startConsole(cfg.ServiceURL, cfg)

		By("checking the console sees the service as ready")
		Expect(waitForHTTPStatus(console.URL+"/readyz", http.StatusOK, cfg.PreflightTimeout)).To(Succeed())

		By("selecting the invoice exactly like a user")
		snap, err := uploadFile(console.URL+"/session/file", fixture)
		Expect(err).ToNot(HaveOccurred())
		Expect(snap.Phase).To(Equal(domain.PhaseFileSelected))
		Expect(snap.File).ToNot(BeNil())
		Expect(snap.CanSubmit).To(BeTrue())

		By("submitting it for extraction")
		snap, err = postSnapshot(console.URL+"/session/extract", cfg.ExtractTimeout)
		Expect(err).ToNot(HaveOccurred())
		Expect(snap.Error).To(BeEmpty())
		Expect(snap.Phase).To(Equal(domain.PhaseSucceeded))
		Expect(snap.Result).ToNot(BeNil())
		Expect(snap.Result.RawText).ToNot(BeEmpty())
		Expect(snap.Result.Timing).ToNot(BeNil())
		Expect(snap.Result.Timing.TotalSeconds).To(BeNumerically(">", 0))

		By("downloading the raw text")
		resp, err := http.Get(console.URL + "/session/export")
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("invoice_extracted_"))
		raw, err := io.ReadAll(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(raw)).To(Equal(snap.Result.RawText))

		By("resetting the session")
		snap, err = postSnapshot(console.URL+"/session/reset", cfg.PreflightTimeout)
		Expect(err).ToNot(HaveOccurred())
		Expect(snap.Phase).To(Equal(domain.PhaseIdle))
	})

	It("reports the connection failure message when the service address is dead", func() {
		dead, err := unusedAddress()
		Expect(err).ToNot(HaveOccurred())
		console := startConsole(dead, cfg)

		_, err = uploadFile(console.URL+"/session/file", fixture)
		Expect(err).ToNot(HaveOccurred())

		snap, err := postSnapshot(console.URL+"/session/extract", cfg.PreflightTimeout)
		Expect(err).ToNot(HaveOccurred())
		Expect(snap.Phase).To(Equal(domain.PhaseFailed))
		Expect(snap.ErrorKind).To(Equal(domain.FailureTransport))
		Expect(snap.Error).To(Equal(domain.MessageConnectionFailed))
		Expect(snap.Result).To(BeNil())
	})
})
