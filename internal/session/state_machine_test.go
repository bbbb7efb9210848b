package session

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invoice-extractor/internal/domain"
	"invoice-extractor/internal/extractor"
)

const propertySevenBody = `{"success":true,"data":{"raw_text":"abc","header_fields":{"A":"1"},"items":[],"additional_fields":{}},"processing_time":{"ocr_time":1.2,"structure_time":0.8,"total_time":2.0}}`

type fakeService struct {
	server  *httptest.Server
	hits    int32
	status  int32
	body    atomic.Value
	gate    chan struct{}
	arrived chan struct{}
}

func newFakeService(gated bool) *fakeService {
	f := &fakeService{status: http.StatusOK}
	if gated {
		f.gate = make(chan struct{})
		f.arrived = make(chan struct{}, 1)
	}
	f.body.Store(propertySevenBody)
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		_, _ = io.Copy(io.Discard, r.Body)
		if f.arrived != nil {
			f.arrived <- struct{}{}
		}
		if f.gate != nil {
			<-f.gate
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(atomic.LoadInt32(&f.status)))
		_, _ = io.WriteString(w, f.body.Load().(string))
	}))
	return f
}

func (f *fakeService) respond(status int, body string) {
	atomic.StoreInt32(&f.status, int32(status))
	f.body.Store(body)
}

func (f *fakeService) Hits() int {
	return int(atomic.LoadInt32(&f.hits))
}

func unusedAddress() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := l.Addr().String()
	Expect(l.Close()).To(Succeed())
	return "http://" + addr
}

var _ = Describe("Extraction session", func() {
	var (
		svc *fakeService
		s   *Session
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = newFakeService(false)
		DeferCleanup(svc.server.Close)
		s = New(extractor.NewHTTPClient(svc.server.URL))
	})

	Describe("from Idle", func() {
		It("starts with nothing selected", func() {
			snap := s.Snapshot()
			Expect(snap.Phase()).To(Equal(domain.PhaseIdle))
			Expect(snap.CanSubmit()).To(BeFalse())
			Expect(snap.CanReset()).To(BeFalse())
		})

		It("stays Idle on an invalid pick and shows the PDF-only message", func() {
			s.SubmitCandidate(domain.SourcePicker, textFile("notes.txt"))
			snap := s.Snapshot()
			Expect(snap.Phase()).To(Equal(domain.PhaseIdle))
			Expect(snap.File).To(BeNil())
			Expect(snap.ErrorMessage()).To(Equal(domain.MessagePDFOnly))
		})

		It("never contacts the service when submitting without a file", func() {
			Expect(s.SubmitExtraction(ctx)).To(Succeed())
			Expect(svc.Hits()).To(BeZero())
			Expect(s.Snapshot().ErrorMessage()).To(Equal(domain.MessageSelectFile))
		})
	})

	Describe("from FileSelected", func() {
		BeforeEach(func() {
			Expect(s.SubmitCandidate(domain.SourceDrop, pdf("invoice.pdf"))).To(BeTrue())
			Expect(s.Snapshot().Phase()).To(Equal(domain.PhaseFileSelected))
		})

		It("moves to Succeeded with the service result", func() {
			Expect(s.SubmitExtraction(ctx)).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Phase()).To(Equal(domain.PhaseSucceeded))
			Expect(snap.ErrorMessage()).To(BeEmpty())
			Expect(snap.Result.HeaderFields.Entries()).To(Equal([]domain.Field{{Name: "A", Value: "1"}}))
			Expect(snap.Result.Items).To(BeEmpty())
			Expect(snap.Result.Timing).NotTo(BeNil())
			Expect(snap.Result.Timing.TotalSeconds).To(Equal(2.0))
			Expect(svc.Hits()).To(Equal(1))
		})

		It("moves to Failed with the service's own message", func() {
			svc.respond(http.StatusOK, `{"success":false,"error":"bad scan"}`)
			Expect(s.SubmitExtraction(ctx)).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Phase()).To(Equal(domain.PhaseFailed))
			Expect(snap.ErrorMessage()).To(Equal("bad scan"))
			Expect(snap.Result).To(BeNil())
		})

		It("moves to Failed with the service's error on a 500", func() {
			svc.respond(http.StatusInternalServerError, `{"error":"OCR engine crashed"}`)
			Expect(s.SubmitExtraction(ctx)).To(Succeed())
			Expect(s.Snapshot().ErrorMessage()).To(Equal("OCR engine crashed"))
		})

		It("replaces the selection on a new valid drop", func() {
			s.SubmitCandidate(domain.SourceDrop, pdf("second.pdf"))
			Expect(s.Snapshot().File.Name).To(Equal("second.pdf"))
		})

		It("keeps the selection on an invalid drop", func() {
			s.SubmitCandidate(domain.SourceDrop, textFile("photo.png"))
			snap := s.Snapshot()
			Expect(snap.File.Name).To(Equal("invoice.pdf"))
			Expect(snap.ErrorMessage()).To(Equal(domain.MessagePDFOnly))
		})
	})

	Describe("when the service is unreachable", func() {
		It("reports the fixed connection message", func() {
			s = New(extractor.NewHTTPClient(unusedAddress()))
			s.SubmitCandidate(domain.SourcePicker, pdf("invoice.pdf"))

			Expect(s.SubmitExtraction(ctx)).To(Succeed())
			snap := s.Snapshot()
			Expect(snap.Phase()).To(Equal(domain.PhaseFailed))
			Expect(snap.Failure.Kind).To(Equal(domain.FailureTransport))
			Expect(snap.ErrorMessage()).To(Equal(domain.MessageConnectionFailed))
			Expect(snap.Result).To(BeNil())
			Expect(snap.Status).To(Equal(domain.StatusIdle))
		})
	})

	Describe("while Processing", func() {
		It("admits exactly one request", func() {
			svc = newFakeService(true)
			DeferCleanup(svc.server.Close)
			s = New(extractor.NewHTTPClient(svc.server.URL))
			s.SubmitCandidate(domain.SourcePicker, pdf("invoice.pdf"))

			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- s.SubmitExtraction(ctx)
			}()
			Eventually(svc.arrived).Should(Receive())

			Expect(s.Snapshot().Phase()).To(Equal(domain.PhaseProcessing))
			Expect(s.SubmitExtraction(ctx)).To(MatchError(ErrBusy))
			Expect(s.ResetAll()).To(MatchError(ErrBusy))
			Expect(s.Snapshot().File).NotTo(BeNil())

			close(svc.gate)
			Eventually(done).Should(Receive(BeNil()))
			Expect(svc.Hits()).To(Equal(1))
			Expect(s.Snapshot().Phase()).To(Equal(domain.PhaseSucceeded))
		})
	})

	Describe("from Succeeded or Failed", func() {
		It("resubmits after a failure while the file is still held", func() {
			svc.respond(http.StatusOK, `{"success":false}`)
			s.SubmitCandidate(domain.SourcePicker, pdf("invoice.pdf"))
			Expect(s.SubmitExtraction(ctx)).To(Succeed())
			Expect(s.Snapshot().ErrorMessage()).To(Equal(domain.MessageProcessingFailed))

			svc.respond(http.StatusOK, propertySevenBody)
			Expect(s.SubmitExtraction(ctx)).To(Succeed())
			Expect(s.Snapshot().Phase()).To(Equal(domain.PhaseSucceeded))
			Expect(svc.Hits()).To(Equal(2))
		})

		It("resets back to Idle", func() {
			s.SubmitCandidate(domain.SourcePicker, pdf("invoice.pdf"))
			Expect(s.SubmitExtraction(ctx)).To(Succeed())
			Expect(s.Snapshot().CanReset()).To(BeTrue())

			Expect(s.ResetAll()).To(Succeed())
			Expect(s.ResetAll()).To(Succeed())
			snap := s.Snapshot()
			Expect(snap.Phase()).To(Equal(domain.PhaseIdle))
			Expect(snap.File).To(BeNil())
			Expect(snap.Result).To(BeNil())
			Expect(snap.Failure).To(BeNil())
		})
	})
})
