package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"invoice-extractor/internal/domain"
	"invoice-extractor/internal/export"
	"invoice-extractor/internal/extractor"
	"invoice-extractor/internal/intake"
	"invoice-extractor/internal/logging"
	"invoice-extractor/internal/render"
	"invoice-extractor/internal/session"
)

// multipart framing allowance on top of the file itself
const multipartOverhead = 1 << 20

type Handler struct {
	session        *session.Session
	client         extractor.Client
	archive        export.Sink
	maxUploadBytes int64
	logger         *zap.Logger
}

type HandlerConfig struct {
	MaxUploadBytes int64
	// Archive, when set, also receives every artifact downloaded from the console.
	Archive export.Sink
	Logger  *zap.Logger
}

type snapshotResponse struct {
	SessionID  string                   `json:"session_id"`
	Phase      domain.Phase             `json:"phase"`
	Status     domain.ProcessingStatus  `json:"status"`
	File       *domain.FileSummary      `json:"file,omitempty"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  domain.FailureKind       `json:"error_kind,omitempty"`
	Result     *domain.ExtractionResult `json:"result,omitempty"`
	DragActive bool                     `json:"drag_active"`
	CanSubmit  bool                     `json:"can_submit"`
	CanReset   bool                     `json:"can_reset"`
}

func NewHandler(sess *session.Session, client extractor.Client, cfg HandlerConfig) *Handler {
	return &Handler{
		session:        sess,
		client:         client,
		archive:        cfg.Archive,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logging.OrNop(cfg.Logger),
	}
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	data := pageData{
		Snapshot:  snap,
		Phase:     snap.Phase(),
		Error:     snap.ErrorMessage(),
		CanSubmit: snap.CanSubmit(),
		CanReset:  snap.CanReset(),
	}
	if snap.Result != nil {
		view := render.Build(*snap.Result)
		data.Timing = view.Timing
		body, err := render.HTML(render.View{Header: view.Header, Items: view.Items, Additional: view.Additional})
		if err != nil {
			h.logger.Error("console.render_failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to render result"})
			return
		}
		data.ResultHTML = safeHTML(body)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("console.page_failed", zap.Error(err))
	}
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshotResponse())
}

func (h *Handler) SelectFile(w http.ResponseWriter, r *http.Request) {
	h.submitCandidate(w, r, domain.SourcePicker)
}

func (h *Handler) DropFile(w http.ResponseWriter, r *http.Request) {
	h.submitCandidate(w, r, domain.SourceDrop)
}

func (h *Handler) submitCandidate(w http.ResponseWriter, r *http.Request, source domain.CandidateSource) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "file exceeds size limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart payload"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	var candidates []domain.SelectedFile
	if headers := r.MultipartForm.File[extractor.FileField]; len(headers) > 0 {
		file, err := intake.FromMultipart(headers[0], h.maxUploadBytes)
		if err != nil {
			if errors.Is(err, intake.ErrTooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "file exceeds size limit"})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read file"})
			return
		}
		candidates = append(candidates, file)
	}

	h.session.SubmitCandidate(source, candidates...)
	h.respond(w, r)
}

func (h *Handler) Drag(w http.ResponseWriter, r *http.Request) {
	event, ok := domain.ParseDragEvent(chi.URLParam(r, "event"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown drag event"})
		return
	}
	h.session.Drag(event)
	h.respond(w, r)
}

func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	if err := h.session.SubmitExtraction(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, r)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ResetAll(); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, r)
}

func (h *Handler) ExportRawText(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, h.session.ExportRawText)
}

func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, h.session.ExportWorkbook)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, run func(context.Context, export.Sink) (string, bool, error)) {
	download := &downloadSink{w: w}
	_, exported, err := run(r.Context(), export.MultiSink(h.archive, download))
	if err != nil {
		if download.written {
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "export failed"})
		return
	}
	if !exported {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status, err := h.client.Health(ctx)
	if err != nil {
		h.logger.Warn("console.readyz.unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": status.Status})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrBusy) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		return
	}
	h.logger.Error("console.request_failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}

// respond answers API clients with the snapshot and sends form posts back to the page.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, h.snapshotResponse())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) snapshotResponse() snapshotResponse {
	snap := h.session.Snapshot()
	resp := snapshotResponse{
		SessionID:  h.session.ID(),
		Phase:      snap.Phase(),
		Status:     snap.Status,
		File:       snap.File,
		Error:      snap.ErrorMessage(),
		Result:     snap.Result,
		DragActive: snap.DragActive,
		CanSubmit:  snap.CanSubmit(),
		CanReset:   snap.CanReset(),
	}
	if snap.Failure != nil {
		resp.ErrorKind = snap.Failure.Kind
	}
	return resp
}

func wantsJSON(r *http.Request) bool {
	for _, v := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(v))
		if err == nil && mediaType == "application/json" {
			return true
		}
	}
	return false
}

type downloadSink struct {
	w       http.ResponseWriter
	written bool
}

func (d *downloadSink) Put(_ context.Context, artifact export.Artifact) (string, error) {
	header := d.w.Header()
	header.Set("Content-Type", artifact.ContentType)
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}))
	header.Set("Content-Length", strconv.Itoa(len(artifact.Content)))
	d.w.WriteHeader(http.StatusOK)
	d.written = true
	if _, err := d.w.Write(artifact.Content); err != nil {
		return "", fmt.Errorf("write download: %w", err)
	}
	return "download:" + artifact.Filename, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
