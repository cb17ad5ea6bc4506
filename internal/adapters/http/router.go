package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/legal-sla-monitor/internal/config"
	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
	"github.com/kirillkom/legal-sla-monitor/internal/core/ports"
	"github.com/kirillkom/legal-sla-monitor/internal/observability/metrics"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var workbookExtensions = map[string]struct{}{
	".xlsx": {},
	".xlsm": {},
	".xltx": {},
	".xltm": {},
}

type Router struct {
	cfg       config.Config
	submitter ports.RunSubmitter
	runs      ports.RunReader
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
}

type RouterOption func(*Router)

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(
	cfg config.Config,
	submitter ports.RunSubmitter,
	runs ports.RunReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		submitter: submitter,
		runs:      runs,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/runs", rt.submitRun)
	api.HandleFunc("GET /v1/runs", rt.listRuns)
	api.HandleFunc("GET /v1/runs/{run_id}", rt.getRun)
	api.HandleFunc("GET /v1/runs/{run_id}/report", rt.downloadArtifact(domain.ArtifactReport))
	api.HandleFunc("GET /v1/runs/{run_id}/errors", rt.downloadArtifact(domain.ArtifactErrors))

	var guarded http.Handler = api
	guarded = backpressureMiddleware(guarded, rt.cfg.APIMaxInFlight, rt.cfg.BackpressureWait())
	guarded = rateLimitMiddleware(guarded, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.json", rt.openAPI)
	mux.Handle("/v1/", guarded)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart fields 'inventory' and 'reference' are required"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	inventory, invHeader, err := formWorkbook(r, "inventory")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer inventory.Close()
	reference, refHeader, err := formWorkbook(r, "reference")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer reference.Close()

	run, err := rt.submitter.Submit(
		r.Context(),
		ports.UploadedFile{Filename: invHeader.Filename, Body: inventory},
		ports.UploadedFile{Filename: refHeader.Filename, Body: reference},
	)
	if rt.metrics != nil {
		rt.metrics.RecordRunSubmitted(err)
	}
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, run)
}

func formWorkbook(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "read form", fmt.Errorf("multipart field '%s' is required", field))
	}
	if _, ok := workbookExtensions[strings.ToLower(filepath.Ext(header.Filename))]; !ok {
		file.Close()
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "read form", fmt.Errorf("field '%s' must be an Excel workbook, got %q", field, header.Filename))
	}
	return file, header, nil
}

func (rt *Router) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit)
	if err != nil || limit < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		return
	}

	runs, err := rt.runs.ListRecent(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (rt *Router) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := rt.runs.GetByID(r.Context(), r.PathValue("run_id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) downloadArtifact(kind domain.ArtifactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("run_id")
		body, err := rt.runs.OpenArtifact(r.Context(), id, kind)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		defer body.Close()

		name := id + "_Inventario_Clasificado.xlsx"
		if kind == domain.ArtifactErrors {
			name = id + "_Errores.xlsx"
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, body); err != nil {
			rt.logger.Warn("artifact_stream_failed", "request_id", requestIDFromContext(r.Context()), "run_id", id, "error", err)
		}
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
