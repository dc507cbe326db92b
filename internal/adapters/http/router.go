package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/openplag/internal/config"
	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
	"github.com/kirillkom/openplag/internal/observability/metrics"
)

const (
	serviceName    = "openplag-api"
	maxUploadBytes = 20 << 20
)

type Router struct {
	analyzer    ports.DocumentAnalyzer
	submissions ports.SubmissionChecker
	archive     ports.DocumentArchiver
	metrics     *metrics.HTTPServerMetrics
	validator   *schemaValidator

	apiKey         string
	rateLimitRPS   float64
	rateLimitBurst int
}

// NewRouter fails only when the embedded OpenAPI document is invalid. m may be nil.
func NewRouter(
	cfg config.Config,
	analyzer ports.DocumentAnalyzer,
	submissions ports.SubmissionChecker,
	archive ports.DocumentArchiver,
	m *metrics.HTTPServerMetrics,
) (*Router, error) {
	validator, err := newSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &Router{
		analyzer:       analyzer,
		submissions:    submissions,
		archive:        archive,
		metrics:        m,
		validator:      validator,
		apiKey:         cfg.APIKey,
		rateLimitRPS:   cfg.APIRateLimitRPS,
		rateLimitBurst: cfg.APIRateLimitBurst,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", rt.healthz)
	r.Get("/openapi.yaml", rt.openAPI)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Post("/v1/analyses", rt.createAnalysis)
	r.Get("/v1/archive", rt.listArchive)
	r.Post("/v1/archive", rt.archiveDocument)
	r.With(requireAPIKey(rt.apiKey)).Delete("/v1/archive", rt.clearArchive)
	r.Get("/v1/archive/stats", rt.archiveStats)
	r.Get("/v1/archive/{id}", rt.getArchiveEntry)

	var handler http.Handler = r
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = recoverMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

type analyzeRequest struct {
	Text    string `json:"text"`
	SkipWeb bool   `json:"skip_web"`
}

type analyzeResponse struct {
	TextChars int                    `json:"text_chars"`
	Report    *domain.AnalysisReport `json:"report"`
}

func (rt *Router) createAnalysis(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var (
		text   string
		report *domain.AnalysisReport
		err    error
	)
	if isMultipart(r) {
		var sub domain.Submission
		var skipWeb bool
		sub, skipWeb, err = readSubmission(r, false)
		if err != nil {
			writeError(w, r, err)
			return
		}
		text, report, err = rt.submissions.Check(r.Context(), sub, ports.AnalyzeOptions{SkipWeb: skipWeb})
	} else {
		var req analyzeRequest
		if err := rt.decodeJSON(r, "AnalyzeRequest", &req); err != nil {
			writeError(w, r, err)
			return
		}
		text = strings.TrimSpace(req.Text)
		report, err = rt.analyzer.Analyze(r.Context(), text, ports.AnalyzeOptions{SkipWeb: req.SkipWeb})
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAnalysis(serviceName, "analyses", report, time.Since(start))
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		TextChars: len([]rune(text)),
		Report:    report,
	})
}

type archiveRequest struct {
	Submitter string `json:"submitter"`
	Filename  string `json:"filename"`
	Content   string `json:"content"`
}

func (rt *Router) archiveDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var req ports.ArchiveRequest
	if isMultipart(r) {
		sub, _, err := readSubmission(r, true)
		if err != nil {
			writeError(w, r, err)
			return
		}
		text, err := rt.submissions.Extract(r.Context(), sub)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req = ports.ArchiveRequest{Submitter: sub.Submitter, Filename: sub.Filename, Content: text, Raw: sub.Data}
	} else {
		var body archiveRequest
		if err := rt.decodeJSON(r, "ArchiveRequest", &body); err != nil {
			writeError(w, r, err)
			return
		}
		req = ports.ArchiveRequest{Submitter: body.Submitter, Filename: body.Filename, Content: body.Content}
	}

	result, err := rt.archive.Archive(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordArchive(serviceName, result.Inserted)
	}

	status := http.StatusOK
	if result.Inserted {
		status = http.StatusCreated
		if result.Entry != nil {
			w.Header().Set("Location", "/v1/archive/"+result.Entry.ID)
		}
	}
	writeJSON(w, status, result)
}

type archiveListResponse struct {
	Entries []domain.ArchiveEntry `json:"entries"`
	Count   int                   `json:"count"`
}

func (rt *Router) listArchive(w http.ResponseWriter, r *http.Request) {
	entries, err := rt.archive.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]domain.ArchiveEntry, 0, len(entries))
	for _, entry := range entries {
		entry.Content = ""
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, archiveListResponse{Entries: out, Count: len(out)})
}

func (rt *Router) getArchiveEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := rt.archive.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) archiveStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.archive.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) clearArchive(w http.ResponseWriter, r *http.Request) {
	if err := rt.archive.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) decodeJSON(r *http.Request, schema string, dst any) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "read request body", err)
	}
	return rt.validator.decode(schema, raw, dst)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readSubmission reads the "file" part plus the optional "submitter" and
// "skip_web" fields of a multipart form.
func readSubmission(r *http.Request, requireSubmitter bool) (domain.Submission, bool, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return domain.Submission{}, false, domain.WrapError(domain.ErrInvalidInput, "parse multipart form", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return domain.Submission{}, false, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required"))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.Submission{}, false, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}

	submitter := strings.TrimSpace(r.FormValue("submitter"))
	if requireSubmitter && submitter == "" {
		return domain.Submission{}, false, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'submitter' is required"))
	}

	skipWeb := false
	if raw := r.FormValue("skip_web"); raw != "" {
		skipWeb, err = strconv.ParseBool(raw)
		if err != nil {
			return domain.Submission{}, false, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("skip_web: %w", err))
		}
	}

	return domain.Submission{
		Submitter: submitter,
		Filename:  header.Filename,
		Data:      data,
	}, skipWeb, nil
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	requestID := requestIDFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		slog.Error("http_request_failed", "request_id", requestID, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: requestID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
