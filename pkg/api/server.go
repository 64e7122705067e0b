// Package api serves a document read-only over HTTP.
//
// Routes:
//
//	GET  /healthz                 liveness and build version
//	GET  /document                document summary
//	GET  /steps                   timeline steps with their variables
//	GET  /steps/{step}/plan       resolved plan (?format=text for a grid)
//	GET  /entities                every entity in z-order
//	GET  /entities/{id}           one entity
//	GET  /issues                  timeline validation report
//	POST /validate                check proposed bindings against the timeline
//
// Steps are 0-indexed in paths, as in plan JSON. Errors are returned as
// {"error": {"code": ..., "message": ...}}.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/buildinfo"
	"github.com/matzehuels/stepgrid/pkg/document"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/observability"
	"github.com/matzehuels/stepgrid/pkg/pipeline"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/validate"
)

// RequestIDHeader carries the per-request UUID.
const RequestIDHeader = "X-Request-ID"

// Options configures a Server.
type Options struct {
	Binding *binding.Resolver // nil uses the document's board
	Logger  *log.Logger       // nil discards output
}

// Server exposes one document. The document and its store are loaded once
// and never modified, so handlers share them without locking.
type Server struct {
	doc       *document.Document
	store     *scene.Store
	runner    *pipeline.Runner
	bind      *binding.Resolver
	validator *validate.Validator
	logger    *log.Logger
}

// New returns a server for d. A nil runner resolves without caching.
func New(d *document.Document, runner *pipeline.Runner, opts Options) (*Server, error) {
	s, err := d.Store()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	bind := opts.Binding
	if bind == nil {
		bind = binding.NewResolver(d.Bounds(), nil)
	}
	return &Server{
		doc:       d,
		store:     s,
		runner:    runner,
		bind:      bind,
		validator: validate.New(bind),
		logger:    logger,
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Get("/document", s.getDocument)
	r.Get("/steps", s.listSteps)
	r.Get("/steps/{step}/plan", s.getPlan)
	r.Get("/entities", s.listEntities)
	r.Get("/entities/{id}", s.getEntity)
	r.Get("/issues", s.getIssues)
	r.Post("/validate", s.postValidate)
	return r
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	info := buildinfo.Get()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": info.Version, "commit": info.Commit})
}

// DocumentInfo is the body of GET /document.
type DocumentInfo struct {
	ID          string         `json:"id"`
	Version     int            `json:"version"`
	SavedAt     time.Time      `json:"savedAt"`
	Code        string         `json:"code,omitempty"`
	Steps       int            `json:"steps"`
	CurrentStep int            `json:"currentStep"`
	Entities    int            `json:"entities"`
	Board       binding.Bounds `json:"board"`
}

func (s *Server) getDocument(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DocumentInfo{
		ID:          s.doc.ID,
		Version:     s.doc.Version,
		SavedAt:     s.doc.SavedAt,
		Code:        s.doc.Code,
		Steps:       s.doc.Timeline().Len(),
		CurrentStep: s.doc.CurrentStep,
		Entities:    s.store.Len(),
		Board:       s.bind.Bounds,
	})
}

// StepInfo is one entry of GET /steps.
type StepInfo struct {
	Step      int               `json:"step"`
	Line      int               `json:"line,omitempty"`
	Variables map[string]string `json:"variables"`
}

func (s *Server) listSteps(w http.ResponseWriter, _ *http.Request) {
	tl := s.doc.Timeline()
	out := make([]StepInfo, tl.Len())
	for i := range out {
		vars := map[string]string{}
		for name, v := range tl.SnapshotAt(i) {
			vars[name] = v.String()
		}
		out[i] = StepInfo{Step: i, Line: tl.Line(i), Variables: vars}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, errs.New(errs.ErrCodeInvalidInput, "step %q is not a number", chi.URLParam(r, "step")))
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatJSON
	}

	result, err := s.runner.Execute(r.Context(), s.doc, pipeline.Options{
		Steps:   []int{step},
		Formats: []string{format},
		Binding: s.bind,
		Logger:  s.logger,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if format == pipeline.FormatText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Artifacts[format])
		return
	}
	writeJSON(w, http.StatusOK, result.Plans[0])
}

func (s *Server) listEntities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store)
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.store.Get(id)
	if !ok {
		writeError(w, errs.New(errs.ErrCodeEntityNotFound, "entity %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) getIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.runner.Issues(r.Context(), s.doc, pipeline.Options{Binding: s.bind, Logger: s.logger})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

// ValidateRequest is the body of POST /validate. Absent fields are not
// checked.
type ValidateRequest struct {
	Position *binding.Position `json:"position,omitempty"`
	Width    *binding.Numeric  `json:"width,omitempty"`
	Height   *binding.Numeric  `json:"height,omitempty"`
}

// ValidateResponse reports whether the proposed bindings hold at every step.
type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) postValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	f := validate.Fields{Width: req.Width, Height: req.Height}
	if req.Position != nil {
		f.Row, f.Col = &req.Position.Row, &req.Position.Col
	}
	resp := ValidateResponse{Valid: true}
	if err := s.validator.Proposed(f, s.doc.Timeline()); err != nil {
		resp = ValidateResponse{Reason: errs.Reason(err)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Middleware
// =============================================================================

// requestID tags every request and response with a UUID, keeping one the
// client supplied.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// observe reports each request to the HTTP hooks and the debug log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", w.Header().Get(RequestIDHeader),
			"duration", time.Since(start))
	})
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error struct {
		Code    errs.Code `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Code = errs.GetCode(err)
	if body.Error.Code == "" {
		body.Error.Code = errs.ErrCodeInternal
	}
	body.Error.Message = errs.UserMessage(err)
	writeJSON(w, StatusOf(err), body)
}

// StatusOf maps an error code to an HTTP status.
func StatusOf(err error) int {
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidDirection,
		errs.ErrCodeExpression, errs.ErrCodeTimelineIntegrity:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound, errs.ErrCodeEntityNotFound, errs.ErrCodeDocumentNotFound:
		return http.StatusNotFound
	case errs.ErrCodeInvalidDocument:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
