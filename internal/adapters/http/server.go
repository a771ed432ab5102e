package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"rwadirectory/internal/api"
	"rwadirectory/internal/domain"
	"rwadirectory/internal/metrics"
	"rwadirectory/internal/ports"
)

// ReviewerHeader carries the authenticated reviewer id set by the upstream auth proxy.
const ReviewerHeader = "X-Reviewer-ID"

// Server exposes the admin API over validation records.
type Server struct {
	validator ports.Validator
	jobs      ports.JobRepository
	logger    *zap.Logger
}

// New returns a Server. jobs may be nil, in which case async requests are refused.
func New(validator ports.Validator, jobs ports.JobRepository, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{validator: validator, jobs: jobs, logger: logger.Named("http")}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.getHealthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/openapi.yaml", s.getOpenAPI)

	r.Route("/projects/{projectId}", func(r chi.Router) {
		r.Post("/validation", s.postValidation)
		r.Get("/validation", s.getValidation)
		r.Post("/validation/overrides", s.postOverride)
		r.Get("/approval", s.getApproval)
	})
	r.Get("/validation-jobs/{jobId}", s.getJob)
	return r
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(r.Method, route, status, time.Since(start))
	})
}

func (s *Server) getHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(api.Document)
}

func (s *Server) postValidation(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var async *bool
	if err := runtime.BindQueryParameter("form", true, false, "async", r.URL.Query(), &async); err != nil {
		writeError(w, http.StatusBadRequest, "invalid async parameter: "+err.Error())
		return
	}

	if async != nil && *async {
		if s.jobs == nil {
			writeError(w, http.StatusServiceUnavailable, "background validation is not enabled")
			return
		}
		jobID, err := s.jobs.Enqueue(r.Context(), projectID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, jobAccepted{JobID: jobID})
		return
	}

	v, err := s.validator.Revalidate(r.Context(), projectID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toValidationResponse(v))
}

func (s *Server) getValidation(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	v, err := s.validator.Get(r.Context(), projectID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toValidationResponse(v))
}

func (s *Server) postOverride(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	reviewer := r.Header.Get(ReviewerHeader)
	if reviewer == "" {
		writeError(w, http.StatusUnauthorized, "missing "+ReviewerHeader+" header")
		return
	}

	var body overrideRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if body.Passed == nil {
		writeError(w, http.StatusBadRequest, "passed is required")
		return
	}
	kind, err := domain.ParseCheckKind(body.Check)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	v, err := s.validator.Override(r.Context(), projectID, domain.Override{
		Check:      kind,
		Passed:     *body.Passed,
		Notes:      body.Notes,
		ReviewerID: reviewer,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toValidationResponse(v))
}

func (s *Server) getApproval(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	d, err := s.validator.Approval(r.Context(), projectID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	var jobID string
	if err := runtime.BindStyledParameterWithOptions("simple", "jobId", chi.URLParam(r, "jobId"), &jobID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid jobId: "+err.Error())
		return
	}
	if s.jobs == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) projectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "projectId", chi.URLParam(r, "projectId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, "invalid projectId")
		return "", false
	}
	return id, true
}

// fail maps domain errors to status codes; anything else is a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnknownCheck):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOverrideNotesRequired):
		writeError(w, http.StatusUnprocessableEntity, "notes of at least 3 characters are required when changing a verdict")
	case errors.Is(err, domain.ErrReviewerRequired):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
