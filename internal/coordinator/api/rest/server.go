package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nemanja-m/wordfreq/internal/coordinator/core"
	"github.com/nemanja-m/wordfreq/internal/coordinator/service"
	"github.com/nemanja-m/wordfreq/internal/shared/config"
	"github.com/nemanja-m/wordfreq/internal/shared/logging"
)

const (
	defaultListLimit    = 10
	defaultMaxBodyBytes = 32 << 20
)

// JobService is the part of the coordinator the REST API serves.
type JobService interface {
	Submit(ctx context.Context, text string, opts ...service.SubmitOption) (*core.JobResult, error)
	GetJob(id uuid.UUID) (*core.Job, error)
	GetJobs(filter core.JobFilter) ([]*core.Job, int, error)
	Health(ctx context.Context) core.ClusterHealth
}

type API struct {
	jobService   JobService
	maxBodyBytes int64
	logger       logging.Logger
}

func NewAPI(jobService JobService, maxBodyBytes int64, logger logging.Logger) *API {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &API{
		jobService:   jobService,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/wordcount", a.wordCount)
	mux.HandleFunc("GET /api/status", a.status)
	mux.HandleFunc("GET /api/jobs", a.listJobs)
	mux.HandleFunc("GET /api/jobs/{id}", a.getJob)
}

// wordCount handles POST /api/wordcount. It blocks until the job finished.
func (a *API) wordCount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes)

	var req WordCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			a.respondError(w, http.StatusRequestEntityTooLarge, "request body too large",
				fmt.Sprintf("limit is %d bytes", maxBytesErr.Limit))
			return
		}
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	var opts []service.SubmitOption
	if req.Splits != nil {
		if *req.Splits <= 0 {
			a.respondError(w, http.StatusBadRequest, "validation failed", "splits must be greater than 0")
			return
		}
		opts = append(opts, service.WithSplitCount(*req.Splits))
	}

	result, err := a.jobService.Submit(r.Context(), req.Text, opts...)
	if err != nil {
		a.respondSubmitError(w, err)
		return
	}

	a.respondJSON(w, http.StatusOK, ToWordCountResponse(result))
}

func (a *API) respondSubmitError(w http.ResponseWriter, err error) {
	var (
		validationErr *core.ValidationError
		failure       *core.JobFailure
	)
	switch {
	case errors.As(err, &validationErr):
		a.respondError(w, http.StatusBadRequest, "validation failed", validationErr.Err.Error())
	case errors.As(err, &failure):
		a.respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "job failed",
			Message: failure.Err.Error(),
			Stage:   string(failure.Stage),
			Code:    http.StatusInternalServerError,
		})
	default:
		a.logger.Error("Failed to submit job", "error", err)
		a.respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// status handles GET /api/status
func (a *API) status(w http.ResponseWriter, r *http.Request) {
	health := a.jobService.Health(r.Context())
	code := http.StatusOK
	if !health.Healthy {
		code = http.StatusServiceUnavailable
	}
	a.respondJSON(w, code, ToStatusResponse(health))
}

// getJob handles GET /api/jobs/{id}
func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid job ID", err.Error())
		return
	}

	job, err := a.jobService.GetJob(id)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, "failed to get job", err.Error())
		return
	}
	if job == nil {
		a.respondError(w, http.StatusNotFound, "job not found", "")
		return
	}

	a.respondJSON(w, http.StatusOK, ToGetJobResponse(job))
}

// listJobs handles GET /api/jobs with filters and pagination
func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var filter core.JobFilter
	if state := query.Get("state"); state != "" {
		s := core.JobState(strings.ToUpper(state))
		filter.State = &s
	}

	filter.Limit = defaultListLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	jobs, total, err := a.jobService.GetJobs(filter)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, "failed to list jobs", err.Error())
		return
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, ToJobSummary(job))
	}

	var nextOffset *int
	if end := filter.Offset + len(jobs); end < total {
		nextOffset = &end
	}

	a.respondJSON(w, http.StatusOK, ListJobsResponse{
		Jobs:       summaries,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
		NextOffset: nextOffset,
	})
}

func (a *API) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Warn("Failed to write response", "error", err)
	}
}

func (a *API) respondError(w http.ResponseWriter, statusCode int, error string, message string) {
	resp := ErrorResponse{
		Error:   error,
		Message: message,
		Code:    statusCode,
	}
	a.respondJSON(w, statusCode, resp)
}

func NewServer(cfg config.RESTConfig, jobService JobService, logger logging.Logger) *http.Server {
	api := NewAPI(jobService, cfg.MaxBodyBytes, logger)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	handler := ChainMiddleware(
		mux,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware,
	)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
