package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/user/registry-crawler/internal/delivery/http/request"
	"github.com/user/registry-crawler/internal/delivery/http/response"
	"github.com/user/registry-crawler/internal/repository"
	"github.com/user/registry-crawler/internal/usecase"
	"github.com/user/registry-crawler/pkg/config"
	"go.uber.org/zap"
)

const (
	defaultFailedTaskLimit = 50
	maxFailedTaskLimit     = 500
)

// PingFunc checks one backing service for the health endpoint.
type PingFunc func(ctx context.Context) error

type Handler struct {
	runManager  usecase.RunManager
	failedTasks repository.FailedTaskRepository
	checks      map[string]PingFunc
	logger      *zap.Logger
}

// NewHandler wires the API. failedTasks and checks may be nil.
func NewHandler(runManager usecase.RunManager, failedTasks repository.FailedTaskRepository, checks map[string]PingFunc, logger *zap.Logger) *Handler {
	return &Handler{
		runManager:  runManager,
		failedTasks: failedTasks,
		checks:      checks,
		logger:      logger.Named("api"),
	}
}

func (h *Handler) HandleSubmitCrawl(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MaxRequests < 0 {
		h.writeJSONError(w, "max_requests must not be negative", http.StatusBadRequest)
		return
	}

	queries := append(req.Queries, config.ParseQueries(req.Query)...)
	runID, err := h.runManager.Submit(r.Context(), queries, req.ExactMatch, req.MaxRequests)
	if err != nil {
		if errors.Is(err, usecase.ErrNoQueries) {
			h.writeJSONError(w, "At least one search query is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to submit crawl run", zap.Strings("queries", queries), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.SubmitCrawlResponse{
		Status:  "success",
		Message: "Crawl run started",
		RunID:   runID,
	})
}

func (h *Handler) HandleGetRunStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.runManager.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrRunNotFound) {
			h.writeJSONError(w, "Crawl run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get run status", zap.String("run_id", id), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewRunStatusResponse(status))
}

func (h *Handler) HandleListFailedTasks(w http.ResponseWriter, r *http.Request) {
	if h.failedTasks == nil {
		h.writeJSON(w, http.StatusOK, []response.FailedTaskResponse{})
		return
	}

	limit := defaultFailedTaskLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxFailedTaskLimit)
	}

	tasks, err := h.failedTasks.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list failed tasks", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	out := make([]response.FailedTaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, response.NewFailedTaskResponse(t))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("service", name), zap.Error(err))
			health[name] = "unhealthy"
			health["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		health[name] = "healthy"
	}
	h.writeJSON(w, code, health)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
