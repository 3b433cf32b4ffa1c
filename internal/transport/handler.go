package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

type Usecase interface {
	StartSearch(ctx context.Context, userID string, criteria domain.UserCriteria) (domain.CreateSearchResponse, error)
	GetStatus(ctx context.Context, taskID string) (domain.StatusResponse, error)
	GetResults(ctx context.Context, taskID string) (domain.ResultsResponse, error)
	GetStats(ctx context.Context) domain.StatsResponse
	ListSearches(ctx context.Context, userID string) (domain.SearchListResponse, error)
}

type handler struct {
	usecase        Usecase
	streamInterval time.Duration
}

func NewHandler(uc Usecase, streamInterval time.Duration) *handler {
	return &handler{usecase: uc, streamInterval: streamInterval}
}

type createSearchRequest struct {
	UserID   string `json:"userId"`
	JobTitle string `json:"jobTitle"`
	Location string `json:"location"`
	Skills   string `json:"skills"`
	Salary   string `json:"salary"`
}

func (h *handler) createSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := slog.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("handler", "createSearch"),
		slog.String("remote_addr", r.RemoteAddr),
	)

	var req createSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("bad request body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.UserID == "" || req.JobTitle == "" || req.Location == "" || req.Skills == "" || req.Salary == "" {
		writeError(w, http.StatusBadRequest,
			"missing required body params: userId, jobTitle, location, skills, salary")
		return
	}

	resp, err := h.usecase.StartSearch(r.Context(), req.UserID, domain.UserCriteria{
		JobTitle: req.JobTitle,
		Location: req.Location,
		Skills:   req.Skills,
		Salary:   req.Salary,
	})
	if err != nil {
		logger.Error("StartSearch usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create search")
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// task serves both GET /tasks/{id} and GET /tasks/{id}/stream.
func (h *handler) task(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	taskID := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if stream, ok := strings.CutSuffix(taskID, "/stream"); ok {
		h.stream(w, r, stream)
		return
	}
	if taskID == "" || strings.Contains(taskID, "/") {
		writeError(w, http.StatusBadRequest, "missing task ID")
		return
	}

	resp, err := h.usecase.GetStatus(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "search task not found")
			return
		}
		slog.Error("GetStatus", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) results(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := slog.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("handler", "results"),
		slog.String("remote_addr", r.RemoteAddr),
	)

	taskID := strings.TrimPrefix(r.URL.Path, "/results/")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "missing task ID")
		return
	}

	resp, err := h.usecase.GetResults(r.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, "search task not found")
		case errors.Is(err, domain.ErrTaskNotReady):
			writeError(w, http.StatusTooEarly, "results are not ready yet")
		case errors.Is(err, domain.ErrTaskFailed):
			writeJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
				Error:   "search task failed",
				Message: err.Error(),
			})
		default:
			logger.Error("GetResults", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) searches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing required query param: userId")
		return
	}

	resp, err := h.usecase.ListSearches(r.Context(), userID)
	if err != nil {
		slog.Error("ListSearches", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list searches")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	writeJSON(w, http.StatusOK, h.usecase.GetStats(r.Context()))
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "job-curator"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	resp := domain.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", slog.String("error", err.Error()))
	}
}
