package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

// stream emits progress over server-sent events until the task reaches a
// terminal state, then sends the final payload and closes. The ticker is
// released as soon as the client disconnects.
func (h *handler) stream(w http.ResponseWriter, r *http.Request, taskID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if _, err := h.usecase.GetStatus(r.Context(), taskID); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "search task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for {
		status, err := h.usecase.GetStatus(r.Context(), taskID)
		if err != nil {
			// Cleanup evicted the task mid-stream.
			writeEvent(w, "error", domain.ErrorResponse{Error: "search task not found"})
			flusher.Flush()
			return
		}

		switch status.Status {
		case domain.StatusCompleted:
			results, err := h.usecase.GetResults(r.Context(), taskID)
			if err != nil {
				writeEvent(w, "error", domain.ErrorResponse{Error: "failed to load results"})
				flusher.Flush()
				return
			}
			writeEvent(w, "completed", results)
			flusher.Flush()
			return

		case domain.StatusFailed:
			writeEvent(w, "failed", status)
			flusher.Flush()
			return

		default:
			writeEvent(w, "progress", status)
			flusher.Flush()
		}

		select {
		case <-r.Context().Done():
			slog.Debug("stream client disconnected", slog.String("task_id", taskID))
			return
		case <-ticker.C:
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("writeEvent", slog.String("error", err.Error()))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
