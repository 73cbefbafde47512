package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/flightstats-assistant/internal/middleware"
	"github.com/capitalize-ai/flightstats-assistant/internal/model"
	"github.com/capitalize-ai/flightstats-assistant/internal/service"
	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
)

// EventReader replays recorded run events.
type EventReader interface {
	ThreadEvents(ctx context.Context, threadID string, limit int) ([]model.RunEvent, error)
}

// EventsHandler serves run event history.
type EventsHandler struct {
	events EventReader
	logger *logger.Logger
}

// NewEventsHandler creates a new events handler. A nil reader means run event
// publishing is disabled.
func NewEventsHandler(events EventReader, log *logger.Logger) *EventsHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventsHandler{
		events: events,
		logger: log,
	}
}

// ThreadEventsResponse lists the recorded events of a thread.
type ThreadEventsResponse struct {
	ThreadID string           `json:"threadId"`
	Events   []model.RunEvent `json:"events"`
}

// List handles GET /threads/{threadID}/events
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "run event history is disabled", "UNAVAILABLE")
		return
	}

	threadID := chi.URLParam(r, "threadID")
	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), string(service.ErrorInvalidInput))
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	events, err := h.events.ThreadEvents(r.Context(), threadID, limit)
	if err != nil {
		h.logger.WithRun(threadID, "").Error("failed to read run events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read run events", string(service.ErrorInternal))
		return
	}

	writeJSON(w, http.StatusOK, &ThreadEventsResponse{ThreadID: threadID, Events: events})
}
