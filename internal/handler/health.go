package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/flightstats-assistant/internal/llm"
	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
)

// ConnChecker reports broker connectivity.
type ConnChecker interface {
	IsConnected() bool
}

// Pinger checks the data store connection.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	prober llm.Prober
	nats   ConnChecker
	db     Pinger
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler. nats and db may be nil when
// the corresponding dependency is not configured.
func NewHealthHandler(prober llm.Prober, nats ConnChecker, db Pinger, log *logger.Logger) *HealthHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &HealthHandler{
		prober: prober,
		nats:   nats,
		db:     db,
		logger: log,
	}
}

// Info handles GET /
func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Server is running",
		"endpoints": map[string]string{
			"chat":   "POST /chat",
			"test":   "GET /test-openai",
			"events": "GET /threads/{threadID}/events",
		},
	})
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.nats != nil && !h.nats.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "data store unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// TestOpenAI handles GET /test-openai
func (h *HealthHandler) TestOpenAI(w http.ResponseWriter, r *http.Request) {
	count, err := h.prober.Probe(r.Context())
	if err != nil {
		h.logger.Warn("reasoning engine probe failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status": "error",
			"error":  err.Error(),
			"hint":   "Check your network connection, firewall, or proxy settings",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"message":    "OpenAI connection working",
		"modelCount": count,
	})
}
