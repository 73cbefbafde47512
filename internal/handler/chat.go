package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/flightstats-assistant/internal/middleware"
	"github.com/capitalize-ai/flightstats-assistant/internal/model"
	"github.com/capitalize-ai/flightstats-assistant/internal/service"
	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
)

// Chatter runs one chat exchange.
type Chatter interface {
	Handle(ctx context.Context, userMessage string) (*model.ChatResponse, error)
}

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	chat    Chatter
	timeout time.Duration
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler. A zero timeout leaves the request
// context unbounded.
func NewChatHandler(chat Chatter, timeout time.Duration, log *logger.Logger) *ChatHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatHandler{
		chat:    chat,
		timeout: timeout,
		logger:  log,
	}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithRequest(middleware.GetCorrelationID(ctx))

	var req model.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2*middleware.MaxMessageLength)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", string(service.ErrorInvalidInput))
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), string(service.ErrorInvalidInput))
		return
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.chat.Handle(ctx, req.Message)
	if err != nil {
		status, message, code := classify(err)
		if status >= http.StatusInternalServerError {
			log.Error("chat exchange failed", zap.String("code", code), zap.Error(err))
		}
		writeError(w, status, message, code)
		return
	}

	log.Info("chat answered", zap.String("thread_id", resp.ThreadID), zap.String("run_id", resp.RunID))
	writeJSON(w, http.StatusOK, resp)
}

var statusByCode = map[service.ErrorCode]int{
	service.ErrorInvalidInput:  http.StatusBadRequest,
	service.ErrorUpstream:      http.StatusBadGateway,
	service.ErrorRunTerminated: http.StatusBadGateway,
	service.ErrorProtocol:      http.StatusBadGateway,
	service.ErrorThreadBusy:    http.StatusConflict,
	service.ErrorTimeout:       http.StatusGatewayTimeout,
	service.ErrorInternal:      http.StatusInternalServerError,
}

// classify maps an exchange error to an HTTP status, message and code.
func classify(err error) (int, string, string) {
	var se *service.Error
	if !errors.As(err, &se) {
		return http.StatusInternalServerError, "internal error", string(service.ErrorInternal)
	}
	status, ok := statusByCode[se.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return status, se.Message(), string(se.Code)
}
