// Package service drives chat exchanges against the reasoning engine.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/flightstats-assistant/internal/llm"
	"github.com/capitalize-ai/flightstats-assistant/internal/model"
	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
	"github.com/capitalize-ai/flightstats-assistant/pkg/metrics"
	"github.com/capitalize-ai/flightstats-assistant/pkg/tracing"
)

// NoResponseAnswer is returned when a completed run left no assistant text.
const NoResponseAnswer = "No response"

// Config holds the exchange tuning knobs.
type Config struct {
	AssistantID      string
	PollInterval     time.Duration
	ThreadRetry      RetryPolicy
	MessageListLimit int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:     800 * time.Millisecond,
		ThreadRetry:      RetryPolicy{Attempts: 3, Delay: 2 * time.Second},
		MessageListLimit: 10,
	}
}

// ChatService runs one exchange per user message: it creates a thread, posts
// the message, starts a run and drives it to a final answer.
type ChatService struct {
	assistant  llm.Assistant
	dispatcher *Dispatcher
	events     EventPublisher
	cfg        Config
	logger     *logger.Logger
	tracer     trace.Tracer

	// thread id -> struct{} for threads with a run in flight
	active sync.Map
}

// NewChatService creates a chat service. A nil events publisher discards events.
func NewChatService(assistant llm.Assistant, dispatcher *Dispatcher, events EventPublisher, cfg Config, log *logger.Logger) (*ChatService, error) {
	if assistant == nil {
		return nil, errors.New("service: assistant is required")
	}
	if dispatcher == nil {
		return nil, errors.New("service: dispatcher is required")
	}
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	defaults := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.ThreadRetry.Attempts <= 0 {
		cfg.ThreadRetry = defaults.ThreadRetry
	}
	if cfg.MessageListLimit <= 0 {
		cfg.MessageListLimit = defaults.MessageListLimit
	}

	return &ChatService{
		assistant:  assistant,
		dispatcher: dispatcher,
		events:     events,
		cfg:        cfg,
		logger:     log,
		tracer:     tracing.Tracer("flightstats-assistant/service"),
	}, nil
}

// Handle runs a full exchange for userMessage and returns the final answer.
// Errors are *Error values carrying an ErrorCode.
func (s *ChatService) Handle(ctx context.Context, userMessage string) (*model.ChatResponse, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, newError(ErrorInvalidInput, "message is required", nil)
	}

	ctx, span := s.tracer.Start(ctx, "chat.exchange")
	defer span.End()

	start := time.Now()
	base := s.logger.WithRequest(logger.CorrelationID(ctx))
	x := &exchange{svc: s, input: userMessage, state: StateCreatingThread, base: base, log: base}
	resp, err := x.drive(ctx)

	outcome := "completed"
	if err != nil {
		outcome = string(CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("thread.id", x.threadID), attribute.String("run.id", x.runID))
	metrics.RecordExchange(outcome, time.Since(start).Seconds())

	return resp, err
}

// exchange is the per-request state machine. It is owned by one goroutine.
type exchange struct {
	svc   *ChatService
	input string
	state State
	base  *logger.Logger
	log   *logger.Logger

	threadID   string
	runID      string
	run        model.Run
	lastStatus model.RunStatus
	answer     string
	err        error
	acquired   bool
}

func (x *exchange) drive(ctx context.Context) (*model.ChatResponse, error) {
	defer x.release()

	for !x.state.Terminal() {
		next := x.step(ctx)
		if next != x.state {
			x.log.Debug("exchange transition", zap.Stringer("from", x.state), zap.Stringer("to", next))
		}
		x.state = next
	}

	if x.state == StateFailed {
		x.log.Warn("exchange failed", zap.Error(x.err))
		x.emit(ctx, model.RunEventRunFailed, func(e *model.RunEvent) {
			e.Status = x.run.Status
			e.Reason = string(CodeOf(x.err))
		})
		return nil, x.err
	}

	x.log.Info("exchange completed", zap.Int("answer_len", len(x.answer)))
	x.emit(ctx, model.RunEventRunCompleted, func(e *model.RunEvent) { e.Status = x.run.Status })
	return &model.ChatResponse{Answer: x.answer, ThreadID: x.threadID, RunID: x.runID}, nil
}

func (x *exchange) step(ctx context.Context) State {
	switch x.state {
	case StateCreatingThread:
		return x.createThread(ctx)
	case StatePostingMessage:
		return x.postMessage(ctx)
	case StateRunStarting:
		return x.startRun(ctx)
	case StateRunPolling:
		return x.poll(ctx)
	case StateAwaitingToolOutputs:
		return x.submitToolOutputs(ctx)
	case StateFetchingAnswer:
		return x.fetchAnswer(ctx)
	default:
		return x.fail(newError(ErrorInternal, "unexpected state "+x.state.String(), nil))
	}
}

func (x *exchange) createThread(ctx context.Context) State {
	policy := x.svc.cfg.ThreadRetry
	err := policy.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			metrics.ThreadCreateRetriesTotal.Inc()
		}
		thread, err := x.svc.assistant.CreateThread(ctx)
		if err != nil {
			x.log.Warn("thread creation failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", policy.Attempts),
				zap.Error(err))
			return err
		}
		x.threadID = thread.ID
		return nil
	})
	if err != nil {
		return x.fail(upstreamError("create thread", err))
	}

	x.log = x.log.WithRun(x.threadID, "")
	x.log.Info("thread created")
	x.emit(ctx, model.RunEventThreadCreated, nil)
	return StatePostingMessage
}

func (x *exchange) postMessage(ctx context.Context) State {
	if _, err := x.svc.assistant.CreateMessage(ctx, x.threadID, model.RoleUser, x.input); err != nil {
		return x.fail(upstreamError("post message", err))
	}
	x.emit(ctx, model.RunEventMessagePosted, nil)
	return StateRunStarting
}

func (x *exchange) startRun(ctx context.Context) State {
	if !x.acquire() {
		return x.fail(newError(ErrorThreadBusy, "thread already has an active run", nil))
	}

	run, err := x.svc.assistant.CreateRun(ctx, x.threadID, x.svc.cfg.AssistantID)
	if err != nil {
		return x.fail(upstreamError("start run", err))
	}
	x.run = run
	x.runID = run.ID
	x.log = x.base.WithRun(x.threadID, x.runID)
	x.log.Info("run started", zap.String("status", string(run.Status)))
	x.emit(ctx, model.RunEventRunStarted, func(e *model.RunEvent) { e.Status = run.Status })
	return StateRunPolling
}

func (x *exchange) poll(ctx context.Context) State {
	run, err := x.svc.assistant.RetrieveRun(ctx, x.threadID, x.runID)
	if err != nil {
		return x.fail(upstreamError("retrieve run", err))
	}
	x.run = run
	metrics.RunPollsTotal.WithLabelValues(string(run.Status)).Inc()

	if run.Status != x.lastStatus {
		x.log.Debug("run status", zap.String("status", string(run.Status)))
		x.emit(ctx, model.RunEventRunStatus, func(e *model.RunEvent) { e.Status = run.Status })
		x.lastStatus = run.Status
	}

	next, err := NextFromRun(run)
	if err != nil {
		return x.fail(err)
	}
	if next == StateRunPolling {
		if err := sleep(ctx, x.svc.cfg.PollInterval); err != nil {
			return x.fail(upstreamError("poll run", err))
		}
	}
	return next
}

func (x *exchange) submitToolOutputs(ctx context.Context) State {
	calls, ok := x.run.PendingToolCalls()
	if !ok {
		return x.fail(newError(ErrorProtocol, "run requires action without tool calls", nil))
	}

	outputs := x.svc.dispatcher.Dispatch(ctx, x.log, calls)
	if _, err := x.svc.assistant.SubmitToolOutputs(ctx, x.threadID, x.runID, outputs); err != nil {
		return x.fail(upstreamError("submit tool outputs", err))
	}

	x.log.Info("tool outputs submitted", zap.Int("tool_calls", len(outputs)))
	x.emit(ctx, model.RunEventToolOutputsSubmitted, func(e *model.RunEvent) { e.ToolCalls = len(outputs) })
	// Force a status event on the next poll even if the status repeats.
	x.lastStatus = ""
	return StateRunPolling
}

func (x *exchange) fetchAnswer(ctx context.Context) State {
	msgs, err := x.svc.assistant.ListMessages(ctx, x.threadID, x.svc.cfg.MessageListLimit)
	if err != nil {
		return x.fail(upstreamError("list messages", err))
	}
	x.answer = latestAssistantAnswer(msgs)
	return StateDone
}

func (x *exchange) fail(err error) State {
	x.err = err
	return StateFailed
}

func (x *exchange) acquire() bool {
	if _, loaded := x.svc.active.LoadOrStore(x.threadID, struct{}{}); loaded {
		return false
	}
	x.acquired = true
	metrics.ActiveRuns.Inc()
	return true
}

func (x *exchange) release() {
	if !x.acquired {
		return
	}
	x.svc.active.Delete(x.threadID)
	metrics.ActiveRuns.Dec()
	x.acquired = false
}

// emit publishes a run event. Failures are logged and otherwise ignored.
func (x *exchange) emit(ctx context.Context, typ model.RunEventType, fill func(*model.RunEvent)) {
	event := &model.RunEvent{
		ID:        uuid.NewString(),
		ThreadID:  x.threadID,
		RunID:     x.runID,
		Type:      typ,
		State:     x.state.String(),
		CreatedAt: time.Now().UTC(),
	}
	if fill != nil {
		fill(event)
	}
	if err := x.svc.events.PublishRunEvent(context.WithoutCancel(ctx), event); err != nil {
		x.log.Warn("failed to publish run event", zap.String("type", string(typ)), zap.Error(err))
	}
}

// latestAssistantAnswer picks the newest assistant message from a list ordered
// newest first, falling back to NoResponseAnswer.
func latestAssistantAnswer(msgs []model.Message) string {
	var latest *model.Message
	for i := range msgs {
		if msgs[i].Role != model.RoleAssistant {
			continue
		}
		if latest == nil || msgs[i].CreatedAt.After(latest.CreatedAt) {
			latest = &msgs[i]
		}
	}
	if latest == nil {
		return NoResponseAnswer
	}
	if text := latest.Text(); text != "" {
		return text
	}
	return NoResponseAnswer
}
