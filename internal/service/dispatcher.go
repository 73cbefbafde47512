package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/flightstats-assistant/internal/datastore"
	"github.com/capitalize-ai/flightstats-assistant/internal/model"
	"github.com/capitalize-ai/flightstats-assistant/internal/tool"
	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
	"github.com/capitalize-ai/flightstats-assistant/pkg/metrics"
	"github.com/capitalize-ai/flightstats-assistant/pkg/tracing"
)

// StatementBuilder renders a query request as a SQL statement.
type StatementBuilder interface {
	Build(req model.QueryRequest) string
}

// QueryRunner executes read-only statements.
type QueryRunner interface {
	Query(ctx context.Context, stmt string) ([]datastore.Row, error)
}

// Dispatcher turns the tool calls of a paused run into tool outputs.
type Dispatcher struct {
	builder     StatementBuilder
	store       QueryRunner
	concurrency int
	logger      *logger.Logger
	tracer      trace.Tracer
}

// NewDispatcher creates a dispatcher. Concurrency below one runs calls sequentially.
func NewDispatcher(builder StatementBuilder, store QueryRunner, concurrency int, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{
		builder:     builder,
		store:       store,
		concurrency: max(concurrency, 1),
		logger:      log,
		tracer:      tracing.Tracer("flightstats-assistant/dispatcher"),
	}
}

// Dispatch produces exactly one output per call, in call order. Individual
// failures become error payloads; Dispatch itself never fails. Entries are
// written through log, or the dispatcher's logger when log is nil.
func (d *Dispatcher) Dispatch(ctx context.Context, log *logger.Logger, calls []model.ToolCall) []model.ToolOutput {
	if log == nil {
		log = d.logger
	}
	outputs := make([]model.ToolOutput, len(calls))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, tc := range calls {
		i, tc := i, tc
		g.Go(func() error {
			outputs[i] = d.dispatchOne(ctx, log, tool.Decode(tc))
			return nil
		})
	}
	// workers report failures through outputs, never through the group
	_ = g.Wait()

	return outputs
}

func (d *Dispatcher) dispatchOne(ctx context.Context, log *logger.Logger, call tool.Call) (out model.ToolOutput) {
	ctx, span := d.tracer.Start(ctx, "tool.dispatch", trace.WithAttributes(
		attribute.String("tool.name", call.ToolName()),
		attribute.String("tool.call_id", call.CallID()),
	))
	defer span.End()

	log = log.With(zap.String("tool", call.ToolName()), zap.String("tool_call_id", call.CallID()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("tool call panicked", zap.Any("panic", r))
			metrics.RecordToolCall(call.ToolName(), "error")
			out = tool.Failure(call.CallID(), fmt.Sprintf("tool call failed: %v", r))
		}
	}()

	switch c := call.(type) {
	case tool.FlightStatistics:
		stmt := d.builder.Build(c.Args)
		log.Debug("running flight statistics query", zap.String("sql", stmt))

		rows, err := d.store.Query(logger.NewContext(ctx, log), stmt)
		if err != nil {
			log.Warn("flight statistics query failed", zap.Error(err))
			span.RecordError(err)
			metrics.RecordToolCall(c.ToolName(), "error")
			return tool.Failure(c.ID, err.Error())
		}
		metrics.RecordToolCall(c.ToolName(), "ok")
		return tool.Success(c.ID, stmt, rows)

	case tool.Malformed:
		log.Warn("malformed tool arguments", zap.Error(c.Err))
		metrics.RecordToolCall(c.ToolName(), "invalid")
		return tool.Failure(c.ID, c.Err.Error())

	default:
		log.Warn("unknown tool requested")
		metrics.RecordToolCall("unknown", "unknown")
		return tool.UnknownTool(call.CallID(), call.ToolName())
	}
}
