package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/capitalize-ai/flightstats-assistant/internal/datastore"
	"github.com/capitalize-ai/flightstats-assistant/internal/model"
	"github.com/capitalize-ai/flightstats-assistant/internal/sqlbuilder"
	"github.com/capitalize-ai/flightstats-assistant/internal/tool"
	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
)

const validArgs = `{"start_date":"2024-01-01","end_date":"2024-01-31","metrics":["total_pax"],"group_by":["AOT_AIRPORT"],"limit":50}`

func testConfig() Config {
	return Config{
		AssistantID:      "asst_test",
		PollInterval:     time.Millisecond,
		ThreadRetry:      RetryPolicy{Attempts: 3, Delay: time.Millisecond},
		MessageListLimit: 10,
	}
}

func newTestService(t *testing.T, a *fakeAssistant, store *fakeStore, pub EventPublisher) *ChatService {
	t.Helper()
	d := NewDispatcher(sqlbuilder.New(""), store, 4, nil)
	svc, err := NewChatService(a, d, pub, testConfig(), nil)
	require.NoError(t, err)
	return svc
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, CodeOf(err), "err=%v", err)
}

func TestHandle_CompletedWithoutToolCalls(t *testing.T) {
	now := time.Now()
	a := &fakeAssistant{
		runs: []model.Run{
			{Status: model.RunStatusQueued},
			{Status: model.RunStatusInProgress},
			{Status: model.RunStatusCompleted},
		},
		messages: []model.Message{assistantReply("There were 42 flights.", now)},
	}
	store := &fakeStore{}
	pub := &recordingPublisher{}

	resp, err := newTestService(t, a, store, pub).Handle(context.Background(), "How many flights?")
	require.NoError(t, err)
	require.Equal(t, "There were 42 flights.", resp.Answer)
	require.Equal(t, "thread_1", resp.ThreadID)
	require.Equal(t, "run_1", resp.RunID)

	require.Zero(t, store.calls())
	require.Empty(t, a.submitted)
	require.Equal(t, []string{"How many flights?"}, a.posted)
	require.Equal(t, 3, a.retrieveCalls)
	require.Equal(t, 10, a.listLimit)

	types := pub.types()
	require.Equal(t, model.RunEventThreadCreated, types[0])
	require.Equal(t, model.RunEventRunCompleted, types[len(types)-1])
	for _, e := range pub.events {
		require.Equal(t, "thread_1", e.ThreadID)
	}
}

func TestHandle_SingleToolCall(t *testing.T) {
	a := &fakeAssistant{
		runs: []model.Run{
			toolRun(model.ToolCall{ID: "call_1", Name: tool.FlightStatisticsName, Arguments: validArgs}),
			{Status: model.RunStatusCompleted},
		},
		messages: []model.Message{assistantReply("BKK handled the most passengers.", time.Now())},
	}
	store := &fakeStore{rows: []datastore.Row{{"AOT_AIRPORT": "BKK", "total_pax": int64(1200)}}}

	resp, err := newTestService(t, a, store, nil).Handle(context.Background(), "Busiest airport in January?")
	require.NoError(t, err)
	require.Equal(t, "BKK handled the most passengers.", resp.Answer)

	require.Equal(t, 1, store.calls())
	require.Contains(t, store.statements[0], "GROUP BY AOT_AIRPORT")
	require.Contains(t, store.statements[0], "LIMIT 50")

	require.Len(t, a.submitted, 1)
	require.Len(t, a.submitted[0], 1)
	out := a.submitted[0][0]
	require.Equal(t, "call_1", out.ToolCallID)

	var result struct {
		SQL  string           `json:"sql"`
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out.Output), &result))
	require.Equal(t, store.statements[0], result.SQL)
	require.Equal(t, "BKK", result.Rows[0]["AOT_AIRPORT"])
}

func TestHandle_UnknownToolResumesPolling(t *testing.T) {
	a := &fakeAssistant{
		runs: []model.Run{
			toolRun(model.ToolCall{ID: "call_x", Name: "get_weather", Arguments: `{}`}),
			{Status: model.RunStatusInProgress},
			{Status: model.RunStatusCompleted},
		},
		messages: []model.Message{assistantReply("I cannot check the weather.", time.Now())},
	}
	store := &fakeStore{}

	resp, err := newTestService(t, a, store, nil).Handle(context.Background(), "Weather?")
	require.NoError(t, err)
	require.Equal(t, "I cannot check the weather.", resp.Answer)

	require.Zero(t, store.calls())
	require.Len(t, a.submitted, 1)
	require.JSONEq(t, `{"error":"Unknown tool: get_weather"}`, a.submitted[0][0].Output)
	require.Equal(t, 3, a.retrieveCalls)
}

func TestHandle_ToolFailuresBecomeErrorOutputs(t *testing.T) {
	a := &fakeAssistant{
		runs: []model.Run{
			toolRun(
				model.ToolCall{ID: "call_bad", Name: tool.FlightStatisticsName, Arguments: `{"start_date":`},
				model.ToolCall{ID: "call_ok", Name: tool.FlightStatisticsName, Arguments: validArgs},
			),
			{Status: model.RunStatusCompleted},
		},
	}
	store := &fakeStore{err: errors.New("bigquery: quota exceeded")}

	resp, err := newTestService(t, a, store, nil).Handle(context.Background(), "Stats please")
	require.NoError(t, err)
	require.Equal(t, NoResponseAnswer, resp.Answer)

	require.Equal(t, 1, store.calls())
	outputs := a.submitted[0]
	require.Len(t, outputs, 2)
	require.Equal(t, "call_bad", outputs[0].ToolCallID)
	require.Contains(t, outputs[0].Output, "invalid arguments")
	require.Equal(t, "call_ok", outputs[1].ToolCallID)
	require.JSONEq(t, `{"error":"bigquery: quota exceeded"}`, outputs[1].Output)
}

func TestHandle_ToolLogsCarryRunAndCorrelation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	a := &fakeAssistant{
		runs: []model.Run{
			toolRun(model.ToolCall{ID: "call_1", Name: tool.FlightStatisticsName, Arguments: validArgs}),
			{Status: model.RunStatusCompleted},
		},
		messages: []model.Message{assistantReply("The warehouse is unavailable.", time.Now())},
	}
	store := &fakeStore{err: errors.New("quota exceeded")}

	d := NewDispatcher(sqlbuilder.New(""), store, 4, log)
	svc, err := NewChatService(a, d, nil, testConfig(), log)
	require.NoError(t, err)

	ctx := logger.WithCorrelationID(context.Background(), "corr-42")
	_, err = svc.Handle(ctx, "Stats please")
	require.NoError(t, err)

	failed := logs.FilterMessage("flight statistics query failed").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	require.Equal(t, "thread_1", fields["thread_id"])
	require.Equal(t, "run_1", fields["run_id"])
	require.Equal(t, "corr-42", fields["correlation_id"])
	require.Equal(t, "call_1", fields["tool_call_id"])

	completed := logs.FilterMessage("exchange completed").All()
	require.Len(t, completed, 1)
	require.Equal(t, "corr-42", completed[0].ContextMap()["correlation_id"])
}

func TestHandle_TerminalRunStatuses(t *testing.T) {
	for _, status := range []model.RunStatus{model.RunStatusExpired, model.RunStatusFailed, model.RunStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			a := &fakeAssistant{runs: []model.Run{{Status: model.RunStatusInProgress}, {Status: status}}}
			pub := &recordingPublisher{}

			resp, err := newTestService(t, a, &fakeStore{}, pub).Handle(context.Background(), "hi")
			require.Nil(t, resp)
			requireCode(t, err, ErrorRunTerminated)

			var rt *RunTerminatedError
			require.ErrorAs(t, err, &rt)
			require.Equal(t, status, rt.Status)
			require.Contains(t, err.Error(), "Run terminated with status: "+string(status))

			types := pub.types()
			require.Equal(t, model.RunEventRunFailed, types[len(types)-1])
		})
	}
}

func TestHandle_RequiresActionWithoutCallsIsProtocolViolation(t *testing.T) {
	cases := map[string]model.Run{
		"nil action":   {Status: model.RunStatusRequiresAction},
		"no calls":     {Status: model.RunStatusRequiresAction, RequiredAction: &model.RequiredAction{Type: "submit_tool_outputs"}},
		"missing name": toolRun(model.ToolCall{ID: "call_1"}),
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			a := &fakeAssistant{runs: []model.Run{run}}
			_, err := newTestService(t, a, &fakeStore{}, nil).Handle(context.Background(), "hi")
			requireCode(t, err, ErrorProtocol)
			require.Empty(t, a.submitted)
		})
	}
}

func TestHandle_ThreadCreationRetries(t *testing.T) {
	t.Run("succeeds on third attempt", func(t *testing.T) {
		a := &fakeAssistant{
			threadErrs: []error{errUpstream, errUpstream},
			runs:       []model.Run{{Status: model.RunStatusCompleted}},
			messages:   []model.Message{assistantReply("ok", time.Now())},
		}
		resp, err := newTestService(t, a, &fakeStore{}, nil).Handle(context.Background(), "hi")
		require.NoError(t, err)
		require.Equal(t, "ok", resp.Answer)
		require.Equal(t, 3, a.threadCalls)
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		a := &fakeAssistant{threadErrs: []error{errUpstream, errUpstream, errUpstream, nil}}
		_, err := newTestService(t, a, &fakeStore{}, nil).Handle(context.Background(), "hi")
		requireCode(t, err, ErrorUpstream)
		require.ErrorIs(t, err, errUpstream)
		require.Equal(t, 3, a.threadCalls)
		require.Zero(t, a.messageCalls)
	})
}

func TestHandle_NoRetryAfterThreadCreation(t *testing.T) {
	t.Run("post message", func(t *testing.T) {
		a := &fakeAssistant{messageErr: errUpstream}
		_, err := newTestService(t, a, &fakeStore{}, nil).Handle(context.Background(), "hi")
		requireCode(t, err, ErrorUpstream)
		require.Equal(t, 1, a.messageCalls)
		require.Zero(t, a.runCalls)
	})

	t.Run("start run", func(t *testing.T) {
		a := &fakeAssistant{runErr: errUpstream}
		_, err := newTestService(t, a, &fakeStore{}, nil).Handle(context.Background(), "hi")
		requireCode(t, err, ErrorUpstream)
		require.Equal(t, 1, a.runCalls)
	})

	t.Run("submit tool outputs", func(t *testing.T) {
		a := &fakeAssistant{
			runs:      []model.Run{toolRun(model.ToolCall{ID: "call_1", Name: "other"})},
			submitErr: errUpstream,
		}
		_, err := newTestService(t, a, &fakeStore{}, nil).Handle(context.Background(), "hi")
		requireCode(t, err, ErrorUpstream)
	})

	t.Run("list messages", func(t *testing.T) {
		a := &fakeAssistant{runs: []model.Run{{Status: model.RunStatusCompleted}}, listErr: errUpstream}
		_, err := newTestService(t, a, &fakeStore{}, nil).Handle(context.Background(), "hi")
		requireCode(t, err, ErrorUpstream)
	})
}

func TestHandle_EmptyMessage(t *testing.T) {
	a := &fakeAssistant{}
	_, err := newTestService(t, a, &fakeStore{}, nil).Handle(context.Background(), "   ")
	requireCode(t, err, ErrorInvalidInput)
	require.Zero(t, a.threadCalls)
}

func TestHandle_ContextDeadlineIsTimeout(t *testing.T) {
	a := &fakeAssistant{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestService(t, a, &fakeStore{}, nil).Handle(ctx, "hi")
	requireCode(t, err, ErrorTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandle_ThreadBusy(t *testing.T) {
	entered := make(chan struct{})
	releaseFirst := make(chan struct{})
	var once sync.Once

	a := &fakeAssistant{
		threadID: "thread_shared",
		runs:     []model.Run{{Status: model.RunStatusCompleted}},
		retrieve: func(ctx context.Context) error {
			first := false
			once.Do(func() { first = true })
			if !first {
				return nil
			}
			close(entered)
			select {
			case <-releaseFirst:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	svc := newTestService(t, a, &fakeStore{}, nil)

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Handle(context.Background(), "first")
		firstErr <- err
	}()
	<-entered

	_, err := svc.Handle(context.Background(), "second")
	requireCode(t, err, ErrorThreadBusy)

	close(releaseFirst)
	require.NoError(t, <-firstErr)

	// The thread is released once the first exchange finishes.
	_, err = svc.Handle(context.Background(), "third")
	require.NoError(t, err)
}

func TestHandle_PublisherErrorsDoNotFailExchange(t *testing.T) {
	a := &fakeAssistant{runs: []model.Run{{Status: model.RunStatusCompleted}}}
	pub := &recordingPublisher{err: errors.New("nats down")}

	resp, err := newTestService(t, a, &fakeStore{}, pub).Handle(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, NoResponseAnswer, resp.Answer)
	require.NotEmpty(t, pub.events)
}

func TestLatestAssistantAnswer(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.Equal(t, NoResponseAnswer, latestAssistantAnswer(nil))
	require.Equal(t, NoResponseAnswer, latestAssistantAnswer([]model.Message{
		{Role: model.RoleUser, Content: []string{"question"}, CreatedAt: base},
	}))
	require.Equal(t, NoResponseAnswer, latestAssistantAnswer([]model.Message{
		{Role: model.RoleAssistant, CreatedAt: base},
	}))

	msgs := []model.Message{
		{Role: model.RoleAssistant, Content: []string{"Line one", "Line two"}, CreatedAt: base.Add(2 * time.Second)},
		{Role: model.RoleUser, Content: []string{"question"}, CreatedAt: base.Add(time.Second)},
		{Role: model.RoleAssistant, Content: []string{"older"}, CreatedAt: base},
	}
	require.Equal(t, "Line one\nLine two", latestAssistantAnswer(msgs))
}

func TestNewChatService_Validation(t *testing.T) {
	_, err := NewChatService(nil, &Dispatcher{}, nil, Config{}, nil)
	require.Error(t, err)
	_, err = NewChatService(&fakeAssistant{}, nil, nil, Config{}, nil)
	require.Error(t, err)

	svc, err := NewChatService(&fakeAssistant{}, NewDispatcher(sqlbuilder.New(""), &fakeStore{}, 1, nil), nil, Config{}, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().PollInterval, svc.cfg.PollInterval)
	require.Equal(t, DefaultConfig().ThreadRetry, svc.cfg.ThreadRetry)
	require.Equal(t, 10, svc.cfg.MessageListLimit)
}

func TestError_Message(t *testing.T) {
	err := newError(ErrorUpstream, "create thread", errUpstream)
	require.Equal(t, "create thread: upstream unavailable", err.Message())
	require.True(t, strings.HasPrefix(err.Error(), "service: UPSTREAM_ERROR"))
	require.Equal(t, ErrorInternal, CodeOf(errors.New("plain")))
}
