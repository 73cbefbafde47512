package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

func TestNextFromRun(t *testing.T) {
	cases := []struct {
		name string
		run  model.Run
		want State
		code ErrorCode
	}{
		{name: "queued", run: model.Run{Status: model.RunStatusQueued}, want: StateRunPolling},
		{name: "in progress", run: model.Run{Status: model.RunStatusInProgress}, want: StateRunPolling},
		{name: "cancelling", run: model.Run{Status: model.RunStatusCancelling}, want: StateRunPolling},
		{name: "unrecognized", run: model.Run{Status: "incomplete"}, want: StateRunPolling},
		{name: "completed", run: model.Run{Status: model.RunStatusCompleted}, want: StateFetchingAnswer},
		{name: "requires action", run: toolRun(model.ToolCall{ID: "c", Name: "t"}), want: StateAwaitingToolOutputs},
		{name: "requires action empty", run: model.Run{Status: model.RunStatusRequiresAction}, want: StateFailed, code: ErrorProtocol},
		{name: "failed", run: model.Run{Status: model.RunStatusFailed}, want: StateFailed, code: ErrorRunTerminated},
		{name: "cancelled", run: model.Run{Status: model.RunStatusCancelled}, want: StateFailed, code: ErrorRunTerminated},
		{name: "expired", run: model.Run{Status: model.RunStatusExpired}, want: StateFailed, code: ErrorRunTerminated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextFromRun(tc.run)
			require.Equal(t, tc.want, got)
			if tc.code == "" {
				require.NoError(t, err)
				return
			}
			requireCode(t, err, tc.code)
		})
	}
}

func TestState_StringAndTerminal(t *testing.T) {
	require.Equal(t, "AWAITING_TOOL_OUTPUTS", StateAwaitingToolOutputs.String())
	require.Equal(t, "UNKNOWN", State(99).String())
	require.True(t, StateDone.Terminal())
	require.True(t, StateFailed.Terminal())
	require.False(t, StateRunPolling.Terminal())
}

func TestRetryPolicy_Do(t *testing.T) {
	t.Run("stops on success", func(t *testing.T) {
		calls := 0
		err := RetryPolicy{Attempts: 3}.Do(context.Background(), func(int) error {
			calls++
			if calls < 2 {
				return errUpstream
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 2, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		last := errors.New("third")
		err := RetryPolicy{Attempts: 3}.Do(context.Background(), func(attempt int) error {
			if attempt == 3 {
				return last
			}
			return errUpstream
		})
		require.ErrorIs(t, err, last)
	})

	t.Run("zero attempts runs once", func(t *testing.T) {
		calls := 0
		_ = RetryPolicy{}.Do(context.Background(), func(int) error { calls++; return errUpstream })
		require.Equal(t, 1, calls)
	})

	t.Run("context cancels the delay", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := RetryPolicy{Attempts: 3, Delay: time.Hour}.Do(ctx, func(int) error {
			calls++
			cancel()
			return errUpstream
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	})
}
