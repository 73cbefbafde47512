package service

import (
	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

// State is a step of one chat exchange.
type State int

const (
	StateCreatingThread State = iota
	StatePostingMessage
	StateRunStarting
	StateRunPolling
	StateAwaitingToolOutputs
	StateFetchingAnswer
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateCreatingThread:      "CREATING_THREAD",
	StatePostingMessage:      "POSTING_MESSAGE",
	StateRunStarting:         "RUN_STARTING",
	StateRunPolling:          "RUN_POLLING",
	StateAwaitingToolOutputs: "AWAITING_TOOL_OUTPUTS",
	StateFetchingAnswer:      "FETCHING_ANSWER",
	StateDone:                "DONE",
	StateFailed:              "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal reports whether the exchange has finished.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// NextFromRun maps a polled run to the exchange's next state. A non-nil error
// always accompanies StateFailed.
func NextFromRun(run model.Run) (State, error) {
	switch {
	case run.Status == model.RunStatusCompleted:
		return StateFetchingAnswer, nil
	case run.Status == model.RunStatusRequiresAction:
		if _, ok := run.PendingToolCalls(); !ok {
			return StateFailed, newError(ErrorProtocol, "run requires action without tool calls", nil)
		}
		return StateAwaitingToolOutputs, nil
	case run.Status.Failed():
		return StateFailed, newError(ErrorRunTerminated, "run did not complete",
			&RunTerminatedError{Status: run.Status, LastError: run.LastError})
	default:
		return StateRunPolling, nil
	}
}
