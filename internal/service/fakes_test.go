package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/capitalize-ai/flightstats-assistant/internal/datastore"
	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

// fakeAssistant scripts the reasoning engine. RetrieveRun returns runs in
// order and repeats the last one once the script is exhausted.
type fakeAssistant struct {
	mu sync.Mutex

	threadID   string
	threadErrs []error
	messageErr error
	runErr     error
	runs       []model.Run
	retrieve   func(ctx context.Context) error
	submitErr  error
	messages   []model.Message
	listErr    error

	threadCalls   int
	messageCalls  int
	runCalls      int
	retrieveCalls int
	posted        []string
	submitted     [][]model.ToolOutput
	listLimit     int
}

func (f *fakeAssistant) Name() string { return "fake" }

func (f *fakeAssistant) CreateThread(ctx context.Context) (model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadCalls++
	if f.threadCalls <= len(f.threadErrs) && f.threadErrs[f.threadCalls-1] != nil {
		return model.Thread{}, f.threadErrs[f.threadCalls-1]
	}
	id := f.threadID
	if id == "" {
		id = "thread_1"
	}
	return model.Thread{ID: id}, nil
}

func (f *fakeAssistant) CreateMessage(_ context.Context, threadID string, role model.Role, content string) (model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageCalls++
	if f.messageErr != nil {
		return model.Message{}, f.messageErr
	}
	f.posted = append(f.posted, content)
	return model.Message{ID: "msg_user", ThreadID: threadID, Role: role, Content: []string{content}}, nil
}

func (f *fakeAssistant) CreateRun(_ context.Context, threadID, _ string) (model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	if f.runErr != nil {
		return model.Run{}, f.runErr
	}
	return model.Run{ID: "run_1", ThreadID: threadID, Status: model.RunStatusQueued}, nil
}

func (f *fakeAssistant) RetrieveRun(ctx context.Context, threadID, runID string) (model.Run, error) {
	if f.retrieve != nil {
		if err := f.retrieve(ctx); err != nil {
			return model.Run{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieveCalls++
	if len(f.runs) == 0 {
		return model.Run{ID: runID, ThreadID: threadID, Status: model.RunStatusInProgress}, nil
	}
	idx := min(f.retrieveCalls, len(f.runs)) - 1
	run := f.runs[idx]
	run.ID, run.ThreadID = runID, threadID
	return run, nil
}

func (f *fakeAssistant) SubmitToolOutputs(_ context.Context, threadID, runID string, outputs []model.ToolOutput) (model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return model.Run{}, f.submitErr
	}
	f.submitted = append(f.submitted, outputs)
	return model.Run{ID: runID, ThreadID: threadID, Status: model.RunStatusQueued}, nil
}

func (f *fakeAssistant) ListMessages(_ context.Context, _ string, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.messages, nil
}

// fakeStore records statements and returns canned rows.
type fakeStore struct {
	mu         sync.Mutex
	rows       []datastore.Row
	err        error
	statements []string
}

func (s *fakeStore) Query(_ context.Context, stmt string) ([]datastore.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements = append(s.statements, stmt)
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statements)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.RunEvent
	err    error
}

func (p *recordingPublisher) PublishRunEvent(_ context.Context, e *model.RunEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return p.err
}

func (p *recordingPublisher) types() []model.RunEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.RunEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var errUpstream = errors.New("upstream unavailable")

func assistantReply(text string, at time.Time) model.Message {
	return model.Message{ID: "msg_reply", Role: model.RoleAssistant, Content: []string{text}, CreatedAt: at}
}

func toolRun(calls ...model.ToolCall) model.Run {
	return model.Run{
		Status:         model.RunStatusRequiresAction,
		RequiredAction: &model.RequiredAction{Type: "submit_tool_outputs", ToolCalls: calls},
	}
}
