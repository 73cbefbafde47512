package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
)

const (
	// StreamName is the name of the run events stream.
	StreamName = "ASSISTANT_RUNS"

	// SubjectPrefix is the prefix for all run event subjects.
	SubjectPrefix = "runs"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	js     jetstream.JetStream
	logger *logger.Logger
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client, log *logger.Logger) *StreamManager {
	return newStreamManager(client.JetStream(), log)
}

func newStreamManager(js jetstream.JetStream, log *logger.Logger) *StreamManager {
	if log == nil {
		log = logger.NewNop()
	}
	return &StreamManager{js: js, logger: log}
}

// EnsureStream ensures the run events stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	_, err := m.js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = m.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  2 * time.Minute,
		Description: "Assistant run lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	m.logger.Info("created JetStream stream", zap.String("stream", StreamName))
	return nil
}

// RunSubject returns the subject for a run event.
func RunSubject(threadID string, eventType model.RunEventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, token(threadID), eventType)
}

// ThreadFilter returns the filter subject for all events of a thread.
func ThreadFilter(threadID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, token(threadID))
}

// token makes an identifier safe to use as a single subject token.
func token(id string) string {
	if id == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, id)
}

// PublishRunEvent publishes a run event to JetStream. The event ID is used as
// the message ID so redeliveries are deduplicated by the stream.
func (m *StreamManager) PublishRunEvent(ctx context.Context, event *model.RunEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	var opts []jetstream.PublishOpt
	if event.ID != "" {
		opts = append(opts, jetstream.WithMsgID(event.ID))
	}

	if _, err := m.js.Publish(ctx, RunSubject(event.ThreadID, event.Type), data, opts...); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}
	return nil
}

// ThreadEvents replays up to limit recorded events of a thread in publish order.
func (m *StreamManager) ThreadEvents(ctx context.Context, threadID string, limit int) ([]model.RunEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	consumer, err := m.js.OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{ThreadFilter(threadID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.FetchNoWait(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	events := make([]model.RunEvent, 0, limit)
	for msg := range batch.Messages() {
		var event model.RunEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			m.logger.Warn("skipping undecodable run event", zap.String("subject", msg.Subject()), zap.Error(err))
			continue
		}
		events = append(events, event)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("batch error: %w", err)
	}

	return events, nil
}
