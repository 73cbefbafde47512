package service

import (
	"context"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

// EventPublisher receives run lifecycle events. Publishing is best effort.
type EventPublisher interface {
	PublishRunEvent(ctx context.Context, event *model.RunEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) PublishRunEvent(context.Context, *model.RunEvent) error { return nil }
