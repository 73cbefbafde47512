package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/capitalize-ai/flightstats-assistant/internal/config"
	"github.com/capitalize-ai/flightstats-assistant/internal/datastore"
	"github.com/capitalize-ai/flightstats-assistant/internal/llm"
	"github.com/capitalize-ai/flightstats-assistant/internal/service"
	"github.com/capitalize-ai/flightstats-assistant/internal/sqlbuilder"
	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
)

// AskCmd runs a single exchange against the configured services.
type AskCmd struct {
	Timeout time.Duration `long:"timeout" default:"120s" description:"overall exchange timeout"`
	Verbose bool          `short:"v" long:"verbose" description:"log exchange progress to stderr"`

	Positional struct {
		Message string `positional-arg-name:"message" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

// Execute implements flags.Commander.
func (c *AskCmd) Execute([]string) error {
	cfg := config.Load()

	log := logger.NewNop()
	if c.Verbose {
		dev, err := logger.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		log = dev
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	assistant, err := llm.NewOpenAIAssistant(llm.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	})
	if err != nil {
		return err
	}

	store, db, err := datastore.Open(ctx, cfg.BigQueryDSN, log, datastore.WithTimeout(cfg.QueryTimeout))
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := service.NewChatService(
		assistant,
		service.NewDispatcher(sqlbuilder.New(cfg.QueryTable), store, cfg.ToolConcurrency, log),
		nil,
		service.Config{
			AssistantID:      cfg.AssistantID,
			PollInterval:     cfg.RunPollInterval,
			ThreadRetry:      service.RetryPolicy{Attempts: cfg.ThreadCreateAttempts, Delay: cfg.ThreadCreateDelay},
			MessageListLimit: cfg.MessageListLimit,
		},
		log,
	)
	if err != nil {
		return err
	}

	resp, err := svc.Handle(ctx, c.Positional.Message)
	if err != nil {
		return err
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}
	_, err = fmt.Fprintf(out, "%s\n\n(thread %s)\n", resp.Answer, resp.ThreadID)
	return err
}
