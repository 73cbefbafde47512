package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
	"github.com/capitalize-ai/flightstats-assistant/internal/sqlbuilder"
	"github.com/capitalize-ai/flightstats-assistant/internal/tool"
)

// BuildCmd renders a statement without touching the warehouse.
type BuildCmd struct {
	Args  string `short:"a" long:"args" description:"tool arguments as a JSON object"`
	File  string `short:"f" long:"file" description:"read tool arguments from a JSON file"`
	Table string `short:"t" long:"table" env:"QUERY_TABLE" description:"source table reference"`

	out io.Writer
}

// Execute implements flags.Commander.
func (c *BuildCmd) Execute([]string) error {
	raw, err := c.arguments()
	if err != nil {
		return err
	}

	switch call := tool.Decode(model.ToolCall{ID: "cli", Name: tool.FlightStatisticsName, Arguments: raw}).(type) {
	case tool.FlightStatistics:
		_, err := fmt.Fprintln(c.writer(), sqlbuilder.New(c.Table).Build(call.Args))
		return err
	case tool.Malformed:
		return call.Err
	default:
		return fmt.Errorf("unexpected tool call %T", call)
	}
}

func (c *BuildCmd) arguments() (string, error) {
	switch {
	case c.Args != "" && c.File != "":
		return "", errors.New("use either --args or --file, not both")
	case c.Args != "":
		return c.Args, nil
	case c.File != "":
		data, err := os.ReadFile(c.File)
		if err != nil {
			return "", fmt.Errorf("read arguments: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("one of --args or --file is required")
	}
}

func (c *BuildCmd) writer() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}
