// Package tool decodes reasoning-engine tool calls into a closed set of variants.
package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

// FlightStatisticsName is the only tool the gateway serves.
const FlightStatisticsName = "get_flight_statistics_from_APPS"

// Call is one decoded tool call. The concrete types are FlightStatistics,
// Malformed and Unknown; callers switch on them and treat anything else as unknown.
type Call interface {
	CallID() string
	ToolName() string
	isCall()
}

// FlightStatistics requests passenger and flight aggregates.
type FlightStatistics struct {
	ID   string
	Args model.QueryRequest
}

// Malformed is a recognized tool whose arguments could not be decoded.
type Malformed struct {
	ID   string
	Name string
	Err  error
}

// Unknown is a tool name the gateway does not serve.
type Unknown struct {
	ID   string
	Name string
}

func (c FlightStatistics) CallID() string   { return c.ID }
func (c FlightStatistics) ToolName() string { return FlightStatisticsName }
func (FlightStatistics) isCall()            {}

func (c Malformed) CallID() string   { return c.ID }
func (c Malformed) ToolName() string { return c.Name }
func (Malformed) isCall()            {}

func (c Unknown) CallID() string   { return c.ID }
func (c Unknown) ToolName() string { return c.Name }
func (Unknown) isCall()            {}

// Decode classifies a raw tool call. It never fails; decoding problems become Malformed.
func Decode(tc model.ToolCall) Call {
	switch tc.Name {
	case FlightStatisticsName:
		args, err := decodeQueryRequest(tc.Arguments)
		if err != nil {
			return Malformed{ID: tc.ID, Name: tc.Name, Err: err}
		}
		return FlightStatistics{ID: tc.ID, Args: args}
	default:
		return Unknown{ID: tc.ID, Name: tc.Name}
	}
}

func decodeQueryRequest(raw string) (model.QueryRequest, error) {
	var req model.QueryRequest
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return model.QueryRequest{}, fmt.Errorf("invalid arguments: %w", err)
	}
	if req.StartDate == "" || req.EndDate == "" {
		return model.QueryRequest{}, errors.New("invalid arguments: start_date and end_date are required")
	}
	return req, nil
}
