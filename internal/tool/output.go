package tool

import (
	"encoding/json"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

// Result is the success payload returned to the reasoning engine.
type Result struct {
	SQL  string `json:"sql"`
	Rows any    `json:"rows"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Success packages a statement and its rows as the output for callID.
func Success(callID, sql string, rows any) model.ToolOutput {
	return encode(callID, Result{SQL: sql, Rows: rows})
}

// Failure packages msg as an error-shaped output for callID.
func Failure(callID, msg string) model.ToolOutput {
	return encode(callID, errorPayload{Error: msg})
}

// UnknownTool packages the error output for a tool name the gateway does not serve.
func UnknownTool(callID, name string) model.ToolOutput {
	return Failure(callID, "Unknown tool: "+name)
}

func encode(callID string, v any) model.ToolOutput {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(errorPayload{Error: "encode tool output: " + err.Error()})
	}
	return model.ToolOutput{ToolCallID: callID, Output: string(data)}
}
