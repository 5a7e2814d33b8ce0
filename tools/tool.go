// Package tools provides the tool system for agents.
//
// A tool reports two kinds of failure. A FailureResult is an observation the
// model can react to (bad arguments, nothing found). A returned Go error is a
// hard failure that stops the agent run.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// ToolResult represents the result of a tool execution.
// Success is determined by whether Error is nil.
type ToolResult struct {
	Output string `json:"output"`
	Error  error  `json:"-"`
}

// MarshalJSON implements custom JSON marshaling for ToolResult.
func (t ToolResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Success bool   `json:"success"`
		Output  string `json:"output"`
		Error   string `json:"error,omitempty"`
	}{Success: t.Error == nil, Output: t.Output}
	if t.Error != nil {
		out.Error = t.Error.Error()
	}
	return json.Marshal(out)
}

// Success returns true if the tool execution succeeded.
func (t ToolResult) Success() bool {
	return t.Error == nil
}

// SuccessResult creates a successful tool result.
func SuccessResult(output string) ToolResult {
	return ToolResult{Output: output}
}

// FailureResult creates a failed tool result.
func FailureResult(err error) ToolResult {
	return ToolResult{Error: err}
}

// FailureResultf creates a failed tool result with a formatted error message.
func FailureResultf(format string, args ...any) ToolResult {
	return ToolResult{Error: fmt.Errorf(format, args...)}
}

// Tool is the interface that all tools must implement.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with given arguments.
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)

	// Validate validates arguments before execution.
	Validate(args json.RawMessage) error
}

// BaseTool provides a default implementation for Validate.
type BaseTool struct{}

// Validate provides a default no-op validation.
func (BaseTool) Validate(json.RawMessage) error {
	return nil
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s and attempts to 3.
type ToolConfig struct {
	TimeoutSecs uint64
	MaxAttempts uint32
}

// Timeout returns the per-attempt timeout, defaulting to 30 seconds.
func (c ToolConfig) Timeout() time.Duration {
	if c.TimeoutSecs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Attempts returns the configured attempt count, defaulting to 3.
func (c ToolConfig) Attempts() uint32 {
	if c.MaxAttempts == 0 {
		return 3
	}
	return c.MaxAttempts
}

// SingleAttempt returns a configuration that never retries.
func SingleAttempt() ToolConfig {
	return ToolConfig{TimeoutSecs: 30, MaxAttempts: 1}
}
