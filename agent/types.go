// Package agent runs a persona against a task with the ReAct protocol.
package agent

import (
	"encoding/json"

	"github.com/richinex/docvoice/llm"
	"github.com/richinex/docvoice/model"
)

// Decision represents a decision made by the agent's LLM.
type Decision struct {
	Thought     string  `json:"thought"`
	Action      *Action `json:"action,omitempty"`
	IsFinal     bool    `json:"is_final"`
	FinalAnswer *string `json:"final_answer,omitempty"`
}

// UnmarshalJSON accepts either a string or any JSON value for FinalAnswer.
func (d *Decision) UnmarshalJSON(data []byte) error {
	type decisionAlias Decision
	aux := &struct {
		FinalAnswer json.RawMessage `json:"final_answer,omitempty"`
		*decisionAlias
	}{
		decisionAlias: (*decisionAlias)(d),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.FinalAnswer) == 0 || string(aux.FinalAnswer) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.FinalAnswer, &s); err == nil {
		d.FinalAnswer = &s
		return nil
	}

	var v any
	if err := json.Unmarshal(aux.FinalAnswer, &v); err == nil {
		if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
			s := string(pretty)
			d.FinalAnswer = &s
		}
	}
	return nil
}

// Action represents an action to execute a tool.
type Action struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// Step is an alias for model.Step for agent reasoning steps.
type Step = model.Step

// ToolCall is an alias for model.ToolCall for tool call metadata.
type ToolCall = model.ToolCall

// Metadata contains metadata about agent execution.
type Metadata struct {
	ExecutionTimeMs uint64
	AgentName       string
	ToolCalls       []ToolCall
	TokenUsage      llm.TokenUsage
	LLMCalls        int
}

// ResponseType indicates the type of agent response.
type ResponseType int

const (
	ResponseSuccess ResponseType = iota
	ResponseFailure
	ResponseTimeout
)

// String returns the response type name.
func (t ResponseType) String() string {
	switch t {
	case ResponseSuccess:
		return "success"
	case ResponseFailure:
		return "failure"
	case ResponseTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Response represents a response from an agent execution.
type Response struct {
	Type     ResponseType
	Result   string // set on success
	Err      error  // set on failure and timeout
	Steps    []Step
	Metadata Metadata
}

// ResultText returns the result on success or the error text otherwise.
func (r Response) ResultText() string {
	if r.Type == ResponseSuccess {
		return r.Result
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return ""
}

// IsSuccess checks if the response was successful.
func (r Response) IsSuccess() bool {
	return r.Type == ResponseSuccess
}
