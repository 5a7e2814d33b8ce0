// Package orchestration runs the two-stage research then answer crew.
package orchestration

import (
	"time"

	"github.com/richinex/docvoice/agent"
	"github.com/richinex/docvoice/llm"
	"github.com/richinex/docvoice/model"
)

// Step is an alias for model.Step for orchestration steps.
type Step = model.Step

// Task is one unit of work bound to an agent. Context tasks must finish
// first; their outputs are handed to this task verbatim.
type Task struct {
	Name           string
	Description    string // rendered, placeholders filled
	ExpectedOutput string
	Context        []*Task
	Output         string
	done           bool
}

// Done reports whether the task produced output.
func (t *Task) Done() bool { return t.done }

// Prompt renders the full task text handed to the agent.
func (t *Task) Prompt() string {
	prompt := t.Description +
		"\n\nThis is the expected criteria for your final answer: " + t.ExpectedOutput +
		"\nyou MUST return the actual complete content as the final answer, not a summary."

	for _, dep := range t.Context {
		prompt += "\n\nThis is the context you're working with:\n" + dep.Output
	}
	return prompt
}

// StageResult records what one stage did.
type StageResult struct {
	Task     string
	Agent    string
	Response agent.Response
	Duration time.Duration
}

// Run is one execution of the crew for one query.
type Run struct {
	Query  string
	Tasks  []*Task
	Stages []StageResult
	Usage  llm.TokenUsage
}

// Answer returns the output of the final task.
func (r *Run) Answer() string {
	if len(r.Tasks) == 0 {
		return ""
	}
	return r.Tasks[len(r.Tasks)-1].Output
}

// ToolCalls returns every tool call made during the run.
func (r *Run) ToolCalls() []model.ToolCall {
	var calls []model.ToolCall
	for _, s := range r.Stages {
		calls = append(calls, s.Response.Metadata.ToolCalls...)
	}
	return calls
}
