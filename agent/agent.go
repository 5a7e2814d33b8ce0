// ReAct (Reason + Act) loop implementation.
//
// An agent with tools reasons in JSON steps, calling tools until it reports
// a final answer. An agent without tools answers in a single model call.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	jsonutil "github.com/richinex/docvoice/internal/json"
	"github.com/richinex/docvoice/llm"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/tools"
)

// DefaultMaxIterations bounds the ReAct loop.
const DefaultMaxIterations = 10

// Agent executes tasks for one persona.
type Agent struct {
	persona      Persona
	provider     llm.Provider
	toolRegistry *tools.Registry
	toolExecutor *tools.Executor
	verbose      bool
}

// New creates a new agent for persona backed by provider.
func New(persona Persona, provider llm.Provider) *Agent {
	registry := tools.NewRegistry()
	for _, tool := range persona.Tools {
		_ = registry.Register(tool) // duplicates are the caller's problem
	}

	return &Agent{
		persona:      persona,
		provider:     provider,
		toolRegistry: registry,
		toolExecutor: tools.NewExecutor(tools.ToolConfig{}),
	}
}

// WithToolConfig overrides the tool execution configuration.
func (a *Agent) WithToolConfig(config tools.ToolConfig) *Agent {
	a.toolExecutor = tools.NewExecutor(config)
	return a
}

// Verbose enables debug logging of each step.
func (a *Agent) Verbose(enabled bool) *Agent {
	a.verbose = enabled
	return a
}

// Name returns the persona name.
func (a *Agent) Name() string {
	return a.persona.Name
}

// Execute runs task. Tool-less personas answer directly.
func (a *Agent) Execute(ctx context.Context, task string, maxIterations int) Response {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if a.toolRegistry.Len() == 0 {
		return a.answerDirectly(ctx, task)
	}
	return a.react(ctx, task, maxIterations)
}

// answerDirectly makes one model call and takes its reply as the answer.
// A JSON final_answer is unwrapped if the model used the step format anyway.
func (a *Agent) answerDirectly(ctx context.Context, task string) Response {
	run := newRun(a.persona.Name)
	conversation := []llm.ChatMessage{
		llm.SystemMessage(a.persona.SystemPrompt() +
			"\n\nAnswer the task directly. Reply with the final answer only."),
		llm.UserMessage(task),
	}

	resp, err := a.chat(ctx, run, conversation)
	if err != nil {
		return run.failure(err)
	}

	answer := strings.TrimSpace(resp.Content)
	if decision, err := jsonutil.ExtractJSONFromResponse[Decision](answer); err == nil && decision.FinalAnswer != nil {
		answer = strings.TrimSpace(*decision.FinalAnswer)
	}
	if answer == "" {
		return run.failure(fmt.Errorf("%w: empty answer from %s", model.ErrLanguageModel, a.provider.Name()))
	}

	obs := answer
	run.steps = append(run.steps, Step{Iteration: 0, Observation: &obs})
	return run.success(answer)
}

func (a *Agent) react(ctx context.Context, task string, maxIterations int) Response {
	run := newRun(a.persona.Name)
	var lastToolOutput string

	conversation := []llm.ChatMessage{
		llm.SystemMessage(fmt.Sprintf(
			`%s

Available Tools:
%s

You have a maximum of %d iterations.
Respond in this JSON format:
{
  "thought": "your reasoning",
  "action": {"tool": "name", "input": {...}},
  "is_final": false,
  "final_answer": null
}

When complete: is_final=true, action=null, provide final_answer.`,
			a.persona.SystemPrompt(),
			a.toolRegistry.Description(),
			maxIterations,
		)),
		llm.UserMessage("Task: " + task),
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return run.failure(fmt.Errorf("execution cancelled: %w", err))
		}
		remaining := maxIterations - iteration

		decision, err := a.think(ctx, run, conversation)
		if err != nil {
			return run.failure(err)
		}
		if a.verbose {
			log.Printf("[DEBUG] %s step %d: %s", a.persona.Name, iteration, decision.Thought)
		}

		if decision.IsFinal {
			result := finalResult(decision, lastToolOutput)
			run.steps = append(run.steps, Step{Iteration: iteration, Thought: decision.Thought, Observation: &result})
			return run.success(result)
		}

		if decision.Action == nil {
			if hasPriorProgress(run.steps) {
				result := implicitResult(decision, lastToolOutput, run.steps)
				return run.success(result)
			}
			observation := "No action specified"
			run.steps = append(run.steps, Step{Iteration: iteration, Thought: decision.Thought, Observation: &observation})
			conversation = append(conversation,
				llm.AssistantMessage(decision.Thought),
				llm.UserMessage("Observation: No action specified. Call a tool or set is_final=true with a final_answer."),
			)
			continue
		}

		observation, err := a.executeTool(ctx, run, decision.Action)
		if err != nil {
			return run.failure(err)
		}
		if observation.ok {
			lastToolOutput = observation.text
		}

		msgJSON, err := json.Marshal(map[string]any{
			"thought":  decision.Thought,
			"action":   map[string]any{"tool": decision.Action.Tool, "input": decision.Action.Input},
			"is_final": false,
		})
		if err != nil {
			msgJSON = []byte(fmt.Sprintf(`{"thought": %q}`, decision.Thought))
		}

		urgency := ""
		if remaining <= 2 {
			urgency = fmt.Sprintf("\n\nWARNING: Only %d iterations remaining!", remaining-1)
		}
		conversation = append(conversation,
			llm.AssistantMessage(string(msgJSON)),
			llm.UserMessage(fmt.Sprintf(
				"Observation: %s%s\n\nIs the task complete? If yes, set is_final=true.",
				observation.text, urgency,
			)),
		)

		actionName := decision.Action.Tool
		obs := observation.text
		run.steps = append(run.steps, Step{Iteration: iteration, Thought: decision.Thought, Action: &actionName, Observation: &obs})
	}

	return run.timeout(fmt.Errorf("%w: %s reached max iterations (%d)", model.ErrLanguageModel, a.persona.Name, maxIterations))
}

func (a *Agent) chat(ctx context.Context, run *runState, conversation []llm.ChatMessage) (llm.LLMResponse, error) {
	resp, err := a.provider.Chat(ctx, conversation)
	if err != nil {
		return llm.LLMResponse{}, err
	}
	run.llmCalls++
	run.usage.Add(resp.Usage)
	return resp, nil
}

// think asks the model for the next step. A reply that is not valid JSON
// is kept as a thought without action.
func (a *Agent) think(ctx context.Context, run *runState, conversation []llm.ChatMessage) (Decision, error) {
	resp, err := a.chat(ctx, run, conversation)
	if err != nil {
		return Decision{}, err
	}

	decision, err := jsonutil.ExtractJSONFromResponse[Decision](resp.Content)
	if err != nil {
		return Decision{Thought: resp.Content}, nil
	}
	return decision, nil
}

type observation struct {
	text string
	ok   bool
}

// executeTool runs the requested tool. Unknown tools and soft failures
// become observations; hard tool errors are returned.
func (a *Agent) executeTool(ctx context.Context, run *runState, action *Action) (observation, error) {
	tool, exists := a.toolRegistry.Get(action.Tool)
	if !exists {
		return observation{text: fmt.Sprintf("Tool failed: tool '%s' not found", action.Tool)}, nil
	}

	startTime := time.Now()
	input := action.Input
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}

	result, err := a.toolExecutor.Execute(ctx, tool, input)
	if err != nil {
		return observation{}, err
	}

	run.toolCalls = append(run.toolCalls, ToolCall{
		Name:       action.Tool,
		InputSize:  len(input),
		OutputSize: len(result.Output),
		DurationMs: uint64(time.Since(startTime).Milliseconds()),
		Success:    result.Success(),
	})

	if result.Success() {
		return observation{text: result.Output, ok: true}, nil
	}
	return observation{text: fmt.Sprintf("Tool failed: %v", result.Error)}, nil
}

func finalResult(decision Decision, lastToolOutput string) string {
	if decision.FinalAnswer != nil && strings.TrimSpace(*decision.FinalAnswer) != "" {
		return *decision.FinalAnswer
	}
	if lastToolOutput != "" {
		return lastToolOutput
	}
	return decision.Thought
}

func implicitResult(decision Decision, lastToolOutput string, steps []Step) string {
	if decision.Thought != "" {
		return decision.Thought
	}
	if lastToolOutput != "" {
		return lastToolOutput
	}
	return *steps[len(steps)-1].Observation
}

func hasPriorProgress(steps []Step) bool {
	for _, s := range steps {
		if s.Action != nil {
			return true
		}
	}
	return false
}

// runState accumulates what one execution produced.
type runState struct {
	agentName string
	start     time.Time
	steps     []Step
	toolCalls []ToolCall
	usage     llm.TokenUsage
	llmCalls  int
}

func newRun(agentName string) *runState {
	return &runState{agentName: agentName, start: time.Now()}
}

func (r *runState) metadata() Metadata {
	return Metadata{
		ExecutionTimeMs: uint64(time.Since(r.start).Milliseconds()),
		AgentName:       r.agentName,
		ToolCalls:       r.toolCalls,
		TokenUsage:      r.usage,
		LLMCalls:        r.llmCalls,
	}
}

func (r *runState) success(result string) Response {
	return Response{Type: ResponseSuccess, Result: result, Steps: r.steps, Metadata: r.metadata()}
}

func (r *runState) failure(err error) Response {
	return Response{Type: ResponseFailure, Err: err, Steps: r.steps, Metadata: r.metadata()}
}

func (r *runState) timeout(err error) Response {
	return Response{Type: ResponseTimeout, Err: err, Steps: r.steps, Metadata: r.metadata()}
}
