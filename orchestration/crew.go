package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/richinex/docvoice/agent"
	"github.com/richinex/docvoice/config"
	"github.com/richinex/docvoice/llm"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/tools"
)

// Options tunes a Crew.
type Options struct {
	MaxIterations int
	Verbose       bool
}

// Crew runs a researcher with the retrieval tool, then a strategist that
// turns the research into the answer. Stages run strictly in order.
type Crew struct {
	researcher *agent.Agent
	strategist *agent.Agent
	tasks      map[string]config.TaskSpec
	opts       Options
}

// NewCrew builds the crew. strict drives the researcher and creative drives
// the strategist; they are expected to differ only in temperature. Missing
// crew entries fail with model.ErrConfiguration.
func NewCrew(crew config.CrewConfig, strict, creative llm.Provider, retrieval tools.Tool, opts Options) (*Crew, error) {
	if err := crew.Validate(); err != nil {
		return nil, err
	}
	if strict == nil || creative == nil {
		return nil, fmt.Errorf("%w: no language model client", model.ErrMissingCredentials)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = agent.DefaultMaxIterations
	}

	researcher, err := persona(config.ResearcherKey, crew.Agents[config.ResearcherKey], retrieval)
	if err != nil {
		return nil, err
	}
	strategist, err := persona(config.StrategistKey, crew.Agents[config.StrategistKey], nil)
	if err != nil {
		return nil, err
	}

	return &Crew{
		researcher: agent.New(researcher, strict).
			WithToolConfig(tools.SingleAttempt()).
			Verbose(opts.Verbose),
		strategist: agent.New(strategist, creative).Verbose(opts.Verbose),
		tasks:      crew.Tasks,
		opts:       opts,
	}, nil
}

func persona(name string, spec config.AgentSpec, tool tools.Tool) (agent.Persona, error) {
	b := agent.NewBuilder(name).
		Role(spec.Role).
		Goal(spec.Goal).
		Backstory(spec.Backstory).
		AllowDelegation(false)
	if tool != nil {
		b.Tool(tool)
	}
	p, err := b.Build()
	if err != nil {
		return agent.Persona{}, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}
	return p, nil
}

// Run answers query given the rendered recent conversation.
func (c *Crew) Run(ctx context.Context, query, chatHistory string) (string, error) {
	run, err := c.Kickoff(ctx, query, chatHistory)
	if err != nil {
		return "", err
	}
	return run.Answer(), nil
}

// Kickoff runs both stages and returns the full run record. The research
// task sees only {query}; the answer task sees {query} and {chat_history}
// plus the research output as context.
func (c *Crew) Kickoff(ctx context.Context, query, chatHistory string) (*Run, error) {
	research := newTask(config.ResearchTaskKey, c.tasks[config.ResearchTaskKey], map[string]string{
		"query": query,
	})
	answer := newTask(config.AnswerTaskKey, c.tasks[config.AnswerTaskKey], map[string]string{
		"query":        query,
		"chat_history": chatHistory,
	})
	answer.Context = []*Task{research}

	run := &Run{Query: query, Tasks: []*Task{research, answer}}
	stages := []struct {
		task  *Task
		agent *agent.Agent
	}{
		{research, c.researcher},
		{answer, c.strategist},
	}

	for _, s := range stages {
		start := time.Now()
		resp := s.agent.Execute(ctx, s.task.Prompt(), c.opts.MaxIterations)
		stage := StageResult{Task: s.task.Name, Agent: s.agent.Name(), Response: resp, Duration: time.Since(start)}
		run.Stages = append(run.Stages, stage)
		run.Usage.Add(&resp.Metadata.TokenUsage)

		if c.opts.Verbose {
			log.Printf("[DEBUG] %s by %s: %s in %s, %d llm calls, %d tool calls, %d tokens",
				stage.Task, stage.Agent, resp.Type, stage.Duration.Round(time.Millisecond),
				resp.Metadata.LLMCalls, len(resp.Metadata.ToolCalls), resp.Metadata.TokenUsage.TotalTokens)
		}

		if !resp.IsSuccess() {
			return run, fmt.Errorf("%s failed: %w", s.task.Name, stageError(resp.Err))
		}
		s.task.Output = resp.Result
		s.task.done = true
	}
	return run, nil
}

func newTask(name string, spec config.TaskSpec, vars map[string]string) *Task {
	return &Task{
		Name:           name,
		Description:    Render(spec.Description, vars),
		ExpectedOutput: Render(spec.ExpectedOutput, vars),
	}
}

// stageError keeps typed failures and classes everything else as a
// language model failure.
func stageError(err error) error {
	if err == nil {
		return model.ErrLanguageModel
	}
	for _, kind := range []error{
		model.ErrLanguageModel,
		model.ErrEmbeddingProvider,
		model.ErrMissingCredentials,
		model.ErrConfiguration,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", model.ErrLanguageModel, err)
}
