package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/richinex/docvoice/agent"
	"github.com/richinex/docvoice/internal/testutil"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/tools"
)

type echoTool struct {
	tools.BaseTool
	calls []string
	err   error
}

func (e *echoTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{
		Name:        "echo",
		Description: "Echoes the query",
		Parameters:  []tools.ToolParameter{{Name: "query", ParamType: "string", Required: true}},
	}
}

func (e *echoTool) Execute(_ context.Context, args json.RawMessage) (tools.ToolResult, error) {
	if e.err != nil {
		return tools.ToolResult{}, e.err
	}
	var a struct{ Query string }
	_ = json.Unmarshal(args, &a)
	e.calls = append(e.calls, a.Query)
	return tools.SuccessResult("echo: " + a.Query), nil
}

func persona(t *testing.T, withTool tools.Tool) agent.Persona {
	t.Helper()
	b := agent.NewBuilder("researcher").
		Role("Researcher").
		Goal("Find facts").
		Backstory("You read documents carefully.")
	if withTool != nil {
		b.Tool(withTool)
	}
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

func TestReActCallsToolThenAnswers(t *testing.T) {
	tool := &echoTool{}
	provider := testutil.NewScriptedProvider(0,
		`{"thought": "search first", "action": {"tool": "echo", "input": {"query": "refund policy"}}, "is_final": false}`,
		`{"thought": "done", "is_final": true, "final_answer": "Refunds take 14 days."}`,
	)

	resp := agent.New(persona(t, tool), provider).Execute(context.Background(), "What is the refund policy?", 5)
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got %v: %v", resp.Type, resp.Err)
	}
	if resp.Result != "Refunds take 14 days." {
		t.Errorf("unexpected result %q", resp.Result)
	}
	if len(tool.calls) != 1 || tool.calls[0] != "refund policy" {
		t.Errorf("unexpected tool calls %v", tool.calls)
	}
	if resp.Metadata.LLMCalls != 2 || len(resp.Metadata.ToolCalls) != 1 {
		t.Errorf("unexpected metadata %+v", resp.Metadata)
	}
	if resp.Metadata.TokenUsage.TotalTokens != 30 {
		t.Errorf("expected 30 tokens, got %d", resp.Metadata.TokenUsage.TotalTokens)
	}

	second := provider.Requests()[1]
	last := second[len(second)-1].Content
	if !strings.Contains(last, "Observation: echo: refund policy") {
		t.Errorf("observation not fed back: %q", last)
	}
	if !strings.Contains(second[0].Content, "Tool: echo") {
		t.Error("system prompt does not list tools")
	}
}

func TestReActHardToolErrorFails(t *testing.T) {
	boom := errors.New("embedding backend down")
	provider := testutil.NewScriptedProvider(0,
		`{"thought": "search", "action": {"tool": "echo", "input": {"query": "x"}}, "is_final": false}`,
	)

	resp := agent.New(persona(t, &echoTool{err: boom}), provider).Execute(context.Background(), "task", 5)
	if resp.Type != agent.ResponseFailure {
		t.Fatalf("expected failure, got %v", resp.Type)
	}
	if !errors.Is(resp.Err, boom) {
		t.Errorf("expected wrapped tool error, got %v", resp.Err)
	}
	if provider.CallCount() != 1 {
		t.Errorf("expected no further model calls, got %d", provider.CallCount())
	}
}

func TestReActUnknownToolIsObservation(t *testing.T) {
	provider := testutil.NewScriptedProvider(0,
		`{"thought": "try", "action": {"tool": "nope", "input": {}}, "is_final": false}`,
		`{"thought": "ok", "is_final": true, "final_answer": "fallback"}`,
	)

	resp := agent.New(persona(t, &echoTool{}), provider).Execute(context.Background(), "task", 5)
	if !resp.IsSuccess() || resp.Result != "fallback" {
		t.Fatalf("unexpected response %v %q %v", resp.Type, resp.Result, resp.Err)
	}
	obs := provider.Requests()[1]
	if !strings.Contains(obs[len(obs)-1].Content, "tool 'nope' not found") {
		t.Errorf("expected not-found observation, got %q", obs[len(obs)-1].Content)
	}
}

func TestReActMaxIterations(t *testing.T) {
	provider := testutil.NewScriptedProvider(0,
		`{"thought": "again", "action": {"tool": "echo", "input": {"query": "x"}}, "is_final": false}`,
	)

	resp := agent.New(persona(t, &echoTool{}), provider).Execute(context.Background(), "task", 3)
	if resp.Type != agent.ResponseTimeout {
		t.Fatalf("expected timeout, got %v", resp.Type)
	}
	if !errors.Is(resp.Err, model.ErrLanguageModel) {
		t.Errorf("expected ErrLanguageModel, got %v", resp.Err)
	}
	if provider.CallCount() != 3 {
		t.Errorf("expected 3 model calls, got %d", provider.CallCount())
	}
}

func TestDirectAnswerWithoutTools(t *testing.T) {
	provider := testutil.NewScriptedProvider(0.7, "  Plain answer.  ")

	resp := agent.New(persona(t, nil), provider).Execute(context.Background(), "task", 5)
	if !resp.IsSuccess() || resp.Result != "Plain answer." {
		t.Fatalf("unexpected response %v %q %v", resp.Type, resp.Result, resp.Err)
	}
	if provider.CallCount() != 1 {
		t.Errorf("expected 1 model call, got %d", provider.CallCount())
	}

	provider = testutil.NewScriptedProvider(0.7, `{"thought": "x", "is_final": true, "final_answer": "Unwrapped."}`)
	resp = agent.New(persona(t, nil), provider).Execute(context.Background(), "task", 5)
	if resp.Result != "Unwrapped." {
		t.Errorf("expected unwrapped final answer, got %q", resp.Result)
	}
}

func TestModelErrorFails(t *testing.T) {
	provider := testutil.NewScriptedProvider(0)
	provider.Err = errors.New("503")

	resp := agent.New(persona(t, nil), provider).Execute(context.Background(), "task", 5)
	if resp.Type != agent.ResponseFailure || !errors.Is(resp.Err, model.ErrLanguageModel) {
		t.Fatalf("expected language model failure, got %v %v", resp.Type, resp.Err)
	}
}

func TestBuilderValidates(t *testing.T) {
	if _, err := agent.NewBuilder("x").Role("r").Build(); err == nil {
		t.Error("expected missing goal/backstory error")
	}
}

func TestDecisionFinalAnswerObject(t *testing.T) {
	var d agent.Decision
	if err := json.Unmarshal([]byte(`{"thought":"t","is_final":true,"final_answer":{"a":1}}`), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d.FinalAnswer == nil || !strings.Contains(*d.FinalAnswer, `"a": 1`) {
		t.Errorf("unexpected final answer %v", d.FinalAnswer)
	}
}
