// Package model provides domain types shared across packages.
package model

import (
	"fmt"
	"strings"
)

// Step represents a single step in an agent's reasoning.
type Step struct {
	Iteration   int
	Thought     string
	Action      *string
	Observation *string
}

// ToolCall contains metrics about a tool invocation.
type ToolCall struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole parses a stored role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Turn is one entry of a session transcript. Turns are never mutated once
// appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn creates a user turn.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn creates an assistant turn.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// RenderHistory formats the trailing window of turns as "role: content"
// lines. A window <= 0 renders every turn.
func RenderHistory(turns []Turn, window int) string {
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("%s: %s", t.Role, t.Content)
	}
	return strings.Join(lines, "\n")
}
