package agent

import (
	"fmt"
	"strings"

	"github.com/richinex/docvoice/tools"
)

// Persona is the data that drives one agent: who it is, what it wants and
// which tools it may call. Both pipeline stages run the same executor with
// different personas.
type Persona struct {
	Name            string
	Role            string
	Goal            string
	Backstory       string
	Tools           []tools.Tool
	AllowDelegation bool
}

// HasTools returns true if the persona has tools configured.
func (p Persona) HasTools() bool {
	return len(p.Tools) > 0
}

// Validate reports missing persona fields.
func (p Persona) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Role) == "" {
		missing = append(missing, "role")
	}
	if strings.TrimSpace(p.Goal) == "" {
		missing = append(missing, "goal")
	}
	if strings.TrimSpace(p.Backstory) == "" {
		missing = append(missing, "backstory")
	}
	if len(missing) > 0 {
		return fmt.Errorf("agent %q missing %s", p.Name, strings.Join(missing, ", "))
	}
	return nil
}

// SystemPrompt renders the persona as a system prompt.
func (p Persona) SystemPrompt() string {
	return fmt.Sprintf("You are %s. %s\nYour personal goal is: %s",
		strings.TrimSpace(p.Role), strings.TrimSpace(p.Backstory), strings.TrimSpace(p.Goal))
}
