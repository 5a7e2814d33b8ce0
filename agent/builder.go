package agent

import (
	"github.com/richinex/docvoice/tools"
)

// Builder provides fluent configuration for creating personas.
type Builder struct {
	persona Persona
}

// NewBuilder creates a new persona builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{persona: Persona{Name: name}}
}

// Role sets the persona's role.
func (b *Builder) Role(role string) *Builder {
	b.persona.Role = role
	return b
}

// Goal sets the persona's goal.
func (b *Builder) Goal(goal string) *Builder {
	b.persona.Goal = goal
	return b
}

// Backstory sets the persona's backstory.
func (b *Builder) Backstory(backstory string) *Builder {
	b.persona.Backstory = backstory
	return b
}

// Tool adds a tool to the persona.
func (b *Builder) Tool(tool tools.Tool) *Builder {
	b.persona.Tools = append(b.persona.Tools, tool)
	return b
}

// AllowDelegation sets whether the agent may hand work to others.
func (b *Builder) AllowDelegation(allow bool) *Builder {
	b.persona.AllowDelegation = allow
	return b
}

// Build returns the persona, validated.
func (b *Builder) Build() (Persona, error) {
	p := b.persona
	p.Tools = append([]tools.Tool(nil), b.persona.Tools...)
	if err := p.Validate(); err != nil {
		return Persona{}, err
	}
	return p, nil
}
