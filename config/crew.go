package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/richinex/docvoice/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Keys the pipeline looks up in the crew files.
const (
	ResearcherKey   = "researcher"
	StrategistKey   = "strategist"
	ResearchTaskKey = "research_task"
	AnswerTaskKey   = "answer_task"
)

// AgentSpec is one entry of agents.yaml.
type AgentSpec struct {
	Role      string `mapstructure:"role" yaml:"role"`
	Goal      string `mapstructure:"goal" yaml:"goal"`
	Backstory string `mapstructure:"backstory" yaml:"backstory"`
}

// TaskSpec is one entry of tasks.yaml. Description may contain {query} and
// {chat_history} placeholders.
type TaskSpec struct {
	Description    string `mapstructure:"description" yaml:"description"`
	ExpectedOutput string `mapstructure:"expected_output" yaml:"expected_output"`
}

// CrewConfig is the persona and task text for the two-stage pipeline.
type CrewConfig struct {
	Agents map[string]AgentSpec
	Tasks  map[string]TaskSpec
}

// DefaultCrew returns the built-in crew definition.
func DefaultCrew() CrewConfig {
	return CrewConfig{
		Agents: map[string]AgentSpec{
			ResearcherKey: {
				Role:      "Document Researcher",
				Goal:      "Find the passages in the uploaded PDF that bear on the user's question.",
				Backstory: "You are meticulous and never guess. You search the document before you report, and you quote what you find.",
			},
			StrategistKey: {
				Role:      "Answer Strategist",
				Goal:      "Turn research findings and the conversation so far into a clear answer for the user.",
				Backstory: "You explain things plainly. You build on what was already said in the conversation and you say when the document does not cover something.",
			},
		},
		Tasks: map[string]TaskSpec{
			ResearchTaskKey: {
				Description:    "Search the uploaded PDF for information relevant to this question: {query}\nIf no PDF has been uploaded, report that plainly.",
				ExpectedOutput: "The relevant passages and facts from the document, or a note that no document is available.",
			},
			AnswerTaskKey: {
				Description:    "Answer the user's question: {query}\n\nRecent conversation:\n{chat_history}\n\nUse the research findings. If they do not cover the question, answer from general knowledge and say so.",
				ExpectedOutput: "A clear, direct answer addressed to the user.",
			},
		},
	}
}

// LoadCrew reads agents.yaml and tasks.yaml from dir with viper. A missing
// file falls back to the built-in definition for that file. The result is
// validated.
func LoadCrew(dir string) (CrewConfig, error) {
	crew := DefaultCrew()

	agents := map[string]AgentSpec{}
	found, err := readYAML(dir, "agents", &agents)
	if err != nil {
		return CrewConfig{}, err
	}
	if found {
		crew.Agents = agents
	}

	tasks := map[string]TaskSpec{}
	found, err = readYAML(dir, "tasks", &tasks)
	if err != nil {
		return CrewConfig{}, err
	}
	if found {
		crew.Tasks = tasks
	}

	if err := crew.Validate(); err != nil {
		return CrewConfig{}, err
	}
	return crew, nil
}

func readYAML(dir, name string, out any) (bool, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Printf("[INFO] No %s.yaml in %s, using built-in definition", name, dir)
			return false, nil
		}
		return false, fmt.Errorf("%w: reading %s.yaml: %w", model.ErrConfiguration, name, err)
	}
	if err := v.Unmarshal(out); err != nil {
		return false, fmt.Errorf("%w: decoding %s.yaml: %w", model.ErrConfiguration, name, err)
	}
	return true, nil
}

// Validate checks that both personas and both tasks exist with every field
// filled in.
func (c CrewConfig) Validate() error {
	var problems []string
	for _, key := range []string{ResearcherKey, StrategistKey} {
		a, ok := c.Agents[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("agents.yaml: missing %q", key))
			continue
		}
		for field, val := range map[string]string{"role": a.Role, "goal": a.Goal, "backstory": a.Backstory} {
			if strings.TrimSpace(val) == "" {
				problems = append(problems, fmt.Sprintf("agents.yaml: %s.%s is empty", key, field))
			}
		}
	}
	for _, key := range []string{ResearchTaskKey, AnswerTaskKey} {
		t, ok := c.Tasks[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("tasks.yaml: missing %q", key))
			continue
		}
		for field, val := range map[string]string{"description": t.Description, "expected_output": t.ExpectedOutput} {
			if strings.TrimSpace(val) == "" {
				problems = append(problems, fmt.Sprintf("tasks.yaml: %s.%s is empty", key, field))
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", model.ErrConfiguration, strings.Join(problems, "; "))
}

// WriteCrew writes crew as agents.yaml and tasks.yaml into dir. Existing
// files are kept unless overwrite is set. Returns the paths written.
func WriteCrew(dir string, crew CrewConfig, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	var written []string
	for _, f := range []struct {
		name string
		data any
	}{
		{"agents.yaml", crew.Agents},
		{"tasks.yaml", crew.Tasks},
	} {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil && !overwrite {
			log.Printf("[INFO] Keeping existing %s", path)
			continue
		}
		data, err := yaml.Marshal(f.data)
		if err != nil {
			return written, fmt.Errorf("marshalling %s: %w", f.name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
