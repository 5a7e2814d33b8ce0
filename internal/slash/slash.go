// Package slash parses the slash commands shared by the chat surfaces.
package slash

import (
	"fmt"
	"strings"

	"github.com/richinex/docvoice/internal/dsa"
)

// Command identifies a slash command.
type Command string

const (
	Upload  Command = "upload"
	Voice   Command = "voice"
	History Command = "history"
	Reset   Command = "reset"
	Help    Command = "help"
	Exit    Command = "exit"
)

// Spec describes a command for help output.
type Spec struct {
	Name    Command
	Arg     string // empty when the command takes no argument
	Summary string
}

// Specs lists the commands in help order.
var Specs = []Spec{
	{Upload, "<file.pdf>", "index a PDF, replacing the current one"},
	{Voice, "<file.wav>", "transcribe a recording and ask it"},
	{History, "", "show the conversation so far"},
	{Reset, "", "start a new session"},
	{Help, "", "list commands"},
	{Exit, "", "quit"},
}

var table = func() *dsa.Trie[Spec] {
	t := dsa.NewTrie[Spec]()
	for _, s := range Specs {
		t.Insert(string(s.Name), s)
	}
	t.Insert("quit", Spec{Name: Exit})
	return t
}()

// Parsed is one resolved command line.
type Parsed struct {
	Command Command
	Arg     string
}

// Parse resolves a line starting with "/". Commands may be abbreviated to
// any unique prefix. ok is false for lines that are not commands.
func Parse(line string) (p Parsed, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Parsed{}, false, nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	_, spec, err := table.Resolve(strings.ToLower(name))
	if err != nil {
		return Parsed{}, true, fmt.Errorf("unknown command /%s: %w", name, err)
	}

	arg = strings.TrimSpace(arg)
	if spec.Arg != "" && arg == "" {
		return Parsed{}, true, fmt.Errorf("usage: /%s %s", spec.Name, spec.Arg)
	}
	return Parsed{Command: spec.Name, Arg: arg}, true, nil
}

// HelpText renders the command list.
func HelpText() string {
	var b strings.Builder
	for _, s := range Specs {
		usage := "/" + string(s.Name)
		if s.Arg != "" {
			usage += " " + s.Arg
		}
		fmt.Fprintf(&b, "  %-22s %s\n", usage, s.Summary)
	}
	return b.String()
}
