package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/richinex/docvoice/internal/slash"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/session"
)

// Chat runs the line REPL over sess until /exit or end of input.
func Chat(ctx context.Context, sess *session.Orchestrator, in io.Reader, out io.Writer) error {
	if n := len(sess.History()); n > 0 {
		fmt.Fprintf(out, "Resuming session %s (%d turns)\n\n", sess.ID(), n)
	}
	fmt.Fprintln(out, "Ask about your PDF. Type /help for commands.")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		if quit := HandleLine(ctx, sess, scanner.Text(), out); quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// HandleLine runs one line of input: a slash command or a question.
// It reports whether the user asked to quit.
func HandleLine(ctx context.Context, sess *session.Orchestrator, line string, out io.Writer) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	cmd, isCommand, err := slash.Parse(line)
	if err != nil {
		fmt.Fprintf(out, "%v\n\n", err)
		return false
	}
	if !isCommand {
		ask(ctx, sess, line, out)
		return false
	}

	switch cmd.Command {
	case slash.Exit:
		return true
	case slash.Help:
		fmt.Fprint(out, slash.HelpText())
	case slash.History:
		printHistory(sess.History(), out)
	case slash.Reset:
		sess.Reset()
		fmt.Fprintf(out, "Started new session %s\n", sess.ID())
	case slash.Upload:
		raw, err := readFile(cmd.Arg)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			break
		}
		x, err := sess.Ingest(ctx, filepath.Base(cmd.Arg), raw)
		if err != nil {
			fmt.Fprintln(out, model.UserMessage(err))
			break
		}
		fmt.Fprintf(out, "Indexed %d chunks from %s.\n", x.Len(), x.Name())
	case slash.Voice:
		raw, err := readFile(cmd.Arg)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			break
		}
		reply, err := sess.SubmitAudio(ctx, raw)
		if err != nil {
			fmt.Fprintln(out, model.UserMessage(err))
			break
		}
		if !reply.Dropped {
			fmt.Fprintf(out, "you (voice): %s\n\n%s\n", reply.Query, reply.Answer)
		}
	}
	fmt.Fprintln(out)
	return false
}

func ask(ctx context.Context, sess *session.Orchestrator, question string, out io.Writer) {
	reply, err := sess.SubmitText(ctx, question)
	if err != nil {
		fmt.Fprintf(out, "\n%s\n\n", model.UserMessage(err))
		return
	}
	fmt.Fprintf(out, "\n%s\n\n", reply.Answer)
}

func printHistory(turns []model.Turn, out io.Writer) {
	if len(turns) == 0 {
		fmt.Fprintln(out, "(no messages yet)")
		return
	}
	for _, t := range turns {
		fmt.Fprintf(out, "%s: %s\n", t.Role, t.Content)
	}
}
