package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richinex/docvoice/session"
	"github.com/richinex/docvoice/transcribe"
)

type echoPipeline struct {
	queries []string
}

func (p *echoPipeline) Run(_ context.Context, query, _ string) (string, error) {
	p.queries = append(p.queries, query)
	return "answer to " + query, nil
}

type fixedTranscriber struct{ text string }

func (f fixedTranscriber) Transcribe(context.Context, []byte) (transcribe.Result, error) {
	return transcribe.Result{Text: f.text, ProcessingTime: 0.1}, nil
}

func newSession(t *testing.T, deps session.Deps) *session.Orchestrator {
	t.Helper()
	sess, err := session.New(context.Background(), deps, session.Options{})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return sess
}

func TestChatAnswersAndStopsAtExit(t *testing.T) {
	pipeline := &echoPipeline{}
	sess := newSession(t, session.Deps{Pipeline: pipeline})

	in := strings.NewReader("What is the refund window?\n/history\n/exit\nnever asked\n")
	var out bytes.Buffer
	if err := Chat(context.Background(), sess, in, &out); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"answer to What is the refund window?",
		"user: What is the refund window?",
		"assistant: answer to What is the refund window?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if len(pipeline.queries) != 1 {
		t.Errorf("pipeline ran %d times, want 1", len(pipeline.queries))
	}
}

func TestChatEndsAtEOF(t *testing.T) {
	sess := newSession(t, session.Deps{Pipeline: &echoPipeline{}})
	var out bytes.Buffer
	if err := Chat(context.Background(), sess, strings.NewReader("hi"), &out); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(out.String(), "answer to hi") {
		t.Errorf("unterminated last line was not answered:\n%s", out.String())
	}
}

func TestHandleLineWithoutCredentials(t *testing.T) {
	sess := newSession(t, session.Deps{})
	var out bytes.Buffer
	HandleLine(context.Background(), sess, "anything?", &out)
	if !strings.Contains(out.String(), "An API key is required") {
		t.Errorf("output = %q", out.String())
	}
	if n := len(sess.History()); n != 0 {
		t.Errorf("history has %d turns, want 0", n)
	}
}

func TestHandleLineCommands(t *testing.T) {
	tests := []struct {
		line string
		want string
		quit bool
	}{
		{"/upload", "usage: /upload <file.pdf>", false},
		{"/frobnicate", "unknown command /frobnicate", false},
		{"/he", "/voice <file.wav>", false},
		{"/history", "(no messages yet)", false},
		{"/upload /does/not/exist.pdf", "Error: reading /does/not/exist.pdf", false},
		{"/quit", "", true},
		{"   ", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			sess := newSession(t, session.Deps{Pipeline: &echoPipeline{}})
			var out bytes.Buffer
			quit := HandleLine(context.Background(), sess, tc.line, &out)
			if quit != tc.quit {
				t.Errorf("quit = %v, want %v", quit, tc.quit)
			}
			if !strings.Contains(out.String(), tc.want) {
				t.Errorf("output = %q, want it to contain %q", out.String(), tc.want)
			}
		})
	}
}

func TestHandleLineUploadWithoutEmbedder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	sess := newSession(t, session.Deps{Pipeline: &echoPipeline{}})
	var out bytes.Buffer
	HandleLine(context.Background(), sess, "/upload "+path, &out)
	if !strings.Contains(out.String(), "An API key is required") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHandleLineVoice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatal(err)
	}
	pipeline := &echoPipeline{}
	sess := newSession(t, session.Deps{
		Pipeline:    pipeline,
		Transcriber: fixedTranscriber{text: "how long is shipping"},
	})

	var out bytes.Buffer
	HandleLine(context.Background(), sess, "/voice "+path, &out)
	if !strings.Contains(out.String(), "you (voice): how long is shipping") {
		t.Errorf("output = %q", out.String())
	}

	// The same recording again is ignored.
	out.Reset()
	HandleLine(context.Background(), sess, "/voice "+path, &out)
	if strings.Contains(out.String(), "you (voice)") {
		t.Errorf("duplicate recording was answered: %q", out.String())
	}
	if len(pipeline.queries) != 1 {
		t.Errorf("pipeline ran %d times, want 1", len(pipeline.queries))
	}
}

func TestHandleLineReset(t *testing.T) {
	sess := newSession(t, session.Deps{Pipeline: &echoPipeline{}})
	HandleLine(context.Background(), sess, "hello", &bytes.Buffer{})
	before := sess.ID()

	var out bytes.Buffer
	HandleLine(context.Background(), sess, "/reset", &out)
	if sess.ID() == before {
		t.Error("reset kept the session id")
	}
	if len(sess.History()) != 0 {
		t.Error("reset kept the history")
	}
	if !strings.Contains(out.String(), sess.ID()) {
		t.Errorf("output = %q, want new id", out.String())
	}
}

func TestInitKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	if err := Init(dir, false, &out); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, name := range []string{"agents.yaml", "tasks.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	out.Reset()
	if err := Init(dir, false, &out); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if !strings.Contains(out.String(), "already holds") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSessionsRequiresDatabase(t *testing.T) {
	app := &App{Session: newSession(t, session.Deps{})}
	if err := Sessions(context.Background(), app, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error without a store")
	}
}
