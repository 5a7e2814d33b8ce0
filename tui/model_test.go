package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/richinex/docvoice/index"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/session"
)

type fakeSession struct {
	id      string
	history []model.Turn
	current *index.VectorIndex
	err     error
	resets  int
}

func (f *fakeSession) ID() string                  { return f.id }
func (f *fakeSession) History() []model.Turn       { return f.history }
func (f *fakeSession) Current() *index.VectorIndex { return f.current }
func (f *fakeSession) Reset()                      { f.resets++; f.id = "fresh"; f.history = nil }

func (f *fakeSession) Ingest(_ context.Context, name string, _ []byte) (*index.VectorIndex, error) {
	if f.err != nil {
		return nil, f.err
	}
	x, err := index.NewVectorIndex(name, 1, "test-embed",
		[]index.Chunk{{Text: "a"}, {Text: "b", Offset: 1}},
		[][]float32{{1, 0}, {0, 1}})
	if err != nil {
		return nil, err
	}
	f.current = x
	return x, nil
}

func (f *fakeSession) SubmitText(_ context.Context, text string) (session.Reply, error) {
	if f.err != nil {
		return session.Reply{}, f.err
	}
	f.history = append(f.history, model.UserTurn(text), model.AssistantTurn("answer: "+text))
	return session.Reply{Query: text, Answer: "answer: " + text}, nil
}

func (f *fakeSession) SubmitAudio(ctx context.Context, _ []byte) (session.Reply, error) {
	return f.SubmitText(ctx, "spoken question")
}

func sized(t *testing.T, sess Session) Model {
	t.Helper()
	m, _ := New(context.Background(), sess).Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m.(Model)
}

// enter types line and presses Enter, then runs the resulting commands
// and feeds their messages back until the model is idle.
func enter(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	for _, msg := range drain(cmd) {
		switch msg.(type) {
		case replyMsg, ingestMsg:
			next, _ = m.Update(msg)
			m = next.(Model)
		case tea.QuitMsg:
			return m, cmd
		}
	}
	return m, cmd
}

func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestViewBeforeResize(t *testing.T) {
	m := New(context.Background(), &fakeSession{})
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q", got)
	}
}

func TestQuestionIsAnswered(t *testing.T) {
	sess := &fakeSession{id: "s1"}
	m, _ := enter(t, sized(t, sess), "what is covered?")

	if m.busy {
		t.Error("still busy after reply")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
	view := m.View()
	if !strings.Contains(view, "answer: what is covered?") {
		t.Errorf("answer not shown:\n%s", view)
	}
	if !strings.Contains(m.status, "Answered") {
		t.Errorf("status = %q", m.status)
	}
}

func TestErrorsShowInStatus(t *testing.T) {
	sess := &fakeSession{err: model.ErrMissingCredentials}
	m, _ := enter(t, sized(t, sess), "hello")
	if !strings.Contains(m.status, "API key is required") {
		t.Errorf("status = %q", m.status)
	}
	if len(sess.history) != 0 {
		t.Error("history changed on error")
	}
}

func TestUploadUpdatesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, _ := enter(t, sized(t, &fakeSession{}), "/upload "+path)
	if m.status != "Indexed 2 chunks from policy.pdf." {
		t.Errorf("status = %q", m.status)
	}
	if !strings.Contains(m.View(), "policy.pdf (2 chunks)") {
		t.Errorf("header missing document:\n%s", m.View())
	}
}

func TestUploadFailureKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	sess := &fakeSession{err: errors.Join(model.ErrDocumentParse, errors.New("bad xref"))}
	m, _ := enter(t, sized(t, sess), "/upload "+path)
	if !strings.HasPrefix(m.status, "Could not read that PDF") {
		t.Errorf("status = %q", m.status)
	}
	if !strings.Contains(m.View(), "no PDF") {
		t.Error("header changed after failed upload")
	}
}

func TestVoiceTurn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, _ := enter(t, sized(t, &fakeSession{}), "/voice "+path)
	if !strings.Contains(m.View(), "spoken question") {
		t.Errorf("voice turn missing:\n%s", m.View())
	}
}

func TestSlashCommands(t *testing.T) {
	sess := &fakeSession{id: "old"}
	m := sized(t, sess)

	m, _ = enter(t, m, "/help")
	if !strings.Contains(m.notice, "/upload <file.pdf>") {
		t.Errorf("help notice = %q", m.notice)
	}

	m, _ = enter(t, m, "/reset")
	if sess.resets != 1 || !strings.Contains(m.status, "fresh") {
		t.Errorf("resets = %d, status = %q", sess.resets, m.status)
	}

	m, _ = enter(t, m, "/upload")
	if !strings.HasPrefix(m.status, "usage:") {
		t.Errorf("status = %q", m.status)
	}

	_, cmd := enter(t, m, "/exit")
	if cmd == nil {
		t.Fatal("exit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("exit did not quit")
	}
}

func TestEnterIgnoredWhileBusy(t *testing.T) {
	m := sized(t, &fakeSession{})
	m.busy = true
	m.input.SetValue("second question")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("submitted while busy")
	}
	if next.(Model).input.Value() != "second question" {
		t.Error("input cleared while busy")
	}
}
