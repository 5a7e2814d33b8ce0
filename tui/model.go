// Package tui is a full-screen chat over a session: a transcript
// viewport above a single input line that takes questions and slash
// commands.
package tui

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/richinex/docvoice/index"
	"github.com/richinex/docvoice/internal/slash"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/session"
)

// Session is the part of session.Orchestrator the TUI drives.
type Session interface {
	ID() string
	History() []model.Turn
	Current() *index.VectorIndex
	Ingest(ctx context.Context, name string, raw []byte) (*index.VectorIndex, error)
	SubmitText(ctx context.Context, text string) (session.Reply, error)
	SubmitAudio(ctx context.Context, wav []byte) (session.Reply, error)
	Reset()
}

// replyMsg carries the outcome of a question or voice turn.
type replyMsg struct {
	reply session.Reply
	err   error
}

// ingestMsg carries the outcome of an upload.
type ingestMsg struct {
	index *index.VectorIndex
	err   error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	sess     Session
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	notice   string
	status   string
	busy     bool
	ready    bool
}

// New creates the chat model. Long operations run under ctx.
func New(ctx context.Context, sess Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your PDF, or /help"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = busyStyle

	return Model{
		ctx:      ctx,
		sess:     sess,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "No PDF uploaded yet. Use /upload <file.pdf>.",
	}
}

// Run starts the program on the terminal and blocks until the user quits.
// Log output goes to logPath while the screen is taken, or is discarded
// when logPath is empty.
func Run(ctx context.Context, sess Session, logPath string) error {
	if logPath != "" {
		f, err := tea.LogToFile(logPath, "docvoice")
		if err != nil {
			return err
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}
	_, err := tea.NewProgram(New(ctx, sess), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, resize and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		tw, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + 1 + ih + th // header, status, input box
		m.viewport.Width = max(20, msg.Width-tw)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case replyMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.status = model.UserMessage(msg.err)
		case msg.reply.Duplicate:
			m.status = "Same recording as last time; ignored."
		case msg.reply.Dropped:
			m.status = "Ready."
		default:
			m.status = fmt.Sprintf("Answered in %s.", msg.reply.Elapsed.Round(100*time.Millisecond))
		}
		m.refresh()
		return m, nil

	case ingestMsg:
		m.busy = false
		if msg.err != nil {
			m.status = model.UserMessage(msg.err)
		} else {
			m.status = fmt.Sprintf("Indexed %d chunks from %s.", msg.index.Len(), msg.index.Name())
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			return m.submit(line)
		}
		if msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit dispatches one input line.
func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	m.notice = ""
	cmd, isCommand, err := slash.Parse(line)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	if !isCommand {
		return m.start(fmt.Sprintf("Thinking about %q", line), func() tea.Msg {
			reply, err := m.sess.SubmitText(m.ctx, line)
			return replyMsg{reply: reply, err: err}
		})
	}

	switch cmd.Command {
	case slash.Exit:
		return m, tea.Quit
	case slash.Help:
		m.notice = slash.HelpText()
	case slash.History:
		m.notice = fmt.Sprintf("Session %s, %d turns.", m.sess.ID(), len(m.sess.History()))
	case slash.Reset:
		m.sess.Reset()
		m.status = "Started new session " + m.sess.ID()
	case slash.Upload:
		path := cmd.Arg
		return m.start("Indexing "+filepath.Base(path), func() tea.Msg {
			raw, err := os.ReadFile(path)
			if err != nil {
				return ingestMsg{err: err}
			}
			x, err := m.sess.Ingest(m.ctx, filepath.Base(path), raw)
			return ingestMsg{index: x, err: err}
		})
	case slash.Voice:
		path := cmd.Arg
		return m.start("Transcribing "+filepath.Base(path), func() tea.Msg {
			raw, err := os.ReadFile(path)
			if err != nil {
				return replyMsg{err: err}
			}
			reply, err := m.sess.SubmitAudio(m.ctx, raw)
			return replyMsg{reply: reply, err: err}
		})
	}
	m.refresh()
	return m, nil
}

// start marks the model busy and runs work alongside the spinner.
func (m Model) start(status string, work tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = status
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, work)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	var b strings.Builder
	turns := m.sess.History()
	if len(turns) == 0 {
		b.WriteString(mutedStyle.Render("No messages yet."))
		b.WriteString("\n")
	}
	for _, t := range turns {
		label := assistantStyle.Render("assistant")
		if t.Role == model.RoleUser {
			label = userStyle.Render("you")
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", label, wrap(t.Content, m.viewport.Width))
	}
	if m.notice != "" {
		b.WriteString(mutedStyle.Render(m.notice))
	}
	return b.String()
}

// View renders the header, transcript, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	doc := "no PDF"
	if x := m.sess.Current(); x != nil {
		doc = fmt.Sprintf("%s (%d chunks)", x.Name(), x.Len())
	}
	header := headerStyle.Render("docvoice") + "  " + mutedStyle.Render(doc)

	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		status
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	busyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
