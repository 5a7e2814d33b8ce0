// Package mcp exposes a document session as MCP tools so other assistants
// can upload PDFs and ask questions about them.
package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/richinex/docvoice/index"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/session"
)

// Session is the part of session.Orchestrator the server drives.
type Session interface {
	SubmitText(ctx context.Context, text string) (session.Reply, error)
	Ingest(ctx context.Context, name string, raw []byte) (*index.VectorIndex, error)
	History() []model.Turn
}

// Server wraps a session and exposes it as MCP tools.
type Server struct {
	server  *gomcp.Server
	session Session
}

// NewServer creates an MCP server over sess.
func NewServer(sess Session, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{session: sess}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "docvoice", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying server, for tests and other transports.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

type askInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the uploaded PDF"`
}

type askOutput struct {
	Answer string `json:"answer"`
}

type ingestInput struct {
	Path string `json:"path" jsonschema:"filesystem path of the PDF to index"`
}

type ingestOutput struct {
	Name           string `json:"name"`
	Chunks         int    `json:"chunks"`
	EmbeddingModel string `json:"embedding_model"`
}

type historyInput struct{}

type turnOutput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type historyOutput struct {
	Turns []turnOutput `json:"turns"`
	Count int          `json:"count"`
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "ask_documents",
		Description: "Ask a question about the uploaded PDF. The answer takes the conversation so far into account.",
	}, s.handleAsk)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "ingest_pdf",
		Description: "Index a PDF from disk. It replaces any previously indexed document.",
	}, s.handleIngest)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_history",
		Description: "Return the conversation so far, oldest turn first.",
	}, s.handleHistory)
}

func (s *Server) handleAsk(ctx context.Context, _ *gomcp.CallToolRequest, input askInput) (*gomcp.CallToolResult, askOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return errorResult("question is required"), askOutput{}, nil
	}
	reply, err := s.session.SubmitText(ctx, input.Question)
	if err != nil {
		return errorResult(model.UserMessage(err)), askOutput{}, nil
	}
	return nil, askOutput{Answer: reply.Answer}, nil
}

func (s *Server) handleIngest(ctx context.Context, _ *gomcp.CallToolRequest, input ingestInput) (*gomcp.CallToolResult, ingestOutput, error) {
	if input.Path == "" {
		return errorResult("path is required"), ingestOutput{}, nil
	}
	raw, err := os.ReadFile(input.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("reading %s: %s", input.Path, err)), ingestOutput{}, nil
	}
	x, err := s.session.Ingest(ctx, filepath.Base(input.Path), raw)
	if err != nil {
		return errorResult(model.UserMessage(err)), ingestOutput{}, nil
	}
	return nil, ingestOutput{Name: x.Name(), Chunks: x.Len(), EmbeddingModel: x.EmbeddingModel()}, nil
}

func (s *Server) handleHistory(_ context.Context, _ *gomcp.CallToolRequest, _ historyInput) (*gomcp.CallToolResult, historyOutput, error) {
	history := s.session.History()
	out := historyOutput{Turns: make([]turnOutput, len(history)), Count: len(history)}
	for i, t := range history {
		out.Turns[i] = turnOutput{Role: string(t.Role), Content: t.Content}
	}
	return nil, out, nil
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
