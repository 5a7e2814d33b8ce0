package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/richinex/docvoice/embedding"
	"github.com/richinex/docvoice/index"
	"github.com/richinex/docvoice/model"
)

// NoDocumentMessage is the observation returned when nothing has been
// uploaded. It is a normal result so the research stage can still answer.
const NoDocumentMessage = "No PDF uploaded yet."

// DefaultTopK is the number of passages returned per search.
const DefaultTopK = 4

// IndexSource exposes the live index of a session. Current returns nil when
// no document has been ingested.
type IndexSource interface {
	Current() *index.VectorIndex
}

// SearchPDFTool retrieves the passages of the uploaded PDF most similar to a
// query.
type SearchPDFTool struct {
	source   IndexSource
	embedder embedding.Embedder
	topK     int
}

// NewSearchPDFTool creates the retrieval tool. The embedder must use the
// same model the index was built with.
func NewSearchPDFTool(source IndexSource, embedder embedding.Embedder, topK int) *SearchPDFTool {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &SearchPDFTool{source: source, embedder: embedder, topK: topK}
}

// Metadata returns tool metadata.
func (t *SearchPDFTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "search_pdf",
		Description: "Search the uploaded PDF for passages relevant to a query. Returns the best matching passages separated by blank lines.",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "What to look for in the document", Required: true},
		},
	}
}

type searchArgs struct {
	Query string `json:"query"`
}

// Validate checks that a non-empty query string is present. A bare JSON
// string is accepted as the query.
func (t *SearchPDFTool) Validate(args json.RawMessage) error {
	q, err := parseQuery(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(q) == "" {
		return errors.New("query is required")
	}
	return nil
}

// Execute embeds the query and returns the top passages joined by a blank
// line, best first. With no index it returns NoDocumentMessage.
func (t *SearchPDFTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	x := t.source.Current()
	if x == nil {
		return SuccessResult(NoDocumentMessage), nil
	}

	query, err := parseQuery(args)
	if err != nil {
		return FailureResult(err), nil
	}

	if t.embedder == nil {
		return ToolResult{}, fmt.Errorf("%w: no embedding client", model.ErrMissingCredentials)
	}
	if t.embedder.Model() != x.EmbeddingModel() {
		return ToolResult{}, fmt.Errorf("%w: index built with %s, query embedder uses %s",
			model.ErrEmbeddingProvider, x.EmbeddingModel(), t.embedder.Model())
	}

	vec, err := embedding.Embed(ctx, t.embedder, query)
	if err != nil {
		return ToolResult{}, err
	}

	results := x.Search(vec, t.topK)
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return SuccessResult(strings.Join(texts, "\n\n")), nil
}

func parseQuery(args json.RawMessage) (string, error) {
	var a searchArgs
	if err := json.Unmarshal(args, &a); err == nil {
		return a.Query, nil
	}
	var s string
	if err := json.Unmarshal(args, &s); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("invalid arguments: expected {\"query\": \"...\"}")
}

var _ Tool = (*SearchPDFTool)(nil)
