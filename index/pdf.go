package index

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/richinex/docvoice/model"
)

// Page is the plain text of one PDF page.
type Page struct {
	Number int // 1-based
	Text   string
}

// ExtractFunc turns raw document bytes into page texts.
type ExtractFunc func(raw []byte) ([]Page, error)

// PDFExtractor writes uploads to a temp file and reads their text page by
// page. The temp file is removed on every path.
type PDFExtractor struct {
	TempDir string // empty means os.TempDir()
}

// Extract implements ExtractFunc. Failures wrap model.ErrDocumentParse.
func (e PDFExtractor) Extract(raw []byte) (pages []Page, err error) {
	f, err := os.CreateTemp(e.TempDir, "docvoice-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(raw); err != nil {
		f.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", model.ErrDocumentParse, r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDocumentParse, err)
	}
	defer file.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", model.ErrDocumentParse, i, err)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
