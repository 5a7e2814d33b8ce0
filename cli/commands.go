package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/richinex/docvoice/config"
	"github.com/richinex/docvoice/model"
)

// Ask answers one question, optionally ingesting pdfPath first.
func Ask(ctx context.Context, app *App, question, pdfPath string, out io.Writer) error {
	if pdfPath != "" {
		if err := upload(ctx, app, pdfPath, out); err != nil {
			return err
		}
	}
	reply, err := app.Session.SubmitText(ctx, question)
	if err != nil {
		return errors.New(model.UserMessage(err))
	}
	fmt.Fprintln(out, reply.Answer)
	return nil
}

// Ingest indexes pdfPath and reports the chunk count. With dryRun the
// document is only split, which costs no embedding calls.
func Ingest(ctx context.Context, app *App, pdfPath string, dryRun bool, out io.Writer) error {
	if !dryRun {
		return upload(ctx, app, pdfPath, out)
	}
	if app.Indexer == nil {
		return errors.New(model.UserMessage(model.ErrMissingCredentials))
	}
	raw, err := readFile(pdfPath)
	if err != nil {
		return err
	}
	chunks, err := app.Indexer.Chunk(raw)
	if err != nil {
		return errors.New(model.UserMessage(err))
	}
	pages := map[int]bool{}
	for _, c := range chunks {
		pages[c.Page] = true
	}
	fmt.Fprintf(out, "%s: %d chunks across %d pages (not embedded)\n", filepath.Base(pdfPath), len(chunks), len(pages))
	return nil
}

func upload(ctx context.Context, app *App, pdfPath string, out io.Writer) error {
	raw, err := readFile(pdfPath)
	if err != nil {
		return err
	}
	x, err := app.Session.Ingest(ctx, filepath.Base(pdfPath), raw)
	if err != nil {
		return errors.New(model.UserMessage(err))
	}
	fmt.Fprintf(out, "Indexed %d chunks from %s with %s.\n", x.Len(), x.Name(), x.EmbeddingModel())
	return nil
}

// Transcribe sends a WAV file to the transcription service and prints
// the text.
func Transcribe(ctx context.Context, app *App, wavPath string, out io.Writer) error {
	raw, err := readFile(wavPath)
	if err != nil {
		return err
	}
	res, err := app.Transcriber.Transcribe(ctx, raw)
	if err != nil {
		return errors.New(model.UserMessage(err))
	}
	fmt.Fprintln(out, res.Text)
	fmt.Fprintf(out, "(transcribed in %.2fs)\n", res.ProcessingTime)
	return nil
}

// Sessions lists stored sessions with their ingested documents.
func Sessions(ctx context.Context, app *App, out io.Writer) error {
	if app.Store == nil {
		return errors.New("no database configured; pass --db")
	}
	ids, err := app.Store.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No stored sessions.")
		return nil
	}
	for _, id := range ids {
		turns, err := app.Store.Load(ctx, id)
		if err != nil {
			return err
		}
		docs, err := app.Store.ListDocuments(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %d turns\n", id, len(turns))
		for _, d := range docs {
			fmt.Fprintf(out, "    %s  %d chunks  %s  %s\n", d.Name, d.Chunks, d.EmbeddingModel, d.IngestedAt.Local().Format(time.DateTime))
		}
	}
	return nil
}

// Init writes the default agent and task definitions into dir.
func Init(dir string, overwrite bool, out io.Writer) error {
	written, err := config.WriteCrew(dir, config.DefaultCrew(), overwrite)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		fmt.Fprintf(out, "%s already holds a crew definition; use --force to replace it.\n", dir)
		return nil
	}
	for _, p := range written {
		fmt.Fprintf(out, "wrote %s\n", p)
	}
	return nil
}
