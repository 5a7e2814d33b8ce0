package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/richinex/docvoice/index"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/session"
	"github.com/richinex/docvoice/watch"
)

// StartWatch ingests PDFs dropped into dir on a background goroutine
// until ctx is done. Results are reported on out.
func StartWatch(ctx context.Context, sess *session.Orchestrator, dir string, verbose bool, out io.Writer) error {
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("watch directory: %s is not a directory", dir)
	}

	w, err := watch.New(sess, watch.WithNotify(func(path string, x *index.VectorIndex, err error) {
		if err != nil {
			fmt.Fprintf(out, "\n[watch] %s: %s\n", filepath.Base(path), model.UserMessage(err))
			return
		}
		fmt.Fprintf(out, "\n[watch] Indexed %d chunks from %s\n", x.Len(), x.Name())
	}), watch.WithVerbose(verbose))
	if err != nil {
		return err
	}

	go func() {
		defer w.Stop()
		if err := w.Run(ctx, dir); err != nil {
			log.Printf("[ERROR] Watcher stopped: %v", err)
		}
	}()
	return nil
}
