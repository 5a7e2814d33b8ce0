// Package main provides the docvoice CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/docvoice/cli"
	"github.com/richinex/docvoice/config"
	"github.com/richinex/docvoice/mcp"
	"github.com/richinex/docvoice/tui"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	// Global flags
	provider  string
	configDir string
	verbose   bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:     "docvoice",
		Short:   "Ask questions about a PDF by text or voice",
		Version: version,
		Long: `Upload a PDF and ask questions about it, typed or spoken.

Each question runs in two stages:
- research: an agent searches the indexed PDF and gathers the facts
- answer: a second agent turns the research and recent chat into a reply

Voice questions are recorded as WAV and sent to a local transcription service.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "",
		fmt.Sprintf("LLM provider (%s)", strings.Join(config.SupportedProviders(), ", ")))
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding agents.yaml and tasks.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(tuiCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(transcribeCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(mcpCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:  provider,
		ConfigDir: configDir,
		Verbose:   verbose,
	}
}

// withApp builds the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts cli.Options, fn func(ctx context.Context, app *cli.App) error) error {
	ctx := cmd.Context()
	app, err := cli.NewApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write the default agent and task definitions",
		Long: `Write agents.yaml and tasks.yaml describing the research and answer
stages. Edit them to change roles, goals or prompts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "config"
			if configDir != "" {
				dir = configDir
			}
			if len(args) == 1 {
				dir = args[0]
			}
			return cli.Init(dir, force, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func askCmd() *cobra.Command {
	var pdfPath string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question about a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, options(), func(ctx context.Context, app *cli.App) error {
				return cli.Ask(ctx, app, args[0], pdfPath, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF to index before asking")

	return cmd
}

func chatCmd() *cobra.Command {
	var pdfPath string
	var sessionID string
	var dbPath string
	var watchDir string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat about a PDF",
		Long: `Start an interactive chat. Type questions, or use slash commands:

  /upload <file.pdf>   index a PDF, replacing the current one
  /voice <file.wav>    transcribe a recording and ask it
  /history /reset /help /exit

With --db the conversation is stored and can be resumed with --session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.SessionID = sessionID
			opts.DBPath = dbPath
			return withApp(cmd, opts, func(ctx context.Context, app *cli.App) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session: %s\n", app.Session.ID())
				if pdfPath != "" {
					cli.HandleLine(ctx, app.Session, "/upload "+pdfPath, out)
				}
				if watchDir != "" {
					if err := cli.StartWatch(ctx, app.Session, watchDir, verbose, out); err != nil {
						return err
					}
				}
				return cli.Chat(ctx, app.Session, cmd.InOrStdin(), out)
			})
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF to index at start")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to resume (needs --db)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for conversation persistence")
	cmd.Flags().StringVar(&watchDir, "watch", "", "Directory to watch for new PDFs")

	return cmd
}

func tuiCmd() *cobra.Command {
	var sessionID string
	var dbPath string
	var logPath string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.SessionID = sessionID
			opts.DBPath = dbPath
			return withApp(cmd, opts, func(ctx context.Context, app *cli.App) error {
				return tui.Run(ctx, app.Session, logPath)
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to resume (needs --db)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for conversation persistence")
	cmd.Flags().StringVar(&logPath, "log", "", "Write logs to this file while the TUI runs")

	return cmd
}

func ingestCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest [file.pdf]",
		Short: "Index a PDF and report its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, options(), func(ctx context.Context, app *cli.App) error {
				return cli.Ingest(ctx, app, args[0], dryRun, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Split only; skip embedding")

	return cmd
}

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe [file.wav]",
		Short: "Transcribe a recording with the local speech service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.NoPrompt = true
			return withApp(cmd, opts, func(ctx context.Context, app *cli.App) error {
				return cli.Transcribe(ctx, app, args[0], cmd.OutOrStdout())
			})
		},
	}
}

func sessionsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions and their documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.DBPath = dbPath
			opts.NoPrompt = true
			return withApp(cmd, opts, func(ctx context.Context, app *cli.App) error {
				return cli.Sessions(ctx, app, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", ".docvoice/docvoice.db", "SQLite database path")

	return cmd
}

func mcpCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve ask, ingest and history tools over MCP (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.DBPath = dbPath
			// stdin carries the protocol.
			opts.NoPrompt = true
			return withApp(cmd, opts, func(ctx context.Context, app *cli.App) error {
				return mcp.NewServer(app.Session, version).Run(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for conversation persistence")

	return cmd
}
