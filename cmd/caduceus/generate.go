package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/caduceus/internal/generation"
	"github.com/JaimeStill/caduceus/internal/progress"
)

type generateFlags struct {
	sessionID     string
	correlationID string
	instructions  string
	html          bool
	output        string
	quiet         bool
}

func generateCmd(global *globalFlags) *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate SUBJECT_FILE",
		Short: "Generate a protocol document from a subject file",
		Long: `Generate runs every stage for the subject in SUBJECT_FILE (JSON with a
condition and evidence findings) and writes the validated document as JSON,
or as HTML with --html.

A failed run keeps its session. Run generate again with --session to resume
from the first incomplete stage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGenerate(ctx, global, flags, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&flags.sessionID, "session", "", "Session id to start or resume")
	cmd.Flags().StringVar(&flags.correlationID, "correlation", "", "Correlation id for progress events")
	cmd.Flags().StringVar(&flags.instructions, "instructions", "", "Additional instructions appended to every stage prompt")
	cmd.Flags().BoolVar(&flags.html, "html", false, "Render the document as HTML")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Do not print progress")

	return cmd
}

func runGenerate(ctx context.Context, global *globalFlags, flags *generateFlags, path string, stdout, stderr io.Writer) error {
	subject, err := loadSubject(path)
	if err != nil {
		return err
	}

	a, err := start(global)
	if err != nil {
		return err
	}
	defer a.close()

	if !flags.quiet {
		sub := a.infra.Progress.Subscribe(progress.All)
		done := make(chan struct{})
		go func() {
			printProgress(stderr, sub.C)
			close(done)
		}()
		defer func() {
			sub.Close()
			<-done
		}()
	}

	doc, err := a.infra.Generation(a.cfg).Generate(ctx, generation.Request{
		Subject:       subject,
		Instructions:  flags.instructions,
		SessionID:     flags.sessionID,
		CorrelationID: flags.correlationID,
	})
	if err != nil {
		var runErr *generation.RunError
		if errors.As(err, &runErr) && runErr.Resumable {
			return fmt.Errorf("%w\nresume with: caduceus generate --session %s %s", err, runErr.SessionID, path)
		}
		return err
	}

	out := stdout
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	return writeDocument(out, subject, doc, flags.html)
}
