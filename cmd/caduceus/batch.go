package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/caduceus/internal/generation"
)

type batchFlags struct {
	concurrency int
	outDir      string
	html        bool
}

func batchCmd(global *globalFlags) *cobra.Command {
	flags := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch SUBJECT_FILE...",
		Short: "Generate documents for several subject files concurrently",
		Long: `Batch runs one generation per subject file, each in its own session,
with at most --concurrency runs in flight. Documents are written to
--out-dir named after their subject file. A failed subject does not stop
the others; failures are reported together with their session ids.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, global, flags, args, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "n", 2, "Maximum concurrent runs")
	cmd.Flags().StringVar(&flags.outDir, "out-dir", ".", "Directory for generated documents")
	cmd.Flags().BoolVar(&flags.html, "html", false, "Render documents as HTML")

	return cmd
}

func runBatch(ctx context.Context, global *globalFlags, flags *batchFlags, paths []string, stderr io.Writer) error {
	if flags.concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1: %d", flags.concurrency)
	}
	if err := os.MkdirAll(flags.outDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	a, err := start(global)
	if err != nil {
		return err
	}
	defer a.close()

	gen := a.infra.Generation(a.cfg)

	var (
		mu       sync.Mutex
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(flags.concurrency)

	for _, path := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			target, err := generateOne(gctx, gen, path, flags)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", path, err))
				mu.Unlock()
				fmt.Fprintf(stderr, "FAIL %s: %v\n", path, err)
				return nil
			}

			fmt.Fprintf(stderr, "OK   %s -> %s\n", path, target)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(failures...)
}

func generateOne(ctx context.Context, gen generation.System, path string, flags *batchFlags) (string, error) {
	subject, err := loadSubject(path)
	if err != nil {
		return "", err
	}

	doc, err := gen.Generate(ctx, generation.Request{Subject: subject})
	if err != nil {
		return "", err
	}

	target := outputPath(flags.outDir, path, flags.html)
	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if err := writeDocument(f, subject, doc, flags.html); err != nil {
		return "", err
	}
	return filepath.Clean(target), nil
}
