// Command caduceus drafts protocol documents from the command line. It
// shares configuration and session backends with the HTTP service, so a
// session started by one can be resumed by the other.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/caduceus/internal/config"
	"github.com/JaimeStill/caduceus/internal/infrastructure"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "caduceus",
		Short:         "Staged protocol generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.BaseConfigFile, "Config file path (TOML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		generateCmd(flags),
		batchCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.LoadFile(flags.configPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "caduceus version %s\n", cfg.Version)
				return nil
			},
		},
	)

	return cmd
}

// app is the started infrastructure of one command invocation.
type app struct {
	cfg   *config.Config
	infra *infrastructure.Infrastructure
}

func start(flags *globalFlags) (*app, error) {
	cfg, err := config.LoadFile(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(flags.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", flags.logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	infra, err := infrastructure.NewWithLogger(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := infra.Start(); err != nil {
		return nil, err
	}

	infra.Lifecycle.WaitForStartup()
	if pending := infra.Lifecycle.Pending(); len(pending) > 0 {
		infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, fmt.Errorf("systems not ready: %v", pending)
	}

	return &app{cfg: cfg, infra: infra}, nil
}

func (a *app) close() {
	if err := a.infra.Lifecycle.Shutdown(a.cfg.ShutdownTimeoutDuration()); err != nil {
		a.infra.Logger.Error("shutdown failed", "error", err)
	}
}
