package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/vito/achronyme/pkg/ach"
	"github.com/vito/achronyme/pkg/ioctx"
)

// Options holds the flags shared by every subcommand.
type Options struct {
	Debug  bool
	Config string
}

func main() {
	var opts Options

	rootCmd := &cobra.Command{
		Use:   "achronyme",
		Short: "Achronyme compute engine tools",
		Long: `Tools for working with the Achronyme compute engine: inspect and
verify environment snapshots, solve linear programs and schedule project
networks from TOML descriptions, and manage a snapshot catalog.`,
		Example: `  # Show what a snapshot contains
  achronyme info session.ach

  # Check snapshots for corruption
  achronyme verify *.ach

  # Solve a linear program
  achronyme solve production.toml

  # Schedule a project network
  achronyme pert launch.toml`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := setupLogging(cmd.ErrOrStderr(), opts.Debug)
			cmd.SetContext(ioctx.LoggerToContext(cmd.Context(), logger))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.Config, "config", "", "Path to achronyme.toml (searched upward from the working directory by default)")

	rootCmd.AddCommand(
		infoCmd(),
		verifyCmd(&opts),
		solveCmd(&opts),
		pertCmd(),
		catalogCmd(),
		builtinsCmd(),
	)

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(w),
	}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig resolves --config, falling back to the nearest achronyme.toml
// and then to the defaults.
func loadConfig(ctx context.Context, opts *Options) (*ach.Config, error) {
	logger := ioctx.LoggerFromContext(ctx)
	if opts.Config != "" {
		logger.Debug("loading config", "path", opts.Config)
		return ach.LoadConfig(opts.Config)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path, cfg, err := ach.FindProjectConfig(cwd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		logger.Debug("no achronyme.toml found, using defaults", "dir", cwd)
		return ach.DefaultConfig(), nil
	}
	logger.Debug("loaded project config", "path", path)
	return cfg, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}
