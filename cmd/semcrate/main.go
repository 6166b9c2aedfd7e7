// Package main provides the semcrate binary entry point.
// Semcrate consolidates an RO-Crate and its nested subcrates into a single
// metadata document.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/semcrate/config"
	"github.com/c360studio/semstreams/pkg/errs"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semcrate"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitFailure)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

// exitCode maps invalid input to 2 and every other failure to 1.
func exitCode(err error) int {
	var usage *usageError
	if errs.IsInvalid(err) || errors.As(err, &usage) {
		return exitInvalid
	}
	return exitFailure
}

// usageError marks command-line mistakes reported by cobra.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// app holds state shared by all commands of one invocation.
type app struct {
	configPath string
	logLevel   string
	flags      runFlags

	logger *slog.Logger
	cfg    *config.Config
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Consolidate RO-Crate hierarchies into a single metadata file",
		Long: `Semcrate flattens an RO-Crate and every subcrate it references into one
ro-crate-metadata.json document.

Local identifiers are namespaced by the folder they came from, entities that
share a global identifier are merged, and each expanded subcrate becomes a
folder entity listing what it contributed.

Sources can be a crate directory, a metadata file, a zip archive or a URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.logger = newLogger(cmd.ErrOrStderr(), a.logLevel)
			slog.SetDefault(a.logger)
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		consolidateCmd(a),
		mergeCmd(a),
		watchCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// exactArgs is cobra.ExactArgs with usage classification.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig builds the effective configuration for cmd.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.NewLoader(a.logger).Load(a.configPath)
	if err != nil {
		return err
	}
	a.flags.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return errs.WrapInvalid(err, "semcrate", cmd.Name(), "apply flags")
	}
	a.cfg = cfg
	return nil
}
