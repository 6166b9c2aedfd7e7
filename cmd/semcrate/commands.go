package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semcrate/consolidate"
	"github.com/c360studio/semcrate/metric"
	"github.com/c360studio/semcrate/source"
	"github.com/c360studio/semcrate/watch"
	"github.com/c360studio/semstreams/pkg/errs"
	"github.com/c360studio/semstreams/pkg/security"
)

func consolidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate <source>",
		Short: "Consolidate a crate and its nested subcrates",
		Long: `Consolidate a crate and every subcrate it references, recursively.

<source> is a crate directory, an ro-crate-metadata.json file, a zip archive
or a URL. Subcrates that cannot be loaded are kept as plain references.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			return a.execute(cmd.Context(), cmd, job{verb: "Consolidated", main: args[0]})
		},
	}
	a.flags.bind(cmd)
	return cmd
}

func mergeCmd(a *app) *cobra.Command {
	var (
		sources   []string
		folderIDs []string
		names     []string
	)

	cmd := &cobra.Command{
		Use:   "merge <main> --merge <source> --as <folder-id> [--name <name>]...",
		Short: "Merge independent crates into folders of a main crate",
		Long: `Merge independent crates into folders of a main crate.

Each --merge needs a matching --as giving the destination folder id, for
example ./imported/. Names are optional and apply in order.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(sources) != len(folderIDs) {
				return errs.WrapInvalid(
					fmt.Errorf("number of --merge (%d) must match number of --as (%d)", len(sources), len(folderIDs)),
					"semcrate", "merge", "parse arguments")
			}
			if len(names) > len(sources) {
				return errs.WrapInvalid(
					fmt.Errorf("more --name (%d) than --merge (%d)", len(names), len(sources)),
					"semcrate", "merge", "parse arguments")
			}

			j := job{verb: "Merged", main: args[0]}
			for i, src := range sources {
				if err := consolidate.ValidateFolderID(folderIDs[i]); err != nil {
					return errs.WrapInvalid(fmt.Errorf("--as %q: %w", folderIDs[i], err), "semcrate", "merge", "parse arguments")
				}
				m := mergeSource{ref: src, folderID: folderIDs[i]}
				if i < len(names) {
					m.name = names[i]
				}
				j.merges = append(j.merges, m)
			}

			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			return a.execute(cmd.Context(), cmd, j)
		},
	}
	a.flags.bind(cmd)
	cmd.Flags().StringArrayVar(&sources, "merge", nil, "Crate to merge (path or URL), repeatable")
	cmd.Flags().StringArrayVar(&folderIDs, "as", nil, "Folder id for the matching --merge, repeatable")
	cmd.Flags().StringArrayVar(&names, "name", nil, "Name for the matching merged folder, repeatable")
	return cmd
}

func watchCmd(a *app) *cobra.Command {
	var (
		metricsPort int
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-consolidate a crate directory whenever its metadata changes",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-port") {
				a.cfg.Metrics.Port = metricsPort
			}
			if cmd.Flags().Changed("debounce") {
				a.cfg.Watch.Debounce = debounce
			}
			return a.watch(cmd.Context(), cmd, args[0])
		},
	}
	a.flags.bind(cmd)
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before re-consolidating")
	return cmd
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command, dir string) error {
	kind, err := source.Detect(dir)
	if err != nil {
		return err
	}
	if kind != source.KindDirectory {
		return errs.WrapInvalid(fmt.Errorf("%s is not a directory", dir), "semcrate", "watch", "check source")
	}

	reg, err := metric.NewRegistry()
	if err != nil {
		return err
	}
	if a.cfg.Metrics.Port != 0 {
		srv, err := metric.NewServer(a.cfg.Metrics.Port, a.cfg.Metrics.Path, reg, security.DefaultConfig())
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Start(); err != nil {
				a.logger.Error("Metrics server stopped", slog.String("error", err.Error()))
			}
		}()
		defer func() { _ = srv.Stop() }()
		a.logger.Info("Serving metrics", slog.String("address", srv.Address()))
	}

	j := job{verb: "Consolidated", main: dir, metrics: reg.Crate}
	run := func(ctx context.Context, _ []string) error {
		return a.execute(ctx, cmd, j)
	}

	// A broken crate at startup is reported and then watched for a fix.
	if err := run(ctx, nil); err != nil {
		a.logger.Warn("Initial consolidation failed", slog.String("error", err.Error()))
	}

	w, err := watch.New(watch.Config{Root: dir, Debounce: a.cfg.Watch.Debounce, Logger: a.logger}, run)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			a.logger.Debug("Watch run finished",
				slog.Any("changed", ev.Changed),
				slog.Duration("duration", ev.Duration))
		}
	}
}
