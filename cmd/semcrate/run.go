package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semcrate/consolidate"
	"github.com/c360studio/semcrate/export"
	"github.com/c360studio/semcrate/metric"
	"github.com/c360studio/semcrate/source"
)

// mergeSource is one --merge/--as/--name triple.
type mergeSource struct {
	ref      string
	folderID string
	name     string
}

// job is one consolidation run as requested on the command line.
type job struct {
	verb    string
	main    string
	merges  []mergeSource
	metrics *metric.Metrics
}

// outcome is a finished run.
type outcome struct {
	result   *consolidate.Result
	crateID  string
	source   string
	kind     source.Kind
	started  time.Time
	duration time.Duration
}

func (a *app) sourceOptions() source.Options {
	return source.Options{Fetcher: a.cfg.Fetch, Logger: a.logger}
}

// consolidate opens every source of j and runs the engine over them. Merged
// crates are mounted at their folder namespace so their own subcrates load
// from the right place.
func (a *app) consolidate(ctx context.Context, j job) (*outcome, error) {
	out := &outcome{source: j.main, started: time.Now()}

	main, err := source.Open(ctx, j.main, a.sourceOptions())
	if err != nil {
		return out, fmt.Errorf("open %s: %w", j.main, err)
	}
	defer main.Close()
	out.crateID = main.CrateID
	out.kind = main.Kind

	in := consolidate.Input{Graph: main.Document.Graph, Context: main.Document.Context}
	for _, m := range j.merges {
		o, err := source.Open(ctx, m.ref, a.sourceOptions())
		if err != nil {
			return out, fmt.Errorf("open %s: %w", m.ref, err)
		}
		defer o.Close()

		main.Loader.Mount(consolidate.NamespaceFromFolderID(m.folderID), o.Loader)
		in.Merges = append(in.Merges, consolidate.MergeCrate{
			Graph:    o.Document.Graph,
			FolderID: m.folderID,
			Name:     m.name,
		})
	}

	var observer consolidate.Observer
	if j.metrics != nil {
		observer = j.metrics
	}
	res, err := consolidate.Consolidate(ctx, in, main.Loader, a.cfg.ConsolidateOptions(a.logger, observer))
	out.duration = time.Since(out.started)
	if err != nil {
		return out, err
	}
	out.result = res
	return out, nil
}

// execute runs j, writes its output and summary and publishes it when
// configured.
func (a *app) execute(ctx context.Context, cmd *cobra.Command, j job) error {
	out, err := a.consolidate(ctx, j)
	if j.metrics != nil {
		var stats consolidate.Stats
		if out.result != nil {
			stats = out.result.Stats
		}
		j.metrics.RecordRun(stats, out.duration, err)
	}

	if a.cfg.NATS.URL != "" && out.crateID != "" {
		if perr := a.publish(ctx, out, err, j.metrics); perr != nil {
			if err != nil {
				a.logger.Warn("Failed to record run", slog.String("error", perr.Error()))
			} else {
				err = perr
			}
		}
	}
	if err != nil {
		return err
	}

	if err := a.writeOutput(cmd, out); err != nil {
		return err
	}

	s := out.result.Stats
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %d documents, %d total entities (%d merged, %d folders, %d subcrates skipped)\n",
		j.verb, s.DocumentsConsolidated, s.TotalEntities, s.MergedEntities, s.Folders, s.SubcratesSkipped)

	a.logger.Info("Consolidation complete",
		slog.String("crate_id", out.crateID),
		slog.Duration("duration", out.duration))
	return nil
}

func (a *app) writeOutput(cmd *cobra.Command, out *outcome) error {
	opts := a.cfg.ExportOptions()
	opts.Base = a.rdfBase(out)

	if a.flags.output == "" {
		if err := export.Write(cmd.OutOrStdout(), out.result.Document(), opts); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

	f, err := os.Create(a.flags.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.Write(f, out.result.Document(), opts); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote consolidated crate to %s\n", a.flags.output)
	return nil
}

// rdfBase is the crate URL for web crates. Local crates get a fresh arcp
// base.
func (a *app) rdfBase(out *outcome) string {
	if out.kind == source.KindURL {
		return out.crateID + "/"
	}
	return ""
}
