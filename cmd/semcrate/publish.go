package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semcrate/graph"
	"github.com/c360studio/semcrate/metric"
	"github.com/c360studio/semcrate/storage"
	"github.com/c360studio/semstreams/pkg/errs"
)

// crateStore is where consolidated crates are published.
type crateStore interface {
	PutCrate(ctx context.Context, c *storage.Crate) (storage.RecordID, error)
	RecordRun(ctx context.Context, r *storage.Run) (storage.RecordID, error)
	graph.Publisher
}

// natsStore combines KV storage with core NATS publishing.
type natsStore struct {
	*storage.Store
	*nats.Conn
}

// openStore connects to NATS. Tests replace it.
var openStore = func(ctx context.Context, url string, timeout time.Duration) (crateStore, func(), error) {
	conn, err := nats.Connect(url, nats.Timeout(timeout), nats.Name("semcrate"))
	if err != nil {
		return nil, nil, errs.WrapTransient(err, "semcrate", "publish", "connect to NATS")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, errs.WrapFatal(err, "semcrate", "publish", "create JetStream context")
	}

	store, err := storage.NewStore(ctx, js)
	if err != nil {
		conn.Close()
		return nil, nil, errs.WrapTransient(err, "semcrate", "publish", "initialize storage")
	}
	closeFn := func() {
		_ = conn.Flush()
		conn.Close()
	}
	return natsStore{Store: store, Conn: conn}, closeFn, nil
}

// publish records the run and, when it succeeded, the consolidated crate.
// Published graph messages are counted on metrics when it is not nil.
func (a *app) publish(ctx context.Context, out *outcome, runErr error, metrics *metric.Metrics) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.NATS.Timeout)
	defer cancel()

	store, closeFn, err := openStore(ctx, a.cfg.NATS.URL, a.cfg.NATS.Timeout)
	if err != nil {
		return err
	}
	defer closeFn()

	run := &storage.Run{
		CrateID:   out.crateID,
		Source:    out.source,
		Duration:  out.duration,
		StartedAt: out.started,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	} else {
		run.Stats = out.result.Stats
	}

	if runErr == nil {
		var buf bytes.Buffer
		if err := out.result.Document().Encode(&buf, false); err != nil {
			return fmt.Errorf("encode crate: %w", err)
		}
		id, err := store.PutCrate(ctx, &storage.Crate{
			CrateID:  out.crateID,
			Source:   out.source,
			Document: json.RawMessage(bytes.TrimSpace(buf.Bytes())),
			Stats:    out.result.Stats,
		})
		if err != nil {
			return errs.WrapTransient(err, "semcrate", "publish", "store crate")
		}
		a.logger.Info("Published crate",
			slog.String("id", id.String()),
			slog.String("crate_id", out.crateID))

		if subject := a.cfg.NATS.GraphSubject; subject != "" {
			msgs := graph.Messages(out.crateID, out.result.Document(), a.rdfBase(out), time.Now())
			if err := graph.Publish(ctx, store, subject, msgs); err != nil {
				return errs.WrapTransient(err, "semcrate", "publish", "publish graph entities")
			}
			if metrics != nil {
				metrics.RecordPublished(subject, len(msgs))
			}
			a.logger.Debug("Published graph entities", slog.Int("count", len(msgs)), slog.String("subject", subject))
		}
	}

	if _, err := store.RecordRun(ctx, run); err != nil {
		return errs.WrapTransient(err, "semcrate", "publish", "record run")
	}
	return nil
}
