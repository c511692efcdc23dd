// Package sparkify builds the song play star schema: the song catalog
// transformer derives songs and artists, the event log transformer derives
// users, time and songplays. Both run on a caller-owned engine session and
// write through a columnar writer.
package sparkify

import (
	"context"
	"fmt"
	"time"

	"musiclake/internal/columnar"
	"musiclake/internal/datasource"
	"musiclake/internal/engine"
	"musiclake/internal/logging"
	"musiclake/internal/metrics"
	"musiclake/internal/plan"
	"musiclake/internal/source"
)

// Sink receives every derived table after its files are written.
type Sink interface {
	Load(ctx context.Context, table string, res *engine.Result) error
}

// Transformer holds what both transformers share. The session is used
// sequentially and is not closed here.
type Transformer struct {
	Session engine.Session
	Loader  *source.Loader
	// InputRoot is the prefix of song_data/ and the log directory inside
	// Loader.Store.
	InputRoot string
	Output    *columnar.Writer
	// Sink is optional.
	Sink Sink
	Job  string
	Log  *logging.Logger
}

// ProcessSongData reads the song metadata selected by spec into the
// songs_json view and writes the songs and artists tables.
func (t *Transformer) ProcessSongData(ctx context.Context, spec source.Spec) error {
	if err := t.register(ctx, SongsView, spec, SongSchema); err != nil {
		return err
	}
	for _, tbl := range []Table{Songs, Artists} {
		if err := t.build(ctx, tbl); err != nil {
			return err
		}
	}
	return nil
}

// ProcessLogData reads the activity logs selected by spec into the
// logs_json view and writes the users, time and songplays tables. The
// songs_json view must already be registered.
func (t *Transformer) ProcessLogData(ctx context.Context, spec source.Spec) error {
	if _, ok := t.Session.Relation(SongsView); !ok {
		return fmt.Errorf("songplays: view %s is not registered", SongsView)
	}
	if err := t.register(ctx, LogsView, spec, LogSchema); err != nil {
		return err
	}
	for _, tbl := range []Table{Users, Time, Songplays} {
		if err := t.build(ctx, tbl); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transformer) log() *logging.Logger {
	if t.Log == nil {
		return logging.Nop()
	}
	return t.Log
}

// register discovers, decodes and registers one input dataset.
func (t *Transformer) register(ctx context.Context, view string, spec source.Spec, hint plan.Schema) error {
	var res source.Result
	err := metrics.Timed(t.Job, view+".read", func() error {
		objs, err := source.Discover(ctx, t.Loader.Store, t.InputRoot, spec)
		if err != nil {
			return err
		}
		res, err = t.Loader.Load(ctx, objs)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: read: %w", view, err)
	}
	metrics.RecordRows(t.Job, view, metrics.KindFiles, int64(res.Files))
	metrics.RecordRows(t.Job, view, metrics.KindRead, int64(len(res.Records)))
	metrics.RecordRows(t.Job, view, metrics.KindCorrupt, int64(res.Corrupt))

	var schema plan.Schema
	err = metrics.Timed(t.Job, view+".register", func() error {
		var err error
		schema, err = t.Session.RegisterView(ctx, view, res.Records, hint)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: register: %w", view, err)
	}
	t.log().Info("view registered",
		"view", view,
		"dir", datasource.Join(t.InputRoot, spec.Dir),
		"files", res.Files,
		"rows", len(res.Records),
		"corrupt", res.Corrupt,
		"columns", len(schema),
	)
	return nil
}

// build materialises tbl in the session, writes it and hands it to the sink.
func (t *Transformer) build(ctx context.Context, tbl Table) error {
	start := time.Now()
	if _, err := t.Session.CreateTable(ctx, tbl.Name, tbl.Plan()); err != nil {
		metrics.RecordStep(t.Job, tbl.Name+".create", err, time.Since(start))
		return fmt.Errorf("%s: create: %w", tbl.Name, err)
	}
	res, err := t.Session.Query(ctx, plan.Scan(tbl.Name))
	metrics.RecordStep(t.Job, tbl.Name+".create", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: query: %w", tbl.Name, err)
	}

	var stats columnar.Stats
	err = metrics.Timed(t.Job, tbl.Name+".write", func() error {
		var err error
		stats, err = t.Output.Write(ctx, tbl.Dir, res, tbl.PartitionBy...)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: write: %w", tbl.Name, err)
	}
	metrics.RecordRows(t.Job, tbl.Name, metrics.KindWritten, int64(stats.Rows))
	metrics.RecordRows(t.Job, tbl.Name, metrics.KindParts, int64(stats.Partitions))
	t.log().Info("table written",
		"table", tbl.Name,
		"prefix", t.Output.TablePrefix(tbl.Dir),
		"rows", stats.Rows,
		"partitions", stats.Partitions,
		"files", stats.Files,
	)

	if t.Sink == nil {
		return nil
	}
	err = metrics.Timed(t.Job, tbl.Name+".load", func() error {
		return t.Sink.Load(ctx, tbl.Name, res)
	})
	if err != nil {
		return fmt.Errorf("%s: load: %w", tbl.Name, err)
	}
	metrics.RecordRows(t.Job, tbl.Name, metrics.KindLoaded, int64(len(res.Rows)))
	return nil
}
