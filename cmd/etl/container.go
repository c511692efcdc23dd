// Package main wires the music lake pipeline end-to-end. This file keeps the
// CLI layer thin: it depends only on the registries of the storage, engine,
// parser and warehouse packages and never imports a backend directly.
package main

import (
	"context"
	"errors"
	"fmt"

	"musiclake/internal/columnar"
	"musiclake/internal/config"
	"musiclake/internal/datasource"
	"musiclake/internal/engine"
	"musiclake/internal/logging"
	"musiclake/internal/metrics"
	"musiclake/internal/metrics/datadog"
	"musiclake/internal/metrics/prompush"
	"musiclake/internal/parser"
	"musiclake/internal/source"
	"musiclake/internal/sparkify"
	"musiclake/internal/storage"
)

// Seams for tests.
var (
	openStoreFn     = datasource.Open
	openEngineFn    = engine.Open
	openWarehouseFn = storage.OpenWarehouse
)

// storeOptions maps the credential sections of p onto the object store
// options.
func storeOptions(p config.Pipeline) datasource.Options {
	return datasource.Options{
		S3: datasource.S3Options{
			AccessKeyID:     p.AWS.AccessKeyID,
			SecretAccessKey: p.AWS.SecretAccessKey,
			SessionToken:    p.AWS.SessionToken,
			Region:          p.AWS.Region,
			Endpoint:        p.AWS.Endpoint,
			UsePathStyle:    p.AWS.UsePathStyle,
		},
		GCS: datasource.GCSOptions{
			CredentialsFile: p.GCS.CredentialsFile,
			Endpoint:        p.GCS.Endpoint,
		},
	}
}

// newMetricsBackend returns nil when metrics are disabled.
func newMetricsBackend(m config.Metrics, job string) (metrics.Backend, error) {
	switch m.Backend {
	case "", "none":
		return nil, nil
	case "pushgateway":
		if m.PushgatewayURL == "" {
			return nil, errors.New("metrics.pushgateway_url is required")
		}
		return prompush.NewBackend(job, m.PushgatewayURL)
	case "datadog":
		return datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  m.Namespace,
			GlobalTags: m.Tags,
		})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
}

// run executes process_song_data then process_log_data. The log step joins
// against the song view registered by the first step, so the order is fixed.
func run(ctx context.Context, p config.Pipeline, log *logging.Logger) (err error) {
	opts := storeOptions(p)

	in, inPrefix, err := openStoreFn(ctx, p.InputRoot, opts)
	if err != nil {
		return fmt.Errorf("open input %q: %w", p.InputRoot, err)
	}
	defer in.Close()

	out, outPrefix, err := openStoreFn(ctx, p.OutputRoot, opts)
	if err != nil {
		return fmt.Errorf("open output %q: %w", p.OutputRoot, err)
	}
	defer out.Close()

	sess, err := openEngineFn(ctx, engine.Config{
		Kind:     p.Engine.Kind,
		DSN:      p.Engine.DSN,
		Timezone: p.Engine.Timezone,
	})
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close engine: %w", cerr)
		}
	}()

	pr, err := parser.New(p.Parser.Kind, p.Parser.Options)
	if err != nil {
		return fmt.Errorf("parser: %w", err)
	}

	t := &sparkify.Transformer{
		Session:   sess,
		Loader:    &source.Loader{Store: in, Parser: pr, Workers: p.Runtime.ReaderWorkers, Log: log},
		InputRoot: inPrefix,
		Output:    &columnar.Writer{Store: out, Root: outPrefix},
		Job:       p.Job,
		Log:       log,
	}

	if p.Warehouse.Kind != "" {
		wh, err := openWarehouseFn(ctx, storage.Config{Kind: p.Warehouse.Kind, DSN: p.Warehouse.DSN},
			p.Warehouse.Schema, p.Runtime.BatchSize, p.Job, log)
		if err != nil {
			return fmt.Errorf("open warehouse: %w", err)
		}
		defer wh.Close()
		t.Sink = wh
	}

	log.Info("run: starting",
		"job", p.Job, "input", p.InputRoot, "output", p.OutputRoot,
		"engine", p.Engine.Kind, "timezone", sess.Location().String(),
		"warehouse", p.Warehouse.Kind)

	songs := source.Spec{Dir: p.Songs.Dir, Pattern: source.DefaultPattern, Recursive: p.Songs.Recursive}
	if err := metrics.Timed(p.Job, "process_song_data", func() error {
		return t.ProcessSongData(ctx, songs)
	}); err != nil {
		return fmt.Errorf("process_song_data: %w", err)
	}

	logs := source.Spec{Dir: p.Logs.Dir, Pattern: p.Logs.Pattern, Recursive: p.Logs.Recursive}
	if err := metrics.Timed(p.Job, "process_log_data", func() error {
		return t.ProcessLogData(ctx, logs)
	}); err != nil {
		return fmt.Errorf("process_log_data: %w", err)
	}
	return nil
}
