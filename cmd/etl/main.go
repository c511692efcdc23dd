package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"musiclake/internal/config"
	"musiclake/internal/logging"
	"musiclake/internal/metrics"

	// Register every object store, engine, parser and warehouse backend; the
	// pipeline file picks which ones a run uses.
	_ "musiclake/internal/datasource/all"
	_ "musiclake/internal/engine/sqlite"
	_ "musiclake/internal/parser/json"
	_ "musiclake/internal/storage/all"
)

// main loads the pipeline config, installs the logger and metrics backend and
// runs the song catalog and event log transformers in sequence.
func main() {
	var (
		cfgPath  string
		logMode  string
		validate bool
	)
	flag.StringVar(&cfgPath, "config", "", "pipeline config path (YAML or JSON); empty runs the built-in defaults")
	flag.StringVar(&logMode, "log-mode", "development", "log output: development or production")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.Parse()

	log, err := logging.New(logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	p, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("load config", "path", cfgPath, "err", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			log.Error("config", "path", iss.Path, "issue", iss.Message)
		} else {
			log.Warn("config", "path", iss.Path, "issue", iss.Message)
		}
	}
	if config.HasErrors(issues) {
		log.Fatal("configuration is invalid", "config", cfgPath)
	}
	if validate {
		log.Info("configuration is valid", "config", cfgPath)
		return
	}

	if b, err := newMetricsBackend(p.Metrics, p.Job); err != nil {
		log.Warn("metrics: backend disabled", "backend", p.Metrics.Backend, "err", err)
	} else if b != nil {
		metrics.SetBackend(b)
		log.Info("metrics: enabled", "backend", p.Metrics.Backend, "job", p.Job)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runErr := run(ctx, p, log)
	if err := metrics.Flush(); err != nil {
		log.Warn("metrics: flush", "err", err)
	}
	if runErr != nil {
		log.Error("run failed", "err", runErr, "elapsed", time.Since(start).Truncate(time.Millisecond))
		log.Sync()
		os.Exit(1)
	}
	log.Info("run completed", "elapsed", time.Since(start).Truncate(time.Millisecond))
}
