package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults used when neither the pipeline file nor the environment set a
// value.
const (
	DefaultJob        = "sparkify"
	DefaultInputRoot  = "s3a://udacity-dend/"
	DefaultOutputRoot = ""
	DefaultSongsDir   = "song_data"
	DefaultLogsDir    = "logs"
	DefaultLogPattern = "*.json"
	DefaultEngine     = "sqlite"
	DefaultTimezone   = "Local"
	DefaultReaders    = 8
	DefaultBatchSize  = 10000
)

// Default returns the pipeline the driver runs when no file is given: song
// data scanned recursively, logs read from direct children only.
func Default() Pipeline {
	return Pipeline{
		Job:        DefaultJob,
		InputRoot:  DefaultInputRoot,
		OutputRoot: DefaultOutputRoot,
		Songs:      SongsSource{Dir: DefaultSongsDir, Recursive: true},
		Logs:       LogsSource{Dir: DefaultLogsDir, Pattern: DefaultLogPattern},
		Parser:     Parser{Kind: "json", Options: Options{}},
		Engine:     Engine{Kind: DefaultEngine, Timezone: DefaultTimezone},
		Metrics:    Metrics{Backend: "none"},
		Runtime:    RuntimeConfig{ReaderWorkers: DefaultReaders, BatchSize: DefaultBatchSize},
	}
}

// Load reads the pipeline file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Pipeline, error) {
	p := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Pipeline{}, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(b, &p); err != nil {
			return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	ApplyEnv(&p, os.Getenv)
	return p, nil
}

// Decode unmarshals a YAML or JSON document into p. Keys absent from the
// document leave p's current values in place.
func Decode(b []byte, p *Pipeline) error {
	if err := yaml.Unmarshal(b, p); err != nil {
		return err
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return nil
}

// ApplyEnv overrides p from environment variables (12-factor style). getenv
// is os.Getenv in production.
func ApplyEnv(p *Pipeline, getenv func(string) string) {
	if v, ok := lookup(getenv, "ETL_JOB"); ok {
		p.Job = v
	}
	if v, ok := lookup(getenv, "ETL_INPUT_ROOT"); ok {
		p.InputRoot = v
	}
	if v, ok := lookup(getenv, "ETL_OUTPUT_ROOT"); ok {
		p.OutputRoot = v
	}
	if v, ok := lookup(getenv, "ETL_TIMEZONE"); ok {
		p.Engine.Timezone = v
	}
	if v, ok := lookup(getenv, "ETL_ENGINE_DSN"); ok {
		p.Engine.DSN = v
	}
	p.Runtime.ReaderWorkers = pickInt(getenvInt(getenv, "ETL_READER_WORKERS", 0), p.Runtime.ReaderWorkers)
	p.Runtime.BatchSize = pickInt(getenvInt(getenv, "ETL_BATCH_SIZE", 0), p.Runtime.BatchSize)
}

func lookup(getenv func(string) string, key string) (string, bool) {
	v := strings.TrimSpace(getenv(key))
	return v, v != ""
}

// getenvInt parses an integer environment variable, returning def when it is
// unset or malformed.
func getenvInt(getenv func(string) string, key string, def int) int {
	v, ok := lookup(getenv, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// pickInt returns v when positive, otherwise def.
func pickInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
