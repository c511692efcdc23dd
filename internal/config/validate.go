// Package config provides configuration models and helpers for the pipeline.
//
// This file adds a linter/validator for Pipeline values. Struct tags are
// checked with go-playground/validator; cross-field rules are hand-written.
// Everything is reported as a list of issues (errors and warnings) that the
// CLI prints before deciding whether to run.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "engine.kind",
// "warehouse.dsn"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue blocks execution.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	vOnce sync.Once
	v     *validator.Validate
)

// structValidator returns the shared validator, reporting fields by their
// yaml tag names so paths match the config file.
func structValidator() *validator.Validate {
	vOnce.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("yaml")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
	})
	return v
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Callers may decide whether to treat
// warnings as fatal or not.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if err := structValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []Issue{{Severity: SeverityError, Path: "", Message: err.Error()}}
		}
		for _, fe := range verrs {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fieldPath(fe.Namespace()),
				Message:  tagMessage(fe),
			})
		}
	}

	issues = append(issues, validateEngine(p.Engine)...)
	issues = append(issues, validateSources(p)...)
	issues = append(issues, validateWarehouse(p.Warehouse)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

// fieldPath turns "Pipeline.engine.kind" into "engine.kind".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "url":
		return fmt.Sprintf("must be an absolute URL, got %q", fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

func validateEngine(e Engine) []Issue {
	var issues []Issue
	tz := strings.TrimSpace(e.Timezone)
	if tz != "" && tz != "Local" {
		if _, err := time.LoadLocation(tz); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "engine.timezone",
				Message:  fmt.Sprintf("unknown time zone %q", tz),
			})
		}
	}
	if tz == "" || tz == "Local" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "engine.timezone",
			Message:  "time dimension uses the host zone; results differ between machines",
		})
	}
	return issues
}

func validateSources(p Pipeline) []Issue {
	var issues []Issue
	if !p.Songs.Recursive {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "songs.recursive",
			Message:  "song data is normally nested several directories deep; only direct children will be read",
		})
	}
	if strings.TrimSpace(p.OutputRoot) == strings.TrimSpace(p.InputRoot) && p.InputRoot != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output_root",
			Message:  "output_root equals input_root; table directories are overwritten in place",
		})
	}
	return issues
}

func validateWarehouse(w Warehouse) []Issue {
	if w.Kind == "" {
		return nil
	}
	if strings.TrimSpace(w.DSN) == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "warehouse.dsn",
			Message:  fmt.Sprintf("warehouse kind %q requires a dsn", w.Kind),
		}}
	}
	return nil
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires an agent address",
			}}
		}
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			return []Issue{{
				Severity: SeverityWarning,
				Path:     "metrics.pushgateway_url",
				Message:  "no pushgateway_url; http://localhost:9091 will be used",
			}}
		}
	}
	return nil
}
