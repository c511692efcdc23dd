package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

// validUTC is the default pipeline pinned to UTC so the host-zone warning
// does not fire.
func validUTC() Pipeline {
	p := Default()
	p.Engine.Timezone = "UTC"
	p.OutputRoot = "out/"
	return p
}

/*
TestValidatePipeline_MissingJob verifies that a missing or empty Job field
produces a SeverityError with path "job".
*/
func TestValidatePipeline_MissingJob(t *testing.T) {
	p := validUTC()
	p.Job = ""

	issues := ValidatePipeline(p)

	if !hasIssue(t, issues, SeverityError, "job", "must not be empty") {
		t.Fatalf("expected SeverityError for job; got issues: %+v", issues)
	}
	if !HasErrors(issues) {
		t.Fatalf("HasErrors = false; want true")
	}
}

/*
TestValidatePipeline_ValidMinimal verifies that the defaults pinned to UTC
produce no issues (errors or warnings).
*/
func TestValidatePipeline_ValidMinimal(t *testing.T) {
	if issues := ValidatePipeline(validUTC()); len(issues) != 0 {
		t.Fatalf("expected no issues; got %+v", issues)
	}
}

/*
TestValidatePipeline_Cases covers struct-tag and cross-field rules.
*/
func TestValidatePipeline_Cases(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
		substr string
	}{
		{
			name:   "unknown engine kind",
			mutate: func(p *Pipeline) { p.Engine.Kind = "spark" },
			sev:    SeverityError, path: "engine.kind", substr: "one of [sqlite]",
		},
		{
			name:   "unknown parser kind",
			mutate: func(p *Pipeline) { p.Parser.Kind = "csv" },
			sev:    SeverityError, path: "parser.kind", substr: "one of [json]",
		},
		{
			name:   "empty input root",
			mutate: func(p *Pipeline) { p.InputRoot = "" },
			sev:    SeverityError, path: "input_root", substr: "must not be empty",
		},
		{
			name:   "empty log pattern",
			mutate: func(p *Pipeline) { p.Logs.Pattern = "" },
			sev:    SeverityError, path: "logs.pattern", substr: "must not be empty",
		},
		{
			name:   "bad timezone",
			mutate: func(p *Pipeline) { p.Engine.Timezone = "Mars/Olympus" },
			sev:    SeverityError, path: "engine.timezone", substr: "unknown time zone",
		},
		{
			name:   "host timezone",
			mutate: func(p *Pipeline) { p.Engine.Timezone = "Local" },
			sev:    SeverityWarning, path: "engine.timezone", substr: "host zone",
		},
		{
			name:   "warehouse without dsn",
			mutate: func(p *Pipeline) { p.Warehouse.Kind = "postgres" },
			sev:    SeverityError, path: "warehouse.dsn", substr: "requires a dsn",
		},
		{
			name:   "unknown warehouse",
			mutate: func(p *Pipeline) { p.Warehouse = Warehouse{Kind: "oracle", DSN: "x"} },
			sev:    SeverityError, path: "warehouse.kind", substr: "one of",
		},
		{
			name:   "datadog without addr",
			mutate: func(p *Pipeline) { p.Metrics.Backend = "datadog" },
			sev:    SeverityError, path: "metrics.datadog_addr", substr: "agent address",
		},
		{
			name:   "pushgateway without url",
			mutate: func(p *Pipeline) { p.Metrics.Backend = "pushgateway" },
			sev:    SeverityWarning, path: "metrics.pushgateway_url", substr: "localhost:9091",
		},
		{
			name:   "negative workers",
			mutate: func(p *Pipeline) { p.Runtime.ReaderWorkers = -1 },
			sev:    SeverityError, path: "runtime.reader_workers", substr: ">= 0",
		},
		{
			name:   "bad s3 endpoint",
			mutate: func(p *Pipeline) { p.AWS.Endpoint = "not a url" },
			sev:    SeverityError, path: "aws.endpoint", substr: "absolute URL",
		},
		{
			name:   "songs not recursive",
			mutate: func(p *Pipeline) { p.Songs.Recursive = false },
			sev:    SeverityWarning, path: "songs.recursive", substr: "direct children",
		},
		{
			name:   "output equals input",
			mutate: func(p *Pipeline) { p.OutputRoot = p.InputRoot },
			sev:    SeverityWarning, path: "output_root", substr: "overwritten in place",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validUTC()
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.substr) {
				t.Fatalf("missing %s at %s containing %q; got %+v", tc.sev, tc.path, tc.substr, issues)
			}
		})
	}
}

func TestIssue_Error(t *testing.T) {
	iss := Issue{Severity: SeverityError, Path: "engine.kind", Message: "bad"}
	if got, want := iss.Error(), "error at engine.kind: bad"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
