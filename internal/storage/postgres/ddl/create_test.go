package ddl

import (
	"context"
	"strings"
	"testing"

	"musiclake/internal/plan"
)

// TestQuoteIdent verifies Postgres identifier quoting and escaping.
func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "name", want: `"name"`},
		{name: "empty", in: "", want: `""`},
		{name: "with space", in: "user name", want: `"user name"`},
		{name: "with double quote", in: `weird"name`, want: `"weird""name"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := quoteIdent(tt.in); got != tt.want {
				t.Fatalf("quoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestDialect_Recreate checks the statements issued for a songplays table in
// a dedicated schema.
func TestDialect_Recreate(t *testing.T) {
	t.Parallel()

	schema := plan.Schema{
		{Name: "start_time", Type: plan.TypeInt64},
		{Name: "year", Type: plan.TypeInt64},
		{Name: "user_id", Type: plan.TypeString},
		{Name: "latitude", Type: plan.TypeFloat64},
	}
	var got []string
	err := Dialect.Recreate(context.Background(), func(_ context.Context, s string) error {
		got = append(got, s)
		return nil
	}, Dialect.Qualify("analytics", "songplays"), schema)
	if err != nil {
		t.Fatalf("Recreate: %v", err)
	}

	want := []string{
		`CREATE SCHEMA IF NOT EXISTS "analytics"`,
		`DROP TABLE IF EXISTS "analytics"."songplays"`,
		"CREATE TABLE \"analytics\".\"songplays\" (\n" +
			"  \"start_time\" BIGINT,\n" +
			"  \"year\" BIGINT,\n" +
			"  \"user_id\" TEXT,\n" +
			"  \"latitude\" DOUBLE PRECISION\n)",
	}
	if strings.Join(got, ";") != strings.Join(want, ";") {
		t.Fatalf("statements:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}
