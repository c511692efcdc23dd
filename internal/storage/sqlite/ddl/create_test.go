package ddl

import (
	"strings"
	"testing"

	"musiclake/internal/plan"
)

func TestDialect_FoldsSchema(t *testing.T) {
	t.Parallel()

	fqn := Dialect.Qualify("analytics", "users")
	if fqn != "analytics_users" {
		t.Fatalf("Qualify = %q, want analytics_users", fqn)
	}

	sql, err := Dialect.BuildCreateTableSQL(Dialect.TableDef(fqn, plan.Schema{
		{Name: "user_id", Type: plan.TypeString},
		{Name: `odd"name`, Type: plan.TypeInt64},
	}))
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	for _, part := range []string{`CREATE TABLE "analytics_users"`, `"user_id" TEXT`, `"odd""name" INTEGER`} {
		if !strings.Contains(sql, part) {
			t.Fatalf("sql %q missing %q", sql, part)
		}
	}
	if strings.Contains(sql, "NOT NULL") {
		t.Fatalf("derived columns must be nullable: %q", sql)
	}
}
