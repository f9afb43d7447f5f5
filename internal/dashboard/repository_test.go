package dashboard

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The reporting queries are plain SQL against the primary schema, so
// drift between a query and the migration only surfaces at runtime.
// This pins the sale_items column references to the DDL.
func TestTopProductsQueryColumnsExistInSchema(t *testing.T) {
	ddl, err := os.ReadFile("../../migrations/0001_init.sql")
	require.NoError(t, err)

	table := extractTableDDL(t, string(ddl), "sale_items")

	refs := regexp.MustCompile(`\bsi\.([a-z_]+)`).FindAllStringSubmatch(topProductsQuery, -1)
	require.NotEmpty(t, refs)
	for _, ref := range refs {
		column := ref[1]
		require.Regexp(t, `(?m)^\s+`+column+`\s`, table, "sale_items has no column %q", column)
	}
}

func extractTableDDL(t *testing.T, ddl, table string) string {
	t.Helper()
	marker := "CREATE TABLE IF NOT EXISTS " + table + " ("
	start := strings.Index(ddl, marker)
	require.GreaterOrEqual(t, start, 0, "no DDL for table %q", table)
	rest := ddl[start:]
	end := strings.Index(rest, ");")
	require.GreaterOrEqual(t, end, 0)
	return rest[:end]
}
