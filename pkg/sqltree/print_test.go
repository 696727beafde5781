package sqltree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlshift/pkg/dialect"
)

func TestPrint_ReplacesSingleRef(t *testing.T) {
	tree := mustParse(t, "SELECT id FROM raw.events WHERE id > 5")

	refs := tree.TableRefs()
	require.Len(t, refs, 1, "expected one table ref")
	refs[0].SetParts([]string{"warehouse", "events_v2"})

	assert.Equal(t, "SELECT id FROM warehouse.events_v2 WHERE id > 5", tree.Print(),
		"only the table name should change")
}

func TestPrint_ReplacesMultipleRefs(t *testing.T) {
	tree := mustParse(t, "SELECT * FROM raw.events e JOIN raw.users u ON e.uid = u.id")

	for _, ref := range tree.TableRefs() {
		switch ref.Path() {
		case "raw.events":
			ref.SetParts([]string{"warehouse", "events_v2"})
		case "raw.users":
			ref.SetParts([]string{"warehouse", "users_v3"})
		}
	}

	assert.Equal(t,
		"SELECT * FROM warehouse.events_v2 e JOIN warehouse.users_v3 u ON e.uid = u.id",
		tree.Print(), "both refs replaced, aliases kept")
}

func TestPrint_PreservesCommentsAndWhitespace(t *testing.T) {
	sql := "select  id ,\n  name -- cols\nfrom raw.events  /* src */ where id>0"
	tree := mustParse(t, sql)

	tree.TableRefs()[0].SetParts([]string{"warehouse", "events_v2"})

	assert.Equal(t,
		"select  id ,\n  name -- cols\nfrom warehouse.events_v2  /* src */ where id>0",
		tree.Print(), "formatting outside the span is untouched")
}

func TestPrint_QuotesReservedAndSpacedParts(t *testing.T) {
	tree := mustParse(t, "SELECT a FROM old_table")

	tree.TableRefs()[0].SetParts([]string{"prod", "my table"})
	assert.Equal(t, `SELECT a FROM prod."my table"`, tree.Print(),
		"parts needing quoting are quoted")
}

func TestPrint_DatabricksBackticks(t *testing.T) {
	tree, err := Parse("SELECT a FROM old_table", dialect.MustGet("databricks"))
	require.NoError(t, err, "expected parse to succeed")

	tree.TableRefs()[0].SetParts([]string{"prod", "my table"})
	assert.Equal(t, "SELECT a FROM prod.`my table`", tree.Print(),
		"databricks quotes with backticks")
}

func TestPrint_ReplacementInSubqueryAndCTE(t *testing.T) {
	tree := mustParse(t, "WITH r AS (SELECT * FROM raw.events) SELECT * FROM r WHERE x IN (SELECT y FROM raw.users)")

	for _, ref := range tree.TableRefs() {
		switch ref.Path() {
		case "raw.events":
			ref.SetParts([]string{"warehouse", "events_v2"})
		case "raw.users":
			ref.SetParts([]string{"warehouse", "users_v3"})
		}
	}

	assert.Equal(t,
		"WITH r AS (SELECT * FROM warehouse.events_v2) SELECT * FROM r WHERE x IN (SELECT y FROM warehouse.users_v3)",
		tree.Print(), "nested refs replaced in place")
}

func TestPrint_Idempotent(t *testing.T) {
	tree := mustParse(t, "SELECT id FROM raw.events")
	tree.TableRefs()[0].SetParts([]string{"warehouse", "events_v2"})
	first := tree.Print()

	reparsed := mustParse(t, first)
	assert.Equal(t, first, reparsed.Print(), "printing an untouched reparse is stable")
}
