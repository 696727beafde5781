package sqltree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlshift/pkg/dialect"
)

func mustParse(t *testing.T, sql string) *Tree {
	t.Helper()
	tree, err := Parse(sql, dialect.MustGet("duckdb"))
	require.NoError(t, err, "expected %q to parse", sql)
	return tree
}

func tablePaths(tree *Tree) []string {
	var paths []string
	for _, ref := range tree.TableRefs() {
		paths = append(paths, ref.Path())
	}
	return paths
}

func TestParse_SimpleSelect(t *testing.T) {
	tree := mustParse(t, "SELECT id, name FROM users")

	stmts := tree.Statements()
	require.Len(t, stmts, 1, "expected one statement")
	assert.Equal(t, KindSelect, stmts[0].Kind(), "unexpected statement kind")
	assert.Equal(t, []string{"users"}, tablePaths(tree), "unexpected table refs")
}

func TestParse_QualifiedNames(t *testing.T) {
	tree := mustParse(t, "SELECT * FROM prod.raw.events e JOIN raw.users ON e.user_id = users.id")

	assert.Equal(t, []string{"prod.raw.events", "raw.users"}, tablePaths(tree),
		"unexpected table refs")

	refs := tree.TableRefs()
	assert.Equal(t, []string{"prod", "raw", "events"}, refs[0].Parts, "unexpected parts")
	assert.Equal(t, "events", refs[0].Name(), "unexpected final part")
}

func TestParse_TableRefSpans(t *testing.T) {
	sql := "SELECT a FROM raw.events WHERE a > 1"
	tree := mustParse(t, sql)

	refs := tree.TableRefs()
	require.Len(t, refs, 1, "expected one table ref")
	assert.Equal(t, "raw.events", sql[refs[0].Start:refs[0].End], "span should cover the dotted name")
}

func TestParse_QuotedIdentifiers(t *testing.T) {
	tree := mustParse(t, `SELECT x FROM "My Schema"."My Table"`)

	refs := tree.TableRefs()
	require.Len(t, refs, 1, "expected one table ref")
	assert.Equal(t, []string{"My Schema", "My Table"}, refs[0].Parts, "quotes should be stripped")
}

func TestParse_Stars(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want int
	}{
		{"bare star", "SELECT * FROM t", 1},
		{"qualified star", "SELECT t.* FROM t", 1},
		{"two stars", "SELECT a.*, b.* FROM a, b", 2},
		{"count star is not a projection", "SELECT COUNT(*) FROM t", 0},
		{"multiplication", "SELECT price * 2 FROM t", 0},
		{"star in subquery", "SELECT x FROM (SELECT * FROM t)", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.sql)
			assert.Len(t, tree.Stars(), tt.want, "unexpected star count")
		})
	}
}

func TestParse_Limit(t *testing.T) {
	sel := func(sql string) *SelectStmt {
		tree := mustParse(t, sql)
		stmt, ok := tree.Statements()[0].(*SelectStmt)
		require.True(t, ok, "expected a select statement")
		return stmt
	}

	assert.False(t, sel("SELECT a FROM t").HasLimit, "no limit written")
	assert.True(t, sel("SELECT a FROM t LIMIT 10").HasLimit, "limit written")
	assert.True(t, sel("SELECT a FROM t ORDER BY a LIMIT 10 OFFSET 5").HasLimit, "limit with offset")
}

func TestParse_SetOperationLimitPropagates(t *testing.T) {
	tree := mustParse(t, "SELECT a FROM t UNION ALL SELECT a FROM u LIMIT 10")

	stmt := tree.Statements()[0].(*SelectStmt)
	assert.True(t, stmt.HasSetOp, "expected a set operation chain")
	assert.True(t, stmt.HasLimit, "a trailing LIMIT applies to the chain")
	assert.Equal(t, []string{"t", "u"}, tablePaths(tree), "both arms contribute tables")
}

func TestParse_ParenthesizedSetArms(t *testing.T) {
	tree := mustParse(t, "(SELECT a FROM t) UNION (SELECT a FROM u) LIMIT 5")

	stmt := tree.Statements()[0].(*SelectStmt)
	assert.True(t, stmt.HasLimit, "limit after parenthesized arms applies")
	assert.Equal(t, []string{"t", "u"}, tablePaths(tree), "both arms contribute tables")
}

func TestParse_CTEs(t *testing.T) {
	tree := mustParse(t, `
		WITH recent AS (SELECT * FROM raw.events WHERE ts > now()),
		     recent AS (SELECT * FROM raw.clicks)
		SELECT * FROM recent`)

	sc := tree.Statements()[0].Scope()
	require.Len(t, sc.CTEs, 2, "expected both CTE bindings")
	assert.Equal(t, "recent", sc.CTEs[0].Name, "unexpected CTE name")
	assert.Equal(t, []string{"raw.events", "raw.clicks", "recent"}, tablePaths(tree),
		"CTE bodies and the main query all contribute tables")
}

func TestParse_SubqueryInExpr(t *testing.T) {
	tree := mustParse(t, "SELECT a FROM t WHERE a IN (SELECT b FROM u)")

	sc := tree.Statements()[0].Scope()
	require.Len(t, sc.Children, 1, "expected one nested statement")
	sub, ok := sc.Children[0].(*SelectStmt)
	require.True(t, ok, "expected a nested select")
	assert.True(t, sub.InExpr, "WHERE subqueries are expression subqueries")
	assert.Same(t, sc, sub.Scope().Parent, "child scope points at parent")
}

func TestParse_DerivedTableNotInExpr(t *testing.T) {
	tree := mustParse(t, "SELECT a FROM (SELECT a FROM t) d")

	sub := tree.Statements()[0].Scope().Children[0].(*SelectStmt)
	assert.False(t, sub.InExpr, "derived tables are not expression subqueries")
}

func TestParse_LocalNamesAndQualRefs(t *testing.T) {
	tree := mustParse(t, "SELECT o.id FROM orders o WHERE o.total > 10")

	sc := tree.Statements()[0].Scope()
	assert.True(t, sc.HasLocalName("o"), "alias is a local name")
	assert.False(t, sc.HasLocalName("x"), "unknown name")

	require.NotEmpty(t, sc.QualRefs, "expected qualified refs")
	assert.Equal(t, "o", sc.QualRefs[0].Qualifier, "unexpected qualifier")
}

func TestParse_UnaliasedTableIsLocalName(t *testing.T) {
	tree := mustParse(t, "SELECT orders.id FROM orders")
	sc := tree.Statements()[0].Scope()
	assert.True(t, sc.HasLocalName("orders"), "table name itself is visible")
}

func TestParse_TableFunctionIsNotATable(t *testing.T) {
	tree := mustParse(t, "SELECT * FROM read_csv('events.csv') t")
	assert.Empty(t, tablePaths(tree), "table functions are not table refs")
}

func TestParse_DML(t *testing.T) {
	tests := []struct {
		sql    string
		kind   StatementKind
		tables []string
	}{
		{"INSERT INTO warehouse.events (id) VALUES (1)", KindInsert, []string{"warehouse.events"}},
		{"INSERT INTO t SELECT * FROM u", KindInsert, []string{"t", "u"}},
		{"UPDATE t SET a = 1 WHERE b = 2", KindUpdate, []string{"t"}},
		{"UPDATE t SET a = u.a FROM u WHERE t.id = u.id", KindUpdate, []string{"t", "u"}},
		{"DELETE FROM raw.events WHERE ts < now()", KindDelete, []string{"raw.events"}},
		{"DROP TABLE IF EXISTS tmp.scratch", KindDrop, []string{"tmp.scratch"}},
		{"TRUNCATE TABLE staging.users", KindTruncate, []string{"staging.users"}},
		{"TRUNCATE staging.users", KindTruncate, []string{"staging.users"}},
		{"CREATE TABLE t2 AS SELECT * FROM t", KindCreate, []string{"t2", "t"}},
		{"CREATE OR REPLACE VIEW v AS SELECT a FROM t", KindCreate, []string{"v", "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			tree := mustParse(t, tt.sql)
			assert.Equal(t, tt.kind, tree.Statements()[0].Kind(), "unexpected kind")
			assert.Equal(t, tt.tables, tablePaths(tree), "unexpected table refs")
		})
	}
}

func TestParse_DropObjectKind(t *testing.T) {
	tree := mustParse(t, "DROP VIEW reporting.daily")
	stmt := tree.Statements()[0].(*DropStmt)
	assert.Equal(t, "VIEW", stmt.Object, "unexpected drop object")
}

func TestParse_MultipleStatements(t *testing.T) {
	tree := mustParse(t, "SELECT a FROM t; DELETE FROM u;")
	require.Len(t, tree.Statements(), 2, "expected two statements")
	assert.Equal(t, KindSelect, tree.Statements()[0].Kind(), "unexpected first kind")
	assert.Equal(t, KindDelete, tree.Statements()[1].Kind(), "unexpected second kind")
}

func TestParse_Empty(t *testing.T) {
	tree, err := Parse("   -- just a comment\n", nil)
	require.NoError(t, err, "blank input parses")
	assert.Empty(t, tree.Statements(), "no statements expected")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"missing select list", "SELECT FROM users"},
		{"garbage", "NOT SQL AT ALL"},
		{"unterminated string", "SELECT 'oops FROM t"},
		{"unterminated paren", "SELECT a FROM (SELECT b FROM t"},
		{"dot without ident", "SELECT a FROM raw."},
		{"drop without object", "DROP banana"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.sql, nil)
			require.Error(t, err, "expected %q to fail", tt.sql)

			var perr *ParseError
			require.ErrorAs(t, err, &perr, "expected a ParseError")
			assert.Equal(t, tt.sql, perr.SQL, "error carries the original SQL")
			assert.Contains(t, perr.Error(), "parse error at line", "unexpected error format")
		})
	}
}

func TestParse_CommentsAndCaseSurvive(t *testing.T) {
	sql := "select A /* keep */ from RAW.Events -- trailing"
	tree := mustParse(t, sql)
	assert.Equal(t, []string{"raw.events"}, tablePaths(tree), "paths are lower-cased")
	assert.Equal(t, sql, tree.Print(), "untouched trees print byte-identically")
}
