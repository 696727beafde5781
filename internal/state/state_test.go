package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlshift/internal/rulesource"
)

var _ rulesource.Source = (*SQLiteStore)(nil)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"), "failed to open in-memory store")
	require.NoError(t, store.Migrate(), "failed to migrate")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMigrate_SetsVersion(t *testing.T) {
	store := openTestStore(t)
	version, err := store.GetMigrationVersion()
	require.NoError(t, err, "expected a migration version")
	assert.GreaterOrEqual(t, version, int64(1), "expected at least the initial migration")
}

func TestSaveAndGetRules(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRule(ctx, rulesource.Rule{
		ID: "raw-events", Source: "raw.events", Target: "warehouse.events_v2", Enabled: true,
	}, ""), "failed to save global rule")
	require.NoError(t, store.SaveRule(ctx, rulesource.Rule{
		ID: "raw-users", Source: "raw.users", Target: "warehouse.users_v3", Enabled: true,
	}, "analytics"), "failed to save scoped rule")

	rules, err := store.GetRules(ctx, "")
	require.NoError(t, err, "expected rules")
	require.Len(t, rules, 1, "unscoped callers only see global rules")
	assert.Equal(t, rulesource.KindTableSubstitution, rules[0].Kind, "kind defaults on save")

	rules, err = store.GetRules(ctx, "analytics")
	require.NoError(t, err, "expected rules")
	assert.Len(t, rules, 2, "scoped callers see global and scoped rules")
}

func TestSaveRule_Upserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rule := rulesource.Rule{ID: "r1", Source: "raw.a", Target: "wh.a", Enabled: true}
	require.NoError(t, store.SaveRule(ctx, rule, ""), "first save")
	rule.Target = "wh.a_v2"
	require.NoError(t, store.SaveRule(ctx, rule, ""), "second save")

	rules, err := store.GetRules(ctx, "")
	require.NoError(t, err, "expected rules")
	require.Len(t, rules, 1, "upsert must not duplicate")
	assert.Equal(t, "wh.a_v2", rules[0].Target, "latest target wins")
}

func TestDeleteRule(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRule(ctx, rulesource.Rule{ID: "r1", Source: "a", Target: "b", Enabled: true}, ""), "save")
	require.NoError(t, store.DeleteRule(ctx, "r1"), "delete")

	rules, err := store.GetRules(ctx, "")
	require.NoError(t, err, "expected query to succeed")
	assert.Empty(t, rules, "rule should be gone")
}

func TestMetrics(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMetric(ctx, rulesource.MetricDefinition{
		Name: "revenue", Expression: "SUM(amount)", SourceTable: "orders",
	}), "failed to save metric")

	def, err := store.GetMetric(ctx, "revenue")
	require.NoError(t, err, "expected metric")
	assert.Equal(t, "SUM(amount)", def.Expression, "unexpected expression")
	assert.Equal(t, "orders", def.SourceTable, "unexpected source table")

	names, err := store.ListMetricNames(ctx)
	require.NoError(t, err, "expected names")
	assert.Equal(t, []string{"revenue"}, names, "unexpected names")
}

func TestGetMetric_NotFoundWithSuggestions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMetric(ctx, rulesource.MetricDefinition{Name: "revenue", Expression: "SUM(a)"}), "save")

	_, err := store.GetMetric(ctx, "rev")
	var nf *rulesource.MetricNotFoundError
	require.ErrorAs(t, err, &nf, "expected not-found error")
	assert.Equal(t, "rev", nf.Name, "error carries requested name")
	assert.Equal(t, []string{"revenue"}, nf.Suggestions, "close matches suggested")
}

func TestTranspileLog(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.LogTranspile(ctx, TranspileRecord{
		Dialect:       "duckdb",
		Success:       true,
		OriginalSQL:   "SELECT * FROM raw.events",
		TranspiledSQL: "SELECT * FROM warehouse.events_v2",
		WarningCount:  1,
		DurationMs:    1.25,
	})
	require.NoError(t, err, "failed to log")
	assert.NotEmpty(t, id, "an ID is generated")

	records, err := store.RecentTranspiles(ctx, 10)
	require.NoError(t, err, "expected records")
	require.Len(t, records, 1, "one record expected")
	assert.Equal(t, id, records[0].ID, "unexpected record")
	assert.True(t, records[0].Success, "success flag preserved")
	assert.InDelta(t, 1.25, records[0].DurationMs, 0.001, "duration preserved")
}

func TestStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore()
	_, err := store.GetRules(context.Background(), "")
	require.Error(t, err, "unopened store errors")
	assert.False(t, rulesource.IsRetryable(err), "not retryable")
}
