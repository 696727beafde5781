// Package commands_test provides tests for CLI command creation.
package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlshift/internal/config"
)

const testRulesYAML = `rules:
  - id: raw-events
    kind: TABLE_SUBSTITUTION
    source: raw.events
    target: warehouse.events_v2
    enabled: true
metrics:
  - name: revenue
    expression: SUM(amount)
    source_table: orders
`

func writeRulesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRulesYAML), 0o644))
	return path
}

// execute runs cmd with cfg in its context and captured output.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SetContext(WithConfig(context.Background(), cfg))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func fileBackedConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RulesFile = writeRulesFile(t)
	return cfg
}

func stateBackedConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.StatePath = filepath.Join(t.TempDir(), "state.db")
	return cfg
}

func TestTranspileCommandRewritesTables(t *testing.T) {
	out, errOut, err := execute(t, NewTranspileCommand(), fileBackedConfig(t),
		"SELECT id FROM raw.events LIMIT 10")

	require.NoError(t, err)
	assert.Contains(t, out, "warehouse.events_v2", "logical name should be rewritten")
	assert.NotContains(t, out, "raw.events")
	assert.Empty(t, errOut, "clean query should produce no warnings")
}

func TestTranspileCommandExpandsMetrics(t *testing.T) {
	out, _, err := execute(t, NewTranspileCommand(), fileBackedConfig(t),
		"SELECT METRIC(revenue) FROM raw.events LIMIT 5")

	require.NoError(t, err)
	assert.Contains(t, out, "(SUM(amount))")
}

func TestTranspileCommandWarningsGoToStderr(t *testing.T) {
	out, errOut, err := execute(t, NewTranspileCommand(), fileBackedConfig(t),
		"SELECT * FROM raw.events")

	require.NoError(t, err)
	assert.Contains(t, errOut, "SELECT_STAR")
	assert.Contains(t, errOut, "NO_LIMIT")
	assert.NotContains(t, out, "warning")
}

func TestTranspileCommandJSON(t *testing.T) {
	out, _, err := execute(t, NewTranspileCommand(), fileBackedConfig(t),
		"--json", "SELECT id FROM raw.events LIMIT 1")

	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
	assert.Contains(t, out, `"raw-events"`)
}

func TestTranspileCommandLenientParseFailure(t *testing.T) {
	out, _, err := execute(t, NewTranspileCommand(), fileBackedConfig(t),
		"SELECT FROM WHERE ;;;")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "transpile failed")
	assert.Contains(t, out, "SELECT FROM WHERE ;;;", "lenient mode echoes the original SQL")
}

func TestTranspileCommandFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT id FROM raw.events LIMIT 1"), 0o644))

	out, _, err := execute(t, NewTranspileCommand(), fileBackedConfig(t), "--file", path)

	require.NoError(t, err)
	assert.Contains(t, out, "warehouse.events_v2")
}

func TestValidateCommand(t *testing.T) {
	out, _, err := execute(t, NewValidateCommand(), config.DefaultConfig(),
		"SELECT 1")

	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestValidateCommandReportsProblems(t *testing.T) {
	out, _, err := execute(t, NewValidateCommand(), config.DefaultConfig(),
		"SELECT `unterminated FROM t")

	require.Error(t, err)
	assert.NotContains(t, out, "OK")
}

func TestRulesListFileSource(t *testing.T) {
	out, _, err := execute(t, newRulesListCommand(), fileBackedConfig(t))

	require.NoError(t, err)
	assert.Contains(t, out, "raw-events")
	assert.Contains(t, out, "warehouse.events_v2")
}

func TestRulesAddRejectsFileSource(t *testing.T) {
	cfg := fileBackedConfig(t)
	_, _, err := execute(t, newRulesAddCommand(), cfg,
		"--id", "r1", "--source", "a.b", "--target", "c.d")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "state database")
}

func TestRulesAddListRemoveRoundTrip(t *testing.T) {
	cfg := stateBackedConfig(t)

	_, _, err := execute(t, newRulesAddCommand(), cfg,
		"--id", "r1", "--source", "raw.orders", "--target", "prod.orders")
	require.NoError(t, err)

	out, _, err := execute(t, newRulesListCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "raw.orders")

	_, _, err = execute(t, newRulesRemoveCommand(), cfg, "r1")
	require.NoError(t, err)

	out, _, err = execute(t, newRulesListCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No rules configured.")
}

func TestMetricsAddShowRemove(t *testing.T) {
	cfg := stateBackedConfig(t)

	_, _, err := execute(t, newMetricsAddCommand(), cfg,
		"--name", "revenue", "--expression", "SUM(amount)")
	require.NoError(t, err)

	out, _, err := execute(t, newMetricsShowCommand(), cfg, "revenue")
	require.NoError(t, err)
	assert.Contains(t, out, "SUM(amount)")

	_, _, err = execute(t, newMetricsRemoveCommand(), cfg, "revenue")
	require.NoError(t, err)
}

func TestMetricsShowSuggestsNames(t *testing.T) {
	_, _, err := execute(t, newMetricsShowCommand(), fileBackedConfig(t), "revenu")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean")
	assert.Contains(t, err.Error(), "revenue")
}

func TestHistoryCommandRecordsTranspiles(t *testing.T) {
	cfg := stateBackedConfig(t)

	_, _, err := execute(t, NewTranspileCommand(), cfg, "SELECT 1")
	require.NoError(t, err)

	out, _, err := execute(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT 1")
}

func TestHistoryCommandEmpty(t *testing.T) {
	out, _, err := execute(t, NewHistoryCommand(), stateBackedConfig(t))

	require.NoError(t, err)
	assert.Contains(t, out, "No transpile calls recorded yet.")
}

func TestDialectsCommand(t *testing.T) {
	out, _, err := execute(t, NewDialectsCommand(), config.DefaultConfig())

	require.NoError(t, err)
	assert.Contains(t, out, "duckdb")
	assert.Contains(t, out, "postgres")
}

func TestNewVersionCommand(t *testing.T) {
	out, _, err := execute(t, NewVersionCommand("1.2.3"), config.DefaultConfig())

	require.NoError(t, err)
	assert.Contains(t, out, "sqlshift v1.2.3")
}

func TestCommandMetadata(t *testing.T) {
	for _, cmd := range []*cobra.Command{
		NewTranspileCommand(),
		NewValidateCommand(),
		NewRulesCommand(),
		NewMetricsCommand(),
		NewHistoryCommand(),
		NewDialectsCommand(),
		NewVersionCommand("test"),
	} {
		assert.NotEmpty(t, cmd.Use, "Use should not be empty")
		assert.NotEmpty(t, cmd.Short, "Short should not be empty for %s", cmd.Use)
	}
}

func TestTranspileCommandFlags(t *testing.T) {
	cmd := NewTranspileCommand()
	for _, name := range []string{"file", "json", "no-log"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %q should exist", name)
	}
}
