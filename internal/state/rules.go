package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/sqlshift/internal/rulesource"
)

// SaveRule inserts or updates a rule. An empty scope makes the rule visible
// to every caller.
func (s *SQLiteStore) SaveRule(ctx context.Context, rule rulesource.Rule, scope string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if rule.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if rule.Kind == "" {
		rule.Kind = rulesource.KindTableSubstitution
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transpile_rules (id, kind, source, target, description, enabled, scope)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			source = excluded.source,
			target = excluded.target,
			description = excluded.description,
			enabled = excluded.enabled,
			scope = excluded.scope,
			updated_at = datetime('now')`,
		rule.ID, string(rule.Kind), rule.Source, rule.Target,
		nullString(rule.Description), rule.Enabled, scope)
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}
	return nil
}

// DeleteRule removes a rule by ID.
func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM transpile_rules WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	return nil
}

// SaveMetric inserts or updates a metric definition.
func (s *SQLiteStore) SaveMetric(ctx context.Context, def rulesource.MetricDefinition) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if def.Name == "" {
		return fmt.Errorf("metric name is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (name, expression, source_table, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			expression = excluded.expression,
			source_table = excluded.source_table,
			description = excluded.description,
			updated_at = datetime('now')`,
		def.Name, def.Expression, nullString(def.SourceTable), nullString(def.Description))
	if err != nil {
		return fmt.Errorf("failed to save metric %s: %w", def.Name, err)
	}
	return nil
}

// DeleteMetric removes a metric definition by name.
func (s *SQLiteStore) DeleteMetric(ctx context.Context, name string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM metrics WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete metric %s: %w", name, err)
	}
	return nil
}

// GetRules returns rules visible to scope: rules stored with an empty scope
// plus rules stored under the given scope, in insertion order.
func (s *SQLiteStore) GetRules(ctx context.Context, scope string) ([]rulesource.Rule, error) {
	if s.db == nil {
		return nil, &rulesource.FetchError{Op: "get_rules", Err: fmt.Errorf("database not opened")}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, source, target, description, enabled
		FROM transpile_rules
		WHERE scope = '' OR scope = ?
		ORDER BY rowid`, scope)
	if err != nil {
		return nil, &rulesource.FetchError{Op: "get_rules", Retryable: true, Err: err}
	}
	defer rows.Close()

	var rules []rulesource.Rule
	for rows.Next() {
		var rule rulesource.Rule
		var kind string
		var desc sql.NullString
		if err := rows.Scan(&rule.ID, &kind, &rule.Source, &rule.Target, &desc, &rule.Enabled); err != nil {
			return nil, &rulesource.FetchError{Op: "get_rules", Err: err}
		}
		rule.Kind = rulesource.RuleKind(kind)
		rule.Description = desc.String
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, &rulesource.FetchError{Op: "get_rules", Retryable: true, Err: err}
	}
	return rules, nil
}

// GetMetric looks up a metric by exact name.
func (s *SQLiteStore) GetMetric(ctx context.Context, name string) (*rulesource.MetricDefinition, error) {
	if s.db == nil {
		return nil, &rulesource.FetchError{Op: "get_metric", Err: fmt.Errorf("database not opened")}
	}

	var def rulesource.MetricDefinition
	var srcTable, desc sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT name, expression, source_table, description
		FROM metrics WHERE name = ?`, name).
		Scan(&def.Name, &def.Expression, &srcTable, &desc)
	switch {
	case err == sql.ErrNoRows:
		names, nerr := s.ListMetricNames(ctx)
		if nerr != nil {
			names = nil
		}
		return nil, rulesource.NotFound(name, names)
	case err != nil:
		return nil, &rulesource.FetchError{Op: "get_metric", Retryable: true, Err: err}
	}
	def.SourceTable = srcTable.String
	def.Description = desc.String
	return &def, nil
}

// ListMetricNames returns all metric names, sorted.
func (s *SQLiteStore) ListMetricNames(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, &rulesource.FetchError{Op: "list_metric_names", Err: fmt.Errorf("database not opened")}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name FROM metrics ORDER BY name")
	if err != nil {
		return nil, &rulesource.FetchError{Op: "list_metric_names", Retryable: true, Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &rulesource.FetchError{Op: "list_metric_names", Err: err}
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
