package rulesource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
)

// PostgresSource serves rules and metrics from a shared Postgres registry.
// It is read-only: the registry is owned by whoever provisions it, and the
// expected schema matches the local SQLite store (transpile_rules, metrics).
//
// Query and connection failures are retryable fetch errors, so the engine's
// retry policy applies to transient network trouble.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource connects to the registry at dsn and verifies the
// connection.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, &FetchError{Op: "connect", Retryable: false, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &FetchError{Op: "connect", Retryable: true, Err: err}
	}
	return &PostgresSource{db: db}, nil
}

// NewPostgresSourceFromDB wraps an existing connection pool.
func NewPostgresSourceFromDB(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Close releases the connection pool.
func (s *PostgresSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetRules returns rules visible to scope: globally scoped rules plus rules
// stored under the given scope, in insertion order.
func (s *PostgresSource) GetRules(ctx context.Context, scope string) ([]Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, source, target, description, enabled
		FROM transpile_rules
		WHERE scope = '' OR scope = $1
		ORDER BY created_at, id`, scope)
	if err != nil {
		return nil, &FetchError{Op: "get_rules", Retryable: true, Err: err}
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		var kind string
		var desc sql.NullString
		if err := rows.Scan(&rule.ID, &kind, &rule.Source, &rule.Target, &desc, &rule.Enabled); err != nil {
			return nil, &FetchError{Op: "get_rules", Err: err}
		}
		rule.Kind = RuleKind(kind)
		rule.Description = desc.String
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, &FetchError{Op: "get_rules", Retryable: true, Err: err}
	}
	return rules, nil
}

// GetMetric looks up a metric by exact name.
func (s *PostgresSource) GetMetric(ctx context.Context, name string) (*MetricDefinition, error) {
	var def MetricDefinition
	var srcTable, desc sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT name, expression, source_table, description
		FROM metrics WHERE name = $1`, name).
		Scan(&def.Name, &def.Expression, &srcTable, &desc)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		names, nerr := s.ListMetricNames(ctx)
		if nerr != nil {
			names = nil
		}
		return nil, NotFound(name, names)
	case err != nil:
		return nil, &FetchError{Op: "get_metric", Retryable: true, Err: err}
	}
	def.SourceTable = srcTable.String
	def.Description = desc.String
	return &def, nil
}

// ListMetricNames returns all metric names, sorted.
func (s *PostgresSource) ListMetricNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM metrics ORDER BY name")
	if err != nil {
		return nil, &FetchError{Op: "list_metric_names", Retryable: true, Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &FetchError{Op: "list_metric_names", Err: err}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &FetchError{Op: "list_metric_names", Retryable: true, Err: fmt.Errorf("reading metric names: %w", err)}
	}
	return names, nil
}
