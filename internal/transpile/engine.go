// Package transpile orchestrates the pipeline that turns SQL written
// against logical table names into SQL targeting physical storage:
// fetch rules (with retry), expand METRIC() macros, substitute tables,
// detect warnings, assemble the result.
package transpile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/sqlshift/internal/metric"
	"github.com/leapstack-labs/sqlshift/internal/rulesource"
	"github.com/leapstack-labs/sqlshift/internal/substitute"
	"github.com/leapstack-labs/sqlshift/internal/warn"
	"github.com/leapstack-labs/sqlshift/pkg/dialect"
	"github.com/leapstack-labs/sqlshift/pkg/sqltree"
)

// retryBackoff is the linear backoff unit between fetch attempts.
const retryBackoff = 500 * time.Millisecond

// Config holds engine configuration. It is constant for the engine's
// lifetime.
type Config struct {
	// Dialect names the SQL dialect to parse and print with.
	Dialect string

	// StrictMode makes every error condition abort the call instead of
	// degrading gracefully.
	StrictMode bool

	// RetryCount is how many times a failed rule fetch is retried after
	// the first attempt.
	RetryCount int

	// MaxMetrics caps METRIC() occurrences per query. Zero means the
	// expander default.
	MaxMetrics int

	// Scope is passed to the rule source on every fetch.
	Scope string

	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Engine runs the transpile pipeline. It is stateless per call and safe for
// concurrent use as long as the rule source is.
type Engine struct {
	cfg    Config
	source rulesource.Source
	d      *dialect.Dialect
	logger *slog.Logger
}

// New creates an engine on top of the given rule source.
func New(source rulesource.Source, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		cfg:    cfg,
		source: source,
		d:      dialect.MustGet(cfg.Dialect),
		logger: logger,
	}
}

// Transpile runs the full pipeline on sql.
//
// In lenient mode (the default) it never returns an error: failures
// downgrade into the result. In strict mode the first failure aborts the
// call with no partial result.
func (e *Engine) Transpile(ctx context.Context, sql string) (*Result, error) {
	start := time.Now()
	requestID := uuid.New().String()
	logger := e.logger.With("request_id", requestID)

	result := &Result{
		Success: true,
		SQL:     sql,
		Metadata: Metadata{
			RequestID:   requestID,
			OriginalSQL: sql,
			Dialect:     e.d.GetName(),
		},
	}

	// Step 1: fetch rules with retry. Lenient mode degrades to an empty
	// rule list and keeps going.
	rules, err := e.fetchRules(ctx, logger)
	if err != nil {
		if e.cfg.StrictMode {
			return nil, err
		}
		logger.Warn("rule fetch failed, continuing with no rules", "error", err)
		rules = nil
	}

	// Step 2: expand metrics. Failed occurrences stay literal; lenient
	// mode converts each failure to a METRIC_ERROR warning.
	currentSQL, metricErrs := metric.Expand(sql, e.metricResolver(ctx), e.cfg.MaxMetrics)
	if len(metricErrs) > 0 {
		if e.cfg.StrictMode {
			return nil, &Error{Stage: "metric expansion", Err: errors.Join(metricErrs...)}
		}
		for _, merr := range metricErrs {
			logger.Warn("metric expansion failed", "error", merr)
			result.Warnings = append(result.Warnings, warn.MetricError(merr))
		}
	}
	metricsExpanded := currentSQL != sql && len(metricErrs) == 0

	// Step 3: table substitution. A parse failure in lenient mode reverts
	// to the original input, discarding any metric expansion.
	substituted, applied, err := substitute.Apply(currentSQL, rules, e.d)
	if err != nil {
		if e.cfg.StrictMode {
			return nil, err
		}
		logger.Warn("substitution failed, reverting to original SQL", "error", err)
		result.SQL = sql
		result.Success = false
		result.Error = err.Error()
	} else {
		result.SQL = substituted
		if metricsExpanded {
			result.AppliedRules = append(result.AppliedRules, syntheticMetricRule())
		}
		result.AppliedRules = append(result.AppliedRules, applied...)
	}

	// Step 4: detect warnings on the final SQL.
	result.Warnings = append(result.Warnings, warn.Detect(result.SQL, e.d)...)

	result.Metadata.TranspiledAt = time.Now()
	result.Metadata.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0

	logger.Info("transpile finished",
		"success", result.Success,
		"applied_rules", len(result.AppliedRules),
		"warnings", len(result.Warnings),
		"duration_ms", result.Metadata.DurationMs)
	return result, nil
}

// ValidateSQL surfaces parse errors as strings without running the full
// pipeline. It never returns an error.
func (e *Engine) ValidateSQL(sql string) []string {
	if _, err := sqltree.Parse(sql, e.d); err != nil {
		return []string{err.Error()}
	}
	return nil
}

// fetchRules calls the rule source with up to RetryCount+1 attempts and
// linear backoff between failures. Non-retryable errors stop immediately.
func (e *Engine) fetchRules(ctx context.Context, logger *slog.Logger) ([]rulesource.Rule, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * retryBackoff
			logger.Debug("retrying rule fetch", "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &Error{Stage: "rule fetch", Err: ctx.Err()}
			}
		}

		rules, err := e.source.GetRules(ctx, e.cfg.Scope)
		if err == nil {
			return rules, nil
		}
		lastErr = err
		if !rulesource.IsRetryable(err) {
			break
		}
	}
	return nil, &Error{Stage: "rule fetch", Err: lastErr}
}

// metricResolver adapts the rule source's metric lookup for the expander.
// Not-found and transport errors both surface as expansion errors for their
// occurrence.
func (e *Engine) metricResolver(ctx context.Context) metric.Resolver {
	return func(name string) (string, error) {
		def, err := e.source.GetMetric(ctx, name)
		if err != nil {
			return "", err
		}
		return def.Expression, nil
	}
}
