package transpile

import (
	"time"

	"github.com/leapstack-labs/sqlshift/internal/rulesource"
	"github.com/leapstack-labs/sqlshift/internal/warn"
)

// Metadata describes one transpile call for auditing.
type Metadata struct {
	RequestID    string    `json:"request_id"`
	OriginalSQL  string    `json:"original_sql"`
	TranspiledAt time.Time `json:"transpiled_at"`
	Dialect      string    `json:"dialect"`
	DurationMs   float64   `json:"duration_ms"`
}

// Result is the immutable outcome of one transpile call.
//
// AppliedRules starts with a synthetic metric-expansion record when METRIC()
// macros were expanded without error, followed by the table-substitution
// rules in first-application order.
type Result struct {
	Success      bool              `json:"success"`
	SQL          string            `json:"sql"`
	AppliedRules []rulesource.Rule `json:"applied_rules"`
	Warnings     []warn.Warning    `json:"warnings"`
	Metadata     Metadata          `json:"metadata"`
	Error        string            `json:"error,omitempty"`
}

// syntheticMetricRule is the applied-rules record for metric expansion.
func syntheticMetricRule() rulesource.Rule {
	return rulesource.Rule{
		ID:      "metric-expansion",
		Kind:    rulesource.KindMetricExpansion,
		Source:  "METRIC()",
		Target:  "<expanded>",
		Enabled: true,
	}
}
