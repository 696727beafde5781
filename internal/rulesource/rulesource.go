// Package rulesource defines the contract for suppliers of transpile rules
// and metric definitions, plus the built-in in-memory, file, and database
// backed implementations.
package rulesource

import "context"

// RuleKind identifies what a rule rewrites.
type RuleKind string

const (
	// KindTableSubstitution maps a logical table path to a physical one.
	KindTableSubstitution RuleKind = "TABLE_SUBSTITUTION"

	// KindMetricExpansion marks the synthetic record produced when METRIC()
	// macros were expanded. Sources never store rules of this kind.
	KindMetricExpansion RuleKind = "METRIC_EXPANSION"
)

// Rule maps a logical dotted table path to its physical location.
// Identity is the ID; a rule is immutable within a transpile call.
type Rule struct {
	ID          string   `json:"id" yaml:"id" koanf:"id"`
	Kind        RuleKind `json:"kind" yaml:"kind" koanf:"kind"`
	Source      string   `json:"source" yaml:"source" koanf:"source"`
	Target      string   `json:"target" yaml:"target" koanf:"target"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" koanf:"description"`
	Enabled     bool     `json:"enabled" yaml:"enabled" koanf:"enabled"`
}

// MetricDefinition is a centrally registered business metric. Lookup is by
// exact, case-sensitive name.
type MetricDefinition struct {
	Name        string `json:"name" yaml:"name" koanf:"name"`
	Expression  string `json:"expression" yaml:"expression" koanf:"expression"`
	SourceTable string `json:"source_table,omitempty" yaml:"source_table,omitempty" koanf:"source_table"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" koanf:"description"`
}

// Source supplies substitution rules and metric definitions.
//
// GetRules returns the rules visible to the given scope (empty scope means
// all); an empty slice means "no rules", not an error. GetMetric returns
// *MetricNotFoundError when the name is unknown and *FetchError for
// transport failures. ListMetricNames is diagnostics only and is never on
// the transpile critical path.
//
// Implementations must be safe for concurrent use.
type Source interface {
	GetRules(ctx context.Context, scope string) ([]Rule, error)
	GetMetric(ctx context.Context, name string) (*MetricDefinition, error)
	ListMetricNames(ctx context.Context) ([]string, error)
}
