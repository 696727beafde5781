package rulesource

import (
	"context"
	"sort"
	"sync"
)

// MemorySource is an in-memory Source, used for tests and for projects that
// register rules programmatically.
type MemorySource struct {
	mu sync.RWMutex

	// rules in registration order
	rules []Rule

	// metrics by exact name
	metrics map[string]MetricDefinition

	// scopes maps rule ID to the scope it was registered under. Rules
	// registered with an empty scope are visible everywhere.
	scopes map[string]string
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		metrics: make(map[string]MetricDefinition),
		scopes:  make(map[string]string),
	}
}

// AddRule registers a rule visible to every scope.
func (m *MemorySource) AddRule(rule Rule) {
	m.AddScopedRule(rule, "")
}

// AddScopedRule registers a rule visible only to the given scope.
func (m *MemorySource) AddScopedRule(rule Rule, scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
	m.scopes[rule.ID] = scope
}

// AddMetric registers a metric definition, replacing any existing one with
// the same name.
func (m *MemorySource) AddMetric(def MetricDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[def.Name] = def
}

// GetRules returns rules visible to scope in registration order.
func (m *MemorySource) GetRules(_ context.Context, scope string) ([]Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Rule, 0, len(m.rules))
	for _, rule := range m.rules {
		ruleScope := m.scopes[rule.ID]
		if ruleScope == "" || ruleScope == scope {
			out = append(out, rule)
		}
	}
	return out, nil
}

// GetMetric looks up a metric by exact name.
func (m *MemorySource) GetMetric(_ context.Context, name string) (*MetricDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	def, ok := m.metrics[name]
	if !ok {
		return nil, NotFound(name, m.metricNamesLocked())
	}
	return &def, nil
}

// ListMetricNames returns all registered metric names, sorted.
func (m *MemorySource) ListMetricNames(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metricNamesLocked(), nil
}

func (m *MemorySource) metricNamesLocked() []string {
	names := make([]string, 0, len(m.metrics))
	for name := range m.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
