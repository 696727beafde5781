package rulesource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ruleFile is the YAML document shape for a file-backed source:
//
//	rules:
//	  - id: raw-events
//	    kind: TABLE_SUBSTITUTION
//	    source: raw.events
//	    target: warehouse.events_v2
//	    enabled: true
//	metrics:
//	  - name: revenue
//	    expression: SUM(amount)
//	    source_table: orders
type ruleFile struct {
	Rules   []Rule             `koanf:"rules"`
	Metrics []MetricDefinition `koanf:"metrics"`
}

// FileSource serves rules and metrics from a YAML file loaded once at
// construction.
type FileSource struct {
	mu      sync.RWMutex
	path    string
	rules   []Rule
	metrics map[string]MetricDefinition
}

// NewFileSource loads the YAML file at path. A malformed document is a
// non-retryable fetch error.
func NewFileSource(path string) (*FileSource, error) {
	s := &FileSource{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file, replacing all rules and metrics.
func (s *FileSource) Reload() error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(s.path), yaml.Parser()); err != nil {
		return &FetchError{Op: "load", Retryable: false, Err: err}
	}

	var doc ruleFile
	if err := k.Unmarshal("", &doc); err != nil {
		return &FetchError{Op: "load", Retryable: false, Err: err}
	}

	metrics := make(map[string]MetricDefinition, len(doc.Metrics))
	for _, def := range doc.Metrics {
		if def.Name == "" {
			return &FetchError{Op: "load", Retryable: false, Err: fmt.Errorf("metric with empty name in %s", s.path)}
		}
		metrics[def.Name] = def
	}
	for i, rule := range doc.Rules {
		if rule.ID == "" {
			return &FetchError{Op: "load", Retryable: false, Err: fmt.Errorf("rule %d has no id in %s", i, s.path)}
		}
	}

	s.mu.Lock()
	s.rules = doc.Rules
	s.metrics = metrics
	s.mu.Unlock()
	return nil
}

// GetRules returns every rule in the file; file sources are not scoped.
func (s *FileSource) GetRules(_ context.Context, _ string) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

// GetMetric looks up a metric by exact name.
func (s *FileSource) GetMetric(_ context.Context, name string) (*MetricDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.metrics[name]
	if !ok {
		return nil, NotFound(name, s.metricNamesLocked())
	}
	return &def, nil
}

// ListMetricNames returns all metric names in the file, sorted.
func (s *FileSource) ListMetricNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metricNamesLocked(), nil
}

func (s *FileSource) metricNamesLocked() []string {
	names := make([]string, 0, len(s.metrics))
	for name := range s.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
