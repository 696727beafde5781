package dialect

import (
	"sort"
	"strings"
	"sync"
)

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
)

// DefaultName is the dialect assumed when configuration does not name one.
const DefaultName = "duckdb"

// Get returns a dialect by name (case-insensitive).
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// MustGet returns a dialect by name, falling back to the default dialect
// for unknown names. The transpile pipeline treats the dialect as advisory
// print behavior, never as a hard failure.
func MustGet(name string) *Dialect {
	if d, ok := Get(name); ok {
		return d
	}
	d, _ := Get(DefaultName)
	return d
}

// Register registers a dialect in the global registry.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(d.Name)] = d
}

// List returns all registered dialect names (sorted).
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
