// Package dialect provides the SQL dialect registry used to select
// identifier quoting behavior when transpiled SQL is printed.
package dialect

import (
	"fmt"

	"github.com/leapstack-labs/sqlshift/pkg/token"
)

// Dialect describes a named SQL syntax variant.
type Dialect struct {
	// Name is the canonical lowercase dialect name, e.g. "duckdb".
	Name string

	// QuoteOpen and QuoteClose delimit quoted identifiers.
	QuoteOpen  byte
	QuoteClose byte
}

// GetName returns the canonical dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// QuoteIdent renders a single identifier part, quoting only when required.
// Bare identifiers that are not reserved words pass through unchanged so
// rewritten table names stay readable.
func (d *Dialect) QuoteIdent(name string) string {
	if isBareIdent(name) && !token.IsReservedWord(name) {
		return name
	}
	quoted := make([]byte, 0, len(name)+2)
	quoted = append(quoted, d.QuoteOpen)
	for i := 0; i < len(name); i++ {
		if name[i] == d.QuoteClose {
			quoted = append(quoted, d.QuoteClose)
		}
		quoted = append(quoted, name[i])
	}
	return string(append(quoted, d.QuoteClose))
}

// QuotePath renders a dotted identifier path, e.g. ["warehouse","events_v2"]
// becomes "warehouse.events_v2" with per-part quoting as needed.
func (d *Dialect) QuotePath(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += d.QuoteIdent(p)
	}
	return out
}

func (d *Dialect) String() string {
	return fmt.Sprintf("dialect(%s)", d.Name)
}

// isBareIdent reports whether s is a valid unquoted SQL identifier.
func isBareIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
