// Package substitute rewrites logical table references to their physical
// locations using TABLE_SUBSTITUTION rules.
package substitute

import (
	"strings"

	"github.com/leapstack-labs/sqlshift/internal/rulesource"
	"github.com/leapstack-labs/sqlshift/pkg/dialect"
	"github.com/leapstack-labs/sqlshift/pkg/sqltree"
)

type mapping struct {
	parts []string
	rule  rulesource.Rule
}

// Apply parses sql, rewrites every table reference matched by an enabled
// TABLE_SUBSTITUTION rule, and re-prints in the given dialect. It returns
// the rewritten SQL and the applied rules, deduplicated by ID in
// first-application order.
//
// Blank input or an empty effective rule set is a no-op that skips parsing.
// A parse failure returns a *sqltree.ParseError, always.
func Apply(sql string, rules []rulesource.Rule, d *dialect.Dialect) (string, []rulesource.Rule, error) {
	if strings.TrimSpace(sql) == "" {
		return sql, nil, nil
	}

	// Lower-cased source path to target mapping; duplicate sources resolve
	// last-write-wins.
	mappings := make(map[string]mapping)
	for _, rule := range rules {
		if rule.Kind != rulesource.KindTableSubstitution || !rule.Enabled {
			continue
		}
		mappings[strings.ToLower(rule.Source)] = mapping{
			parts: strings.Split(rule.Target, "."),
			rule:  rule,
		}
	}
	if len(mappings) == 0 {
		return sql, nil, nil
	}

	tree, err := sqltree.Parse(sql, d)
	if err != nil {
		return "", nil, err
	}

	var applied []rulesource.Rule
	seen := make(map[string]struct{})
	for _, ref := range tree.TableRefs() {
		m, ok := lookup(mappings, ref)
		if !ok {
			continue
		}
		ref.SetParts(m.parts)
		if _, dup := seen[m.rule.ID]; !dup {
			seen[m.rule.ID] = struct{}{}
			applied = append(applied, m.rule)
		}
	}

	return tree.Print(), applied, nil
}

// lookup matches a table reference against the rule map, most specific
// first: full dotted path, then schema.table, then the bare table name.
func lookup(mappings map[string]mapping, ref *sqltree.TableRef) (mapping, bool) {
	if m, ok := mappings[ref.Path()]; ok {
		return m, true
	}
	if len(ref.Parts) >= 2 {
		lastTwo := strings.ToLower(strings.Join(ref.Parts[len(ref.Parts)-2:], "."))
		if m, ok := mappings[lastTwo]; ok {
			return m, true
		}
	}
	if m, ok := mappings[ref.Name()]; ok {
		return m, true
	}
	return mapping{}, false
}
