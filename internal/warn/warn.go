// Package warn detects query anti-patterns and reports them as advisory
// warnings. Detection never fails: input that does not parse simply yields
// no warnings, since parse errors are reported by the substitution stage.
package warn

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlshift/pkg/dialect"
	"github.com/leapstack-labs/sqlshift/pkg/sqltree"
)

// Kind identifies a warning category.
type Kind string

const (
	KindNoLimit            Kind = "NO_LIMIT"
	KindSelectStar         Kind = "SELECT_STAR"
	KindDuplicateCTE       Kind = "DUPLICATE_CTE"
	KindCorrelatedSubquery Kind = "CORRELATED_SUBQUERY"
	KindDangerousStatement Kind = "DANGEROUS_STATEMENT"
	KindMetricError        Kind = "METRIC_ERROR"
)

// Warning is one advisory finding. Warnings never block transpilation.
type Warning struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// RuleDef is one static detection rule.
type RuleDef struct {
	Kind        Kind
	Description string
	Check       func(tree *sqltree.Tree) []Warning
}

// Rules lists the static detection rules in evaluation order.
var Rules = []RuleDef{
	{
		Kind:        KindSelectStar,
		Description: "Star projections hide schema changes and fetch more data than needed.",
		Check:       checkSelectStar,
	},
	{
		Kind:        KindNoLimit,
		Description: "Top-level SELECT without a LIMIT can return unbounded result sets.",
		Check:       checkNoLimit,
	},
	{
		Kind:        KindDangerousStatement,
		Description: "DROP, DELETE, and TRUNCATE statements destroy data.",
		Check:       checkDangerousStatement,
	},
	{
		Kind:        KindDuplicateCTE,
		Description: "A CTE name bound more than once shadows the earlier definition.",
		Check:       checkDuplicateCTE,
	},
	{
		Kind:        KindCorrelatedSubquery,
		Description: "Correlated subqueries often re-execute per outer row.",
		Check:       checkCorrelatedSubquery,
	},
}

// Detect runs every static rule against sql. A parse failure yields nil.
func Detect(sql string, d *dialect.Dialect) []Warning {
	tree, err := sqltree.Parse(sql, d)
	if err != nil {
		return nil
	}

	var warnings []Warning
	for _, def := range Rules {
		warnings = append(warnings, def.Check(tree)...)
	}
	return warnings
}

// MetricError wraps a metric expansion failure as a warning.
func MetricError(err error) Warning {
	return Warning{Kind: KindMetricError, Message: err.Error()}
}

// checkSelectStar emits exactly one warning if any star projection exists,
// regardless of how many there are.
func checkSelectStar(tree *sqltree.Tree) []Warning {
	if len(tree.Stars()) == 0 {
		return nil
	}
	return []Warning{{
		Kind:    KindSelectStar,
		Message: "query uses SELECT *; list the columns you need explicitly",
	}}
}

// checkNoLimit warns at most once, and only for top-level SELECT statements.
// A LIMIT on the statement itself or inherited from an enclosing set
// operation counts.
func checkNoLimit(tree *sqltree.Tree) []Warning {
	for _, stmt := range tree.Statements() {
		sel, ok := stmt.(*sqltree.SelectStmt)
		if !ok {
			continue
		}
		if !sel.HasLimit {
			return []Warning{{
				Kind:    KindNoLimit,
				Message: "SELECT without LIMIT may return an unbounded result set",
			}}
		}
	}
	return nil
}

// checkDangerousStatement warns once per DROP, DELETE, or TRUNCATE node,
// naming the statement type. Not deduplicated.
func checkDangerousStatement(tree *sqltree.Tree) []Warning {
	var warnings []Warning
	tree.Walk(func(s sqltree.Statement) {
		switch s.Kind() {
		case sqltree.KindDrop, sqltree.KindDelete, sqltree.KindTruncate:
			warnings = append(warnings, Warning{
				Kind:    KindDangerousStatement,
				Message: fmt.Sprintf("%s statement destroys data; double-check before running", s.Kind()),
			})
		}
	})
	return warnings
}

// checkDuplicateCTE warns once per CTE name bound more than once within the
// same WITH clause.
func checkDuplicateCTE(tree *sqltree.Tree) []Warning {
	var warnings []Warning
	tree.Walk(func(s sqltree.Statement) {
		seen := make(map[string]int)
		for _, cte := range s.Scope().CTEs {
			seen[strings.ToLower(cte.Name)]++
		}
		for _, cte := range s.Scope().CTEs {
			name := strings.ToLower(cte.Name)
			if seen[name] > 1 {
				warnings = append(warnings, Warning{
					Kind:    KindDuplicateCTE,
					Message: fmt.Sprintf("CTE %q is defined more than once; the later definition shadows the earlier", cte.Name),
				})
				seen[name] = 0
			}
		}
	})
	return warnings
}

// checkCorrelatedSubquery warns once per expression subquery that references
// a table name or alias defined in an enclosing scope.
func checkCorrelatedSubquery(tree *sqltree.Tree) []Warning {
	var warnings []Warning
	tree.Walk(func(s sqltree.Statement) {
		sel, ok := s.(*sqltree.SelectStmt)
		if !ok || !sel.InExpr {
			return
		}
		sc := sel.Scope()
		for _, ref := range sc.QualRefs {
			if sc.HasLocalName(ref.Qualifier) {
				continue
			}
			for anc := sc.Parent; anc != nil; anc = anc.Parent {
				if anc.HasLocalName(ref.Qualifier) {
					warnings = append(warnings, Warning{
						Kind:    KindCorrelatedSubquery,
						Message: fmt.Sprintf("subquery references outer table %q; it may re-execute per outer row", ref.Qualifier),
					})
					return
				}
			}
		}
	})
	return warnings
}
