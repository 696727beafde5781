// Package metric expands METRIC() macros into registered metric expressions.
//
// Matching is lexical: occurrences are located by pattern against the SQL
// text, then replaced back to front so earlier offsets stay valid.
package metric

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMaxMetrics is the per-query ceiling on METRIC() occurrences.
const DefaultMaxMetrics = 1

// Resolver maps a metric name to its SQL expression. A non-nil error means
// the occurrence cannot be expanded; the error is reported as-is.
type Resolver func(name string) (string, error)

// match is one METRIC() occurrence. Offsets are only valid against the SQL
// snapshot they were computed from.
type match struct {
	full  string
	name  string
	start int
	end   int
}

// The keyword is case-insensitive; the name is a bare identifier or a
// single/double-quoted string and keeps its case.
var metricPattern = regexp.MustCompile(`(?i)\bMETRIC\s*\(\s*(?:'([^']*)'|"([^"]*)"|([A-Za-z_][A-Za-z0-9_]*))\s*\)`)

func findMatches(sql string) []match {
	var matches []match
	for _, idx := range metricPattern.FindAllStringSubmatchIndex(sql, -1) {
		m := match{full: sql[idx[0]:idx[1]], start: idx[0], end: idx[1]}
		for _, g := range []int{1, 2, 3} {
			if idx[2*g] >= 0 {
				m.name = sql[idx[2*g]:idx[2*g+1]]
				break
			}
		}
		matches = append(matches, m)
	}
	return matches
}

// Expand replaces METRIC() occurrences in sql with the resolved expressions,
// each wrapped in parentheses. Occurrences that fail to resolve stay literal
// and contribute one error each; the rest are still expanded.
//
// If the occurrence count exceeds maxMetrics the original SQL is returned
// unchanged with a single aggregated error naming every occurrence.
// A maxMetrics of zero or less means DefaultMaxMetrics.
func Expand(sql string, resolve Resolver, maxMetrics int) (string, []error) {
	if maxMetrics <= 0 {
		maxMetrics = DefaultMaxMetrics
	}

	matches := findMatches(sql)
	if len(matches) == 0 {
		return sql, nil
	}
	if len(matches) > maxMetrics {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.full
		}
		return sql, []error{fmt.Errorf("query contains %d METRIC() occurrences, limit is %d: %s",
			len(matches), maxMetrics, strings.Join(names, ", "))}
	}

	var errs []error
	out := sql
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		expr, err := resolve(m.name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = out[:m.start] + "(" + expr + ")" + out[m.end:]
	}
	return out, errs
}
