package rulesource

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MetricNotFoundError reports an unknown metric name, optionally carrying
// close-match suggestions for diagnostics.
type MetricNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *MetricNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("metric %q not found", e.Name)
	}
	return fmt.Sprintf("metric %q not found (did you mean: %s?)", e.Name, strings.Join(e.Suggestions, ", "))
}

// NotFound builds a MetricNotFoundError with suggestions drawn from the
// known names.
func NotFound(name string, known []string) *MetricNotFoundError {
	return &MetricNotFoundError{Name: name, Suggestions: suggest(name, known, 3)}
}

// FetchError reports a rule source failure. Transport and server errors are
// retryable; malformed responses are not.
type FetchError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("rule source %s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a FetchError worth retrying.
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable
}

// suggest returns up to limit known names close to the requested one,
// matching on case-insensitive prefix or substring.
func suggest(name string, known []string, limit int) []string {
	needle := strings.ToLower(name)
	var out []string
	for _, k := range known {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, needle) || strings.Contains(lk, needle) || strings.HasPrefix(needle, lk) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
