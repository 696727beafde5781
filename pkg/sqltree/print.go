package sqltree

import (
	"sort"
	"strings"
)

// Print renders the tree back to SQL. Replaced table references are spliced
// into the original text at their recorded spans; everything else is emitted
// byte for byte as it was written, comments and whitespace included.
func (t *Tree) Print() string {
	var replaced []*TableRef
	for _, ref := range t.TableRefs() {
		if ref.Replaced() {
			replaced = append(replaced, ref)
		}
	}
	if len(replaced) == 0 {
		return t.src
	}

	// Splice back to front so earlier spans stay valid.
	sort.Slice(replaced, func(i, j int) bool { return replaced[i].Start > replaced[j].Start })

	var b strings.Builder
	out := t.src
	for _, ref := range replaced {
		b.Reset()
		b.WriteString(out[:ref.Start])
		b.WriteString(t.d.QuotePath(ref.NewParts()))
		b.WriteString(out[ref.End:])
		out = b.String()
	}
	return out
}
