// Package sqltree parses SQL into a lightweight statement tree whose table
// references can be enumerated and rewritten, then printed back with the
// surrounding text untouched. It is a structural parser: clauses and
// expressions are scanned for the nodes the transpile pipeline cares about
// (table references, star projections, statement kinds, LIMIT presence, CTE
// names, subqueries) rather than fully grammar-checked.
package sqltree

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlshift/pkg/dialect"
	"github.com/leapstack-labs/sqlshift/pkg/token"
)

// StatementKind identifies the kind of a parsed statement.
type StatementKind int

const (
	KindSelect StatementKind = iota
	KindInsert
	KindUpdate
	KindDelete
	KindDrop
	KindTruncate
	KindCreate
)

var kindNames = map[StatementKind]string{
	KindSelect:   "SELECT",
	KindInsert:   "INSERT",
	KindUpdate:   "UPDATE",
	KindDelete:   "DELETE",
	KindDrop:     "DROP",
	KindTruncate: "TRUNCATE",
	KindCreate:   "CREATE",
}

func (k StatementKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Statement is a parsed SQL statement node.
type Statement interface {
	Kind() StatementKind
	Scope() *Scope
}

// Scope collects the nodes found at one statement level. Nested statements
// (subqueries, CTE bodies, set-operation arms) appear as Children with their
// scope's Parent pointing back here.
type Scope struct {
	Tables   []*TableRef
	Stars    []*Star
	CTEs     []*CTE
	QualRefs []QualRef
	Children []Statement
	Parent   *Scope

	localNames map[string]struct{}
}

// addLocalName records a table name or alias visible in this scope.
func (s *Scope) addLocalName(name string) {
	if name == "" {
		return
	}
	if s.localNames == nil {
		s.localNames = make(map[string]struct{})
	}
	s.localNames[strings.ToLower(name)] = struct{}{}
}

// HasLocalName reports whether the lower-cased name is defined in this scope.
func (s *Scope) HasLocalName(name string) bool {
	_, ok := s.localNames[name]
	return ok
}

// TableRef is a mutable table reference with up to three dotted parts
// (catalog, schema, table). Start/End span the dotted name in the source,
// excluding any alias.
type TableRef struct {
	Parts []string
	Start int
	End   int

	repl []string
}

// Path returns the lower-cased dotted path as written.
func (t *TableRef) Path() string {
	return strings.ToLower(strings.Join(t.Parts, "."))
}

// Name returns the lower-cased final (table) part.
func (t *TableRef) Name() string {
	if len(t.Parts) == 0 {
		return ""
	}
	return strings.ToLower(t.Parts[len(t.Parts)-1])
}

// SetParts replaces the reference with a new dotted path. The whole node is
// rewritten at print time regardless of how many parts it originally had.
func (t *TableRef) SetParts(parts []string) {
	t.repl = parts
}

// Replaced reports whether SetParts has been called.
func (t *TableRef) Replaced() bool {
	return t.repl != nil
}

// NewParts returns the replacement path, or nil if the node is untouched.
func (t *TableRef) NewParts() []string {
	return t.repl
}

// Star is a star projection node (`*` or `t.*`).
type Star struct {
	Pos token.Position
}

// CTE is a common table expression binding.
type CTE struct {
	Name string
	Pos  token.Position
}

// QualRef records a qualified column reference (qualifier.column) seen while
// scanning expressions. Used for correlated-subquery detection.
type QualRef struct {
	Qualifier string // lower-cased
}

// SelectStmt is a SELECT statement, possibly a set-operation chain.
type SelectStmt struct {
	scope Scope

	// HasLimit is true if a LIMIT applies to this statement, including a
	// LIMIT written after a trailing set-operation arm.
	HasLimit bool

	// HasSetOp is true if the statement is a UNION/EXCEPT/INTERSECT chain.
	HasSetOp bool

	// InExpr is true for subqueries appearing inside expressions (WHERE,
	// select list, ...) as opposed to derived tables in FROM.
	InExpr bool
}

func (s *SelectStmt) Kind() StatementKind { return KindSelect }
func (s *SelectStmt) Scope() *Scope       { return &s.scope }

// InsertStmt is an INSERT statement.
type InsertStmt struct {
	scope Scope
}

func (s *InsertStmt) Kind() StatementKind { return KindInsert }
func (s *InsertStmt) Scope() *Scope       { return &s.scope }

// UpdateStmt is an UPDATE statement.
type UpdateStmt struct {
	scope Scope
}

func (s *UpdateStmt) Kind() StatementKind { return KindUpdate }
func (s *UpdateStmt) Scope() *Scope       { return &s.scope }

// DeleteStmt is a DELETE statement.
type DeleteStmt struct {
	scope Scope
}

func (s *DeleteStmt) Kind() StatementKind { return KindDelete }
func (s *DeleteStmt) Scope() *Scope       { return &s.scope }

// DropStmt is a DROP TABLE/VIEW statement.
type DropStmt struct {
	scope  Scope
	Object string // "TABLE" or "VIEW"
}

func (s *DropStmt) Kind() StatementKind { return KindDrop }
func (s *DropStmt) Scope() *Scope       { return &s.scope }

// TruncateStmt is a TRUNCATE [TABLE] statement.
type TruncateStmt struct {
	scope Scope
}

func (s *TruncateStmt) Kind() StatementKind { return KindTruncate }
func (s *TruncateStmt) Scope() *Scope       { return &s.scope }

// CreateStmt is a CREATE [OR REPLACE] TABLE/VIEW [AS ...] statement.
type CreateStmt struct {
	scope  Scope
	Object string // "TABLE" or "VIEW"
}

func (s *CreateStmt) Kind() StatementKind { return KindCreate }
func (s *CreateStmt) Scope() *Scope       { return &s.scope }

// Tree is one parsed SQL script. It is exclusively owned by the call that
// created it and must not be shared across goroutines.
type Tree struct {
	src   string
	d     *dialect.Dialect
	stmts []Statement
}

// Statements returns the top-level statements in source order.
func (t *Tree) Statements() []Statement {
	return t.stmts
}

// Walk visits every statement depth-first, including nested subqueries and
// CTE bodies.
func (t *Tree) Walk(fn func(Statement)) {
	var visit func(Statement)
	visit = func(s Statement) {
		fn(s)
		for _, child := range s.Scope().Children {
			visit(child)
		}
	}
	for _, s := range t.stmts {
		visit(s)
	}
}

// TableRefs returns every table reference in the tree in source order.
func (t *Tree) TableRefs() []*TableRef {
	var refs []*TableRef
	t.Walk(func(s Statement) {
		refs = append(refs, s.Scope().Tables...)
	})
	sort.Slice(refs, func(i, j int) bool { return refs[i].Start < refs[j].Start })
	return refs
}

// Stars returns every star projection node in the tree.
func (t *Tree) Stars() []*Star {
	var stars []*Star
	t.Walk(func(s Statement) {
		stars = append(stars, s.Scope().Stars...)
	})
	return stars
}
