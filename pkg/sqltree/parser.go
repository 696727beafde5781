package sqltree

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlshift/pkg/dialect"
	"github.com/leapstack-labs/sqlshift/pkg/token"
)

// Parse parses sql into a Tree for the given dialect. A nil dialect falls
// back to the default. The returned error is always a *ParseError.
func Parse(sql string, d *dialect.Dialect) (*Tree, error) {
	if d == nil {
		d = dialect.MustGet(dialect.DefaultName)
	}

	toks := tokenize(sql)
	for _, tk := range toks {
		if tk.Type == token.ILLEGAL {
			msg := tk.Literal
			if len(msg) == 1 {
				msg = fmt.Sprintf("unexpected character %q", msg)
			}
			return nil, &ParseError{SQL: sql, Pos: tk.Pos, Message: msg}
		}
	}

	p := &parser{toks: toks, src: sql}
	tree := &Tree{src: sql, d: d}
	for {
		for p.cur().Type == token.SEMICOLON {
			p.advance()
		}
		if p.cur().Type == token.EOF {
			break
		}
		stmt, err := p.parseStatement(nil, false)
		if err != nil {
			return nil, err
		}
		tree.stmts = append(tree.stmts, stmt)
		switch p.cur().Type {
		case token.SEMICOLON:
			p.advance()
		case token.EOF:
		default:
			return nil, p.errAt(p.cur(), "unexpected token %s after statement", p.cur().Type)
		}
	}
	return tree, nil
}

type parser struct {
	toks []token.Token
	src  string
	i    int
}

func (p *parser) cur() token.Token {
	return p.toks[p.i]
}

// at returns the token k positions ahead, clamped to EOF.
func (p *parser) at(k int) token.Token {
	idx := p.i + k
	if idx >= len(p.toks) {
		idx = len(p.toks) - 1
	}
	return p.toks[idx]
}

func (p *parser) prev() token.Token {
	if p.i == 0 {
		return token.Token{}
	}
	return p.toks[p.i-1]
}

func (p *parser) advance() {
	if p.toks[p.i].Type != token.EOF {
		p.i++
	}
}

func (p *parser) errAt(tok token.Token, format string, args ...any) *ParseError {
	return &ParseError{SQL: p.src, Pos: tok.Pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(t token.Type) error {
	if p.cur().Type != t {
		return p.errAt(p.cur(), "expected %s, found %s", t, p.cur().Type)
	}
	p.advance()
	return nil
}

// clauseStops are the tokens that end an expression scan at a clause
// boundary within a SELECT.
var clauseStops = map[token.Type]bool{
	token.FROM:      true,
	token.WHERE:     true,
	token.GROUP:     true,
	token.HAVING:    true,
	token.WINDOW:    true,
	token.ORDER:     true,
	token.LIMIT:     true,
	token.OFFSET:    true,
	token.UNION:     true,
	token.EXCEPT:    true,
	token.INTERSECT: true,
}

// joinStops additionally end a JOIN ... ON expression.
var joinStops = mergeStops(clauseStops, map[token.Type]bool{
	token.JOIN:  true,
	token.INNER: true,
	token.LEFT:  true,
	token.RIGHT: true,
	token.FULL:  true,
	token.CROSS: true,
	token.COMMA: true,
	token.USING: true,
})

// updateStops end the SET assignment list of an UPDATE.
var updateStops = map[token.Type]bool{
	token.FROM:  true,
	token.WHERE: true,
}

func mergeStops(maps ...map[token.Type]bool) map[token.Type]bool {
	out := make(map[token.Type]bool)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// scanExpr consumes expression tokens until EOF, a semicolon, an unbalanced
// closing paren, or a stop token at paren depth zero. Along the way it
// records star projections (when selectList is set), qualified column
// references, and nested subquery statements.
func (p *parser) scanExpr(sc *Scope, stop map[token.Type]bool, selectList bool) error {
	depth := 0
	for {
		tok := p.cur()
		switch tok.Type {
		case token.EOF, token.SEMICOLON:
			return nil
		case token.LPAREN:
			if t := p.at(1).Type; t == token.SELECT || t == token.WITH {
				p.advance() // (
				child, err := p.parseStatement(sc, true)
				if err != nil {
					return err
				}
				sc.Children = append(sc.Children, child)
				if err := p.expect(token.RPAREN); err != nil {
					return err
				}
				continue
			}
			depth++
			p.advance()
		case token.RPAREN:
			if depth == 0 {
				return nil
			}
			depth--
			p.advance()
		case token.STAR:
			if selectList && depth == 0 && starAllowedAfter(p.prev().Type) {
				sc.Stars = append(sc.Stars, &Star{Pos: tok.Pos})
			}
			p.advance()
		case token.IDENT:
			if p.prev().Type != token.DOT && p.at(1).Type == token.DOT {
				if t := p.at(2).Type; t == token.IDENT || t == token.STAR {
					sc.QualRefs = append(sc.QualRefs, QualRef{Qualifier: strings.ToLower(tok.Literal)})
				}
			}
			p.advance()
		default:
			if depth == 0 && stop[tok.Type] {
				return nil
			}
			p.advance()
		}
	}
}

// starAllowedAfter reports whether a STAR following the given token is a
// star projection rather than multiplication. COUNT(*) is deliberately not
// a projection.
func starAllowedAfter(t token.Type) bool {
	switch t {
	case token.SELECT, token.DISTINCT, token.ALL, token.COMMA, token.DOT:
		return true
	}
	return false
}

// skipBalanced consumes a balanced parenthesized token group.
func (p *parser) skipBalanced() error {
	if err := p.expect(token.LPAREN); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		switch p.cur().Type {
		case token.EOF:
			return p.errAt(p.cur(), "unexpected end of input, expected )")
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		p.advance()
	}
	return nil
}

func (p *parser) parseStatement(parent *Scope, inExpr bool) (Statement, error) {
	switch p.cur().Type {
	case token.WITH:
		return p.parseWith(parent, inExpr)
	case token.SELECT:
		return p.parseSelect(parent, inExpr)
	case token.LPAREN:
		p.advance()
		inner, err := p.parseStatement(parent, inExpr)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		// ORDER BY/LIMIT/set operations may trail the closing paren and
		// apply to the parenthesized statement.
		if sel, ok := inner.(*SelectStmt); ok {
			if err := p.parseSelectClauses(sel); err != nil {
				return nil, err
			}
		}
		return inner, nil
	case token.INSERT:
		return p.parseInsert(parent)
	case token.UPDATE:
		return p.parseUpdate(parent)
	case token.DELETE:
		return p.parseDelete(parent)
	case token.DROP:
		return p.parseDrop(parent)
	case token.TRUNCATE:
		return p.parseTruncate(parent)
	case token.CREATE:
		return p.parseCreate(parent)
	default:
		return nil, p.errAt(p.cur(), "expected statement, found %s", p.cur().Type)
	}
}

func (p *parser) parseWith(parent *Scope, inExpr bool) (Statement, error) {
	p.advance() // WITH
	if p.cur().Type == token.RECURSIVE {
		p.advance()
	}

	var ctes []*CTE
	var bodies []Statement
	for {
		nameTok := p.cur()
		if nameTok.Type != token.IDENT {
			return nil, p.errAt(nameTok, "expected CTE name, found %s", nameTok.Type)
		}
		p.advance()
		if p.cur().Type == token.LPAREN && p.at(1).Type == token.IDENT {
			// optional column list: WITH x (a, b) AS (...)
			if err := p.skipBalanced(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(token.AS); err != nil {
			return nil, err
		}
		if err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		body, err := p.parseStatement(parent, false)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		ctes = append(ctes, &CTE{Name: nameTok.Literal, Pos: nameTok.Pos})
		bodies = append(bodies, body)

		if p.cur().Type == token.COMMA {
			p.advance()
			continue
		}
		break
	}

	main, err := p.parseStatement(parent, inExpr)
	if err != nil {
		return nil, err
	}
	sc := main.Scope()
	sc.CTEs = append(ctes, sc.CTEs...)
	sc.Children = append(bodies, sc.Children...)
	for _, body := range bodies {
		body.Scope().Parent = sc
	}
	for _, cte := range ctes {
		sc.addLocalName(cte.Name)
	}
	return main, nil
}

func (p *parser) parseSelect(parent *Scope, inExpr bool) (*SelectStmt, error) {
	stmt := &SelectStmt{InExpr: inExpr}
	stmt.scope.Parent = parent

	if err := p.expect(token.SELECT); err != nil {
		return nil, err
	}
	if t := p.cur().Type; t == token.DISTINCT || t == token.ALL {
		p.advance()
	}

	switch t := p.cur().Type; {
	case t == token.EOF || t == token.SEMICOLON || t == token.RPAREN || clauseStops[t]:
		return nil, p.errAt(p.cur(), "expected select expression, found %s", t)
	}
	if err := p.scanExpr(&stmt.scope, clauseStops, true); err != nil {
		return nil, err
	}

	if p.cur().Type == token.FROM {
		p.advance()
		if err := p.parseFromList(&stmt.scope); err != nil {
			return nil, err
		}
	}

	if err := p.parseSelectClauses(stmt); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseSelectClauses consumes the trailing clauses of a SELECT: filters,
// grouping, ordering, LIMIT/OFFSET, and set-operation arms. It stops at a
// token it does not own (EOF, semicolon, the caller's closing paren).
func (p *parser) parseSelectClauses(stmt *SelectStmt) error {
	sc := &stmt.scope
	for {
		switch p.cur().Type {
		case token.WHERE, token.HAVING, token.WINDOW:
			p.advance()
			if err := p.scanExpr(sc, clauseStops, false); err != nil {
				return err
			}
		case token.GROUP, token.ORDER:
			p.advance()
			if err := p.expect(token.BY); err != nil {
				return err
			}
			if err := p.scanExpr(sc, clauseStops, false); err != nil {
				return err
			}
		case token.LIMIT:
			stmt.HasLimit = true
			p.advance()
			if err := p.scanExpr(sc, clauseStops, false); err != nil {
				return err
			}
		case token.OFFSET:
			p.advance()
			if err := p.scanExpr(sc, clauseStops, false); err != nil {
				return err
			}
		case token.UNION, token.EXCEPT, token.INTERSECT:
			stmt.HasSetOp = true
			p.advance()
			if t := p.cur().Type; t == token.ALL || t == token.DISTINCT {
				p.advance()
			}
			var arm Statement
			var err error
			switch p.cur().Type {
			case token.SELECT, token.WITH:
				arm, err = p.parseStatement(sc, false)
			case token.LPAREN:
				p.advance()
				arm, err = p.parseStatement(sc, false)
				if err == nil {
					err = p.expect(token.RPAREN)
				}
			default:
				err = p.errAt(p.cur(), "expected SELECT after set operation, found %s", p.cur().Type)
			}
			if err != nil {
				return err
			}
			sc.Children = append(sc.Children, arm)
			// A LIMIT written after the final arm applies to the chain.
			if sel, ok := arm.(*SelectStmt); ok && sel.HasLimit {
				stmt.HasLimit = true
			}
		default:
			return nil
		}
	}
}

func (p *parser) parseFromList(sc *Scope) error {
	if err := p.parseTableExpr(sc); err != nil {
		return err
	}
	for {
		switch p.cur().Type {
		case token.COMMA:
			p.advance()
			if err := p.parseTableExpr(sc); err != nil {
				return err
			}
		case token.INNER, token.CROSS:
			p.advance()
			if err := p.expect(token.JOIN); err != nil {
				return err
			}
			if err := p.parseJoinTarget(sc); err != nil {
				return err
			}
		case token.LEFT, token.RIGHT, token.FULL:
			p.advance()
			if p.cur().Type == token.OUTER {
				p.advance()
			}
			if err := p.expect(token.JOIN); err != nil {
				return err
			}
			if err := p.parseJoinTarget(sc); err != nil {
				return err
			}
		case token.JOIN:
			p.advance()
			if err := p.parseJoinTarget(sc); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *parser) parseJoinTarget(sc *Scope) error {
	if err := p.parseTableExpr(sc); err != nil {
		return err
	}
	switch p.cur().Type {
	case token.ON:
		p.advance()
		return p.scanExpr(sc, joinStops, false)
	case token.USING:
		p.advance()
		return p.skipBalanced()
	}
	return nil
}

func (p *parser) parseTableExpr(sc *Scope) error {
	switch p.cur().Type {
	case token.LATERAL:
		p.advance()
		return p.parseTableExpr(sc)
	case token.LPAREN:
		if t := p.at(1).Type; t == token.SELECT || t == token.WITH {
			p.advance()
			child, err := p.parseStatement(sc, false)
			if err != nil {
				return err
			}
			sc.Children = append(sc.Children, child)
			if err := p.expect(token.RPAREN); err != nil {
				return err
			}
			return p.parseAlias(sc, nil)
		}
		// parenthesized join
		p.advance()
		if err := p.parseFromList(sc); err != nil {
			return err
		}
		return p.expect(token.RPAREN)
	case token.IDENT:
		ref, err := p.parseQualifiedName()
		if err != nil {
			return err
		}
		if p.cur().Type == token.LPAREN {
			// Table function, e.g. read_csv('file.csv'): not a table
			// reference. Arguments may still contain subqueries.
			p.advance()
			if err := p.scanExpr(sc, nil, false); err != nil {
				return err
			}
			if err := p.expect(token.RPAREN); err != nil {
				return err
			}
			return p.parseAlias(sc, nil)
		}
		sc.Tables = append(sc.Tables, ref)
		return p.parseAlias(sc, ref)
	default:
		return p.errAt(p.cur(), "expected table reference, found %s", p.cur().Type)
	}
}

// parseQualifiedName reads a dotted identifier chain into a TableRef.
func (p *parser) parseQualifiedName() (*TableRef, error) {
	first := p.cur()
	if first.Type != token.IDENT {
		return nil, p.errAt(first, "expected identifier, found %s", first.Type)
	}
	parts := []string{first.Literal}
	end := first.End
	p.advance()
	for p.cur().Type == token.DOT {
		p.advance()
		t := p.cur()
		if t.Type != token.IDENT {
			return nil, p.errAt(t, "expected identifier after '.', found %s", t.Type)
		}
		parts = append(parts, t.Literal)
		end = t.End
		p.advance()
	}
	return &TableRef{Parts: parts, Start: first.Pos.Offset, End: end}, nil
}

// parseAlias consumes an optional [AS] alias and records the visible name.
func (p *parser) parseAlias(sc *Scope, ref *TableRef) error {
	switch p.cur().Type {
	case token.AS:
		p.advance()
		t := p.cur()
		if t.Type != token.IDENT {
			return p.errAt(t, "expected alias after AS, found %s", t.Type)
		}
		sc.addLocalName(t.Literal)
		p.advance()
		return nil
	case token.IDENT:
		sc.addLocalName(p.cur().Literal)
		p.advance()
		return nil
	}
	if ref != nil {
		sc.addLocalName(ref.Name())
	}
	return nil
}

func (p *parser) parseInsert(parent *Scope) (Statement, error) {
	stmt := &InsertStmt{}
	sc := &stmt.scope
	sc.Parent = parent

	p.advance() // INSERT
	if err := p.expect(token.INTO); err != nil {
		return nil, err
	}
	ref, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	sc.Tables = append(sc.Tables, ref)
	sc.addLocalName(ref.Name())

	if p.cur().Type == token.LPAREN && p.at(1).Type != token.SELECT && p.at(1).Type != token.WITH {
		if err := p.skipBalanced(); err != nil {
			return nil, err
		}
	}

	switch p.cur().Type {
	case token.VALUES:
		p.advance()
		if err := p.scanExpr(sc, nil, false); err != nil {
			return nil, err
		}
	case token.SELECT, token.WITH, token.LPAREN:
		child, err := p.parseStatement(sc, false)
		if err != nil {
			return nil, err
		}
		sc.Children = append(sc.Children, child)
	default:
		return nil, p.errAt(p.cur(), "expected VALUES or SELECT, found %s", p.cur().Type)
	}
	return stmt, nil
}

func (p *parser) parseUpdate(parent *Scope) (Statement, error) {
	stmt := &UpdateStmt{}
	sc := &stmt.scope
	sc.Parent = parent

	p.advance() // UPDATE
	ref, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	sc.Tables = append(sc.Tables, ref)
	if p.cur().Type != token.SET {
		if err := p.parseAlias(sc, ref); err != nil {
			return nil, err
		}
	} else {
		sc.addLocalName(ref.Name())
	}

	if err := p.expect(token.SET); err != nil {
		return nil, err
	}
	if err := p.scanExpr(sc, updateStops, false); err != nil {
		return nil, err
	}
	if p.cur().Type == token.FROM {
		p.advance()
		if err := p.parseFromList(sc); err != nil {
			return nil, err
		}
	}
	if p.cur().Type == token.WHERE {
		p.advance()
		if err := p.scanExpr(sc, nil, false); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *parser) parseDelete(parent *Scope) (Statement, error) {
	stmt := &DeleteStmt{}
	sc := &stmt.scope
	sc.Parent = parent

	p.advance() // DELETE
	if err := p.expect(token.FROM); err != nil {
		return nil, err
	}
	ref, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	sc.Tables = append(sc.Tables, ref)
	if err := p.parseAlias(sc, ref); err != nil {
		return nil, err
	}

	if p.cur().Type == token.USING {
		p.advance()
		if err := p.parseFromList(sc); err != nil {
			return nil, err
		}
	}
	if p.cur().Type == token.WHERE {
		p.advance()
		if err := p.scanExpr(sc, nil, false); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *parser) parseDrop(parent *Scope) (Statement, error) {
	stmt := &DropStmt{}
	sc := &stmt.scope
	sc.Parent = parent

	p.advance() // DROP
	switch p.cur().Type {
	case token.TABLE:
		stmt.Object = "TABLE"
	case token.VIEW:
		stmt.Object = "VIEW"
	default:
		return nil, p.errAt(p.cur(), "expected TABLE or VIEW after DROP, found %s", p.cur().Type)
	}
	p.advance()

	if p.cur().Type == token.IF {
		p.advance()
		if err := p.expect(token.EXISTS); err != nil {
			return nil, err
		}
	}

	for {
		ref, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		sc.Tables = append(sc.Tables, ref)
		if p.cur().Type != token.COMMA {
			break
		}
		p.advance()
	}
	// trailing options such as CASCADE
	return stmt, p.scanExpr(sc, nil, false)
}

func (p *parser) parseTruncate(parent *Scope) (Statement, error) {
	stmt := &TruncateStmt{}
	sc := &stmt.scope
	sc.Parent = parent

	p.advance() // TRUNCATE
	if p.cur().Type == token.TABLE {
		p.advance()
	}
	for {
		ref, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		sc.Tables = append(sc.Tables, ref)
		if p.cur().Type != token.COMMA {
			break
		}
		p.advance()
	}
	return stmt, p.scanExpr(sc, nil, false)
}

func (p *parser) parseCreate(parent *Scope) (Statement, error) {
	stmt := &CreateStmt{}
	sc := &stmt.scope
	sc.Parent = parent

	p.advance() // CREATE
	if p.cur().Type == token.OR {
		p.advance()
		if err := p.expect(token.REPLACE); err != nil {
			return nil, err
		}
	}
	switch p.cur().Type {
	case token.TABLE:
		stmt.Object = "TABLE"
	case token.VIEW:
		stmt.Object = "VIEW"
	default:
		return nil, p.errAt(p.cur(), "expected TABLE or VIEW after CREATE, found %s", p.cur().Type)
	}
	p.advance()

	if p.cur().Type == token.IF {
		p.advance()
		if err := p.expect(token.NOT); err != nil {
			return nil, err
		}
		if err := p.expect(token.EXISTS); err != nil {
			return nil, err
		}
	}

	ref, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	sc.Tables = append(sc.Tables, ref)

	if p.cur().Type == token.LPAREN {
		// column definition list
		if err := p.skipBalanced(); err != nil {
			return nil, err
		}
	}
	if p.cur().Type == token.AS {
		p.advance()
		child, err := p.parseStatement(sc, false)
		if err != nil {
			return nil, err
		}
		sc.Children = append(sc.Children, child)
	}
	return stmt, p.scanExpr(sc, nil, false)
}
