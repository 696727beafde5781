// Package token defines the lexical token types for SQL scanning.
package token

import "fmt"

// Type represents the type of a lexical token.
type Type int32

const (
	// Special tokens
	EOF Type = iota
	ILLEGAL

	// Literals
	IDENT  // identifier (bare or quoted)
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'

	// Operators and punctuation
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	DPIPE     // ||
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	DOT       // .
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	SEMICOLON // ;
	COLON     // :
	DCOLON    // ::

	// Keywords (alphabetical)
	ALL
	AND
	AS
	ASC
	BETWEEN
	BY
	CASE
	CAST
	CREATE
	CROSS
	DELETE
	DESC
	DISTINCT
	DROP
	ELSE
	END
	EXCEPT
	EXISTS
	FALSE
	FROM
	FULL
	GROUP
	HAVING
	IF
	IN
	INNER
	INSERT
	INTERSECT
	INTO
	IS
	JOIN
	LATERAL
	LEFT
	LIKE
	LIMIT
	NOT
	NULL
	OFFSET
	ON
	OR
	ORDER
	OUTER
	RECURSIVE
	REPLACE
	RIGHT
	SELECT
	SET
	TABLE
	THEN
	TRUE
	TRUNCATE
	UNION
	UPDATE
	USING
	VALUES
	VIEW
	WHEN
	WHERE
	WINDOW
	WITH
)

// Position identifies a location in the SQL source.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // 0-based byte offset
}

// Token represents a lexical token with source span information.
type Token struct {
	Type    Type
	Literal string   // decoded literal (quotes stripped for strings/identifiers)
	Quoted  bool     // true for quoted identifiers
	Pos     Position // start of the token
	End     int      // byte offset just past the token
}

var tokenNames = map[Type]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	DPIPE:     "||",
	EQ:        "=",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	DOT:       ".",
	COMMA:     ",",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	SEMICOLON: ";",
	COLON:     ":",
	DCOLON:    "::",

	ALL:       "ALL",
	AND:       "AND",
	AS:        "AS",
	ASC:       "ASC",
	BETWEEN:   "BETWEEN",
	BY:        "BY",
	CASE:      "CASE",
	CAST:      "CAST",
	CREATE:    "CREATE",
	CROSS:     "CROSS",
	DELETE:    "DELETE",
	DESC:      "DESC",
	DISTINCT:  "DISTINCT",
	DROP:      "DROP",
	ELSE:      "ELSE",
	END:       "END",
	EXCEPT:    "EXCEPT",
	EXISTS:    "EXISTS",
	FALSE:     "FALSE",
	FROM:      "FROM",
	FULL:      "FULL",
	GROUP:     "GROUP",
	HAVING:    "HAVING",
	IF:        "IF",
	IN:        "IN",
	INNER:     "INNER",
	INSERT:    "INSERT",
	INTERSECT: "INTERSECT",
	INTO:      "INTO",
	IS:        "IS",
	JOIN:      "JOIN",
	LATERAL:   "LATERAL",
	LEFT:      "LEFT",
	LIKE:      "LIKE",
	LIMIT:     "LIMIT",
	NOT:       "NOT",
	NULL:      "NULL",
	OFFSET:    "OFFSET",
	ON:        "ON",
	OR:        "OR",
	ORDER:     "ORDER",
	OUTER:     "OUTER",
	RECURSIVE: "RECURSIVE",
	REPLACE:   "REPLACE",
	RIGHT:     "RIGHT",
	SELECT:    "SELECT",
	SET:       "SET",
	TABLE:     "TABLE",
	THEN:      "THEN",
	TRUE:      "TRUE",
	TRUNCATE:  "TRUNCATE",
	UNION:     "UNION",
	UPDATE:    "UPDATE",
	USING:     "USING",
	VALUES:    "VALUES",
	VIEW:      "VIEW",
	WHEN:      "WHEN",
	WHERE:     "WHERE",
	WINDOW:    "WINDOW",
	WITH:      "WITH",
}

// String returns a human-readable representation of the token type.
func (t Type) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]Type{
	"all":       ALL,
	"and":       AND,
	"as":        AS,
	"asc":       ASC,
	"between":   BETWEEN,
	"by":        BY,
	"case":      CASE,
	"cast":      CAST,
	"create":    CREATE,
	"cross":     CROSS,
	"delete":    DELETE,
	"desc":      DESC,
	"distinct":  DISTINCT,
	"drop":      DROP,
	"else":      ELSE,
	"end":       END,
	"except":    EXCEPT,
	"exists":    EXISTS,
	"false":     FALSE,
	"from":      FROM,
	"full":      FULL,
	"group":     GROUP,
	"having":    HAVING,
	"if":        IF,
	"in":        IN,
	"inner":     INNER,
	"insert":    INSERT,
	"intersect": INTERSECT,
	"into":      INTO,
	"is":        IS,
	"join":      JOIN,
	"lateral":   LATERAL,
	"left":      LEFT,
	"like":      LIKE,
	"limit":     LIMIT,
	"not":       NOT,
	"null":      NULL,
	"offset":    OFFSET,
	"on":        ON,
	"or":        OR,
	"order":     ORDER,
	"outer":     OUTER,
	"recursive": RECURSIVE,
	"replace":   REPLACE,
	"right":     RIGHT,
	"select":    SELECT,
	"set":       SET,
	"table":     TABLE,
	"then":      THEN,
	"true":      TRUE,
	"truncate":  TRUNCATE,
	"union":     UNION,
	"update":    UPDATE,
	"using":     USING,
	"values":    VALUES,
	"view":      VIEW,
	"when":      WHEN,
	"where":     WHERE,
	"window":    WINDOW,
	"with":      WITH,
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a keyword, the keyword token type is returned,
// otherwise IDENT.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t Type) bool {
	return t >= ALL && t <= WITH
}

// IsReservedWord returns true if the lowercase string is a SQL keyword.
// Used by printers to decide whether an identifier must be quoted.
func IsReservedWord(s string) bool {
	_, ok := keywords[s]
	return ok
}
