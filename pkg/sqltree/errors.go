package sqltree

import (
	"fmt"

	"github.com/leapstack-labs/sqlshift/pkg/token"
)

// ParseError reports that the tree adapter rejected the input SQL.
// It carries the original SQL so callers can fall back to it verbatim.
type ParseError struct {
	SQL     string
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}
