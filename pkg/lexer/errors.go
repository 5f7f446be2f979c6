package lexer

import (
	"fmt"

	"github.com/leapstack-labs/sqlveil/pkg/token"
)

// ParseError reports malformed SQL that cannot be tokenized. It carries the
// offset of the offending construct so a caller can highlight it; lexing is
// never resumed past a ParseError.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Offset returns the byte offset of the error in the source.
func (e *ParseError) Offset() int {
	return e.Pos.Offset
}

// Common error messages.
const (
	ErrUnterminatedString  = "unterminated string literal"
	ErrUnterminatedComment = "unterminated block comment"
	ErrUnterminatedIdent   = "unterminated quoted identifier"
)
