// Package token defines the lexical token types for SQL masking.
//
// ANSI core tokens are defined as constants (IDs 0-999) for switch performance.
// Additional reserved keywords can be registered dynamically via RegisterKeyword.
package token

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'

	// Trivia (kept in the stream so spans are gap-free)
	WHITESPACE // spaces, tabs, newlines
	COMMENT    // -- line or /* block */

	// Operators (ANSI)
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	DPIPE   // ||
	EQ      // =
	NE      // != or <>
	LT      // <
	GT      // >
	LE      // <=
	GE      // >=

	// Punctuation
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )

	// ANSI Keywords (alphabetical)
	ALL
	AND
	AS
	ASC
	BEGIN
	BETWEEN
	BY
	CASE
	CAST
	CREATE
	CROSS
	CURRENT
	DECLARE
	DELETE
	DESC
	DISTINCT
	DROP
	ELSE
	ELSEIF
	END
	ESCAPE
	EXCEPT
	EXISTS
	FALSE
	FETCH
	FILTER
	FIRST
	FOLLOWING
	FOR
	FROM
	FULL
	GROUP
	GROUPS
	HAVING
	IF
	IN
	INNER
	INSERT
	INTERSECT
	INTERVAL
	INTO
	IS
	JOIN
	LAST
	LATERAL
	LEFT
	LIKE
	LIMIT
	LOOP
	NATURAL
	NOT
	NULL
	NULLS
	OFFSET
	ON
	OR
	ORDER
	OUTER
	OVER
	PARTITION
	PRECEDING
	PROCEDURE
	RANGE
	RECURSIVE
	RETURN
	RIGHT
	ROW
	ROWS
	SELECT
	SET
	TABLE
	THEN
	TRUE
	UNBOUNDED
	UNION
	UPDATE
	USING
	VALUES
	WHEN
	WHERE
	WHILE
	WINDOW
	WITH
	WITHIN

	// Sentinel - dynamically registered keywords start after this
	maxBuiltin TokenType = 999
)

// QuoteStyle records the delimiter a token carried in the source, so a
// rewriter can re-wrap a replacement lexeme the same way.
type QuoteStyle int

// Quote styles.
const (
	QuoteNone     QuoteStyle = iota
	QuoteDouble              // "ident"
	QuoteBacktick            // `ident`
	QuoteBracket             // [ident]
	QuoteSingle              // 'string'
)

// Wrap surrounds lexeme with the delimiters of the quote style.
func (q QuoteStyle) Wrap(lexeme string) string {
	switch q {
	case QuoteDouble:
		return `"` + lexeme + `"`
	case QuoteBacktick:
		return "`" + lexeme + "`"
	case QuoteBracket:
		return "[" + lexeme + "]"
	case QuoteSingle:
		return "'" + lexeme + "'"
	default:
		return lexeme
	}
}

// Token represents a lexical token with its exact source span.
// Text is the raw source slice including any quote delimiters, so
// concatenating Text over a token stream reproduces the input exactly.
type Token struct {
	Type  TokenType
	Text  string
	Span  Span
	Quote QuoteStyle
}

// Unquote returns the lexeme without its quote delimiters.
// Doubled-quote escapes inside the body are left as scanned; the masker
// only ever substitutes whole lexemes, never splices into them.
func (t Token) Unquote() string {
	if t.Quote == QuoteNone || len(t.Text) < 2 {
		return t.Text
	}
	return t.Text[1 : len(t.Text)-1]
}

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := getDynamicName(t); ok {
		return name
	}
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps builtin token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:      "IDENT",
	NUMBER:     "NUMBER",
	STRING:     "STRING",
	WHITESPACE: "WHITESPACE",
	COMMENT:    "COMMENT",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	DPIPE:   "||",
	EQ:      "=",
	NE:      "!=",
	LT:      "<",
	GT:      ">",
	LE:      "<=",
	GE:      ">=",

	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",

	ALL:       "ALL",
	AND:       "AND",
	AS:        "AS",
	ASC:       "ASC",
	BEGIN:     "BEGIN",
	BETWEEN:   "BETWEEN",
	BY:        "BY",
	CASE:      "CASE",
	CAST:      "CAST",
	CREATE:    "CREATE",
	CROSS:     "CROSS",
	CURRENT:   "CURRENT",
	DECLARE:   "DECLARE",
	DELETE:    "DELETE",
	DESC:      "DESC",
	DISTINCT:  "DISTINCT",
	DROP:      "DROP",
	ELSE:      "ELSE",
	ELSEIF:    "ELSEIF",
	END:       "END",
	ESCAPE:    "ESCAPE",
	EXCEPT:    "EXCEPT",
	EXISTS:    "EXISTS",
	FALSE:     "FALSE",
	FETCH:     "FETCH",
	FILTER:    "FILTER",
	FIRST:     "FIRST",
	FOLLOWING: "FOLLOWING",
	FOR:       "FOR",
	FROM:      "FROM",
	FULL:      "FULL",
	GROUP:     "GROUP",
	GROUPS:    "GROUPS",
	HAVING:    "HAVING",
	IF:        "IF",
	IN:        "IN",
	INNER:     "INNER",
	INSERT:    "INSERT",
	INTERSECT: "INTERSECT",
	INTERVAL:  "INTERVAL",
	INTO:      "INTO",
	IS:        "IS",
	JOIN:      "JOIN",
	LAST:      "LAST",
	LATERAL:   "LATERAL",
	LEFT:      "LEFT",
	LIKE:      "LIKE",
	LIMIT:     "LIMIT",
	LOOP:      "LOOP",
	NATURAL:   "NATURAL",
	NOT:       "NOT",
	NULL:      "NULL",
	NULLS:     "NULLS",
	OFFSET:    "OFFSET",
	ON:        "ON",
	OR:        "OR",
	ORDER:     "ORDER",
	OUTER:     "OUTER",
	OVER:      "OVER",
	PARTITION: "PARTITION",
	PRECEDING: "PRECEDING",
	PROCEDURE: "PROCEDURE",
	RANGE:     "RANGE",
	RECURSIVE: "RECURSIVE",
	RETURN:    "RETURN",
	RIGHT:     "RIGHT",
	ROW:       "ROW",
	ROWS:      "ROWS",
	SELECT:    "SELECT",
	SET:       "SET",
	TABLE:     "TABLE",
	THEN:      "THEN",
	TRUE:      "TRUE",
	UNBOUNDED: "UNBOUNDED",
	UNION:     "UNION",
	UPDATE:    "UPDATE",
	USING:     "USING",
	VALUES:    "VALUES",
	WHEN:      "WHEN",
	WHERE:     "WHERE",
	WHILE:     "WHILE",
	WINDOW:    "WINDOW",
	WITH:      "WITH",
	WITHIN:    "WITHIN",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"all":       ALL,
	"and":       AND,
	"as":        AS,
	"asc":       ASC,
	"begin":     BEGIN,
	"between":   BETWEEN,
	"by":        BY,
	"case":      CASE,
	"cast":      CAST,
	"create":    CREATE,
	"cross":     CROSS,
	"current":   CURRENT,
	"declare":   DECLARE,
	"delete":    DELETE,
	"desc":      DESC,
	"distinct":  DISTINCT,
	"drop":      DROP,
	"else":      ELSE,
	"elseif":    ELSEIF,
	"end":       END,
	"escape":    ESCAPE,
	"except":    EXCEPT,
	"exists":    EXISTS,
	"false":     FALSE,
	"fetch":     FETCH,
	"filter":    FILTER,
	"first":     FIRST,
	"following": FOLLOWING,
	"for":       FOR,
	"from":      FROM,
	"full":      FULL,
	"group":     GROUP,
	"groups":    GROUPS,
	"having":    HAVING,
	"if":        IF,
	"in":        IN,
	"inner":     INNER,
	"insert":    INSERT,
	"intersect": INTERSECT,
	"interval":  INTERVAL,
	"into":      INTO,
	"is":        IS,
	"join":      JOIN,
	"last":      LAST,
	"lateral":   LATERAL,
	"left":      LEFT,
	"like":      LIKE,
	"limit":     LIMIT,
	"loop":      LOOP,
	"natural":   NATURAL,
	"not":       NOT,
	"null":      NULL,
	"nulls":     NULLS,
	"offset":    OFFSET,
	"on":        ON,
	"or":        OR,
	"order":     ORDER,
	"outer":     OUTER,
	"over":      OVER,
	"partition": PARTITION,
	"preceding": PRECEDING,
	"procedure": PROCEDURE,
	"range":     RANGE,
	"recursive": RECURSIVE,
	"return":    RETURN,
	"right":     RIGHT,
	"row":       ROW,
	"rows":      ROWS,
	"select":    SELECT,
	"set":       SET,
	"table":     TABLE,
	"then":      THEN,
	"true":      TRUE,
	"unbounded": UNBOUNDED,
	"union":     UNION,
	"update":    UPDATE,
	"using":     USING,
	"values":    VALUES,
	"when":      WHEN,
	"where":     WHERE,
	"while":     WHILE,
	"window":    WINDOW,
	"with":      WITH,
	"within":    WITHIN,
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a keyword (builtin or registered), the keyword token
// type is returned. Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	if tok, ok := lookupRegisteredKeyword(ident); ok {
		return tok
	}
	return IDENT
}

// IsReserved reports whether the lexeme is a reserved keyword, builtin or
// registered. Matching is case-insensitive.
func IsReserved(ident string) bool {
	lower := strings.ToLower(ident)
	if _, ok := keywords[lower]; ok {
		return true
	}
	_, ok := lookupRegisteredKeyword(lower)
	return ok
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return (t >= ALL && t <= WITHIN) || t > maxBuiltin
}

// IsOperator returns true if the token type is an operator.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= GE
}

// IsPunctuation returns true if the token type is punctuation.
func IsPunctuation(t TokenType) bool {
	return t >= DOT && t <= RPAREN
}

// IsTrivia returns true for whitespace and comment tokens.
func IsTrivia(t TokenType) bool {
	return t == WHITESPACE || t == COMMENT
}
