// Package lexer tokenizes SQL text into a gap-free token stream.
//
// Unlike a parser-feeding lexer, whitespace and comments are emitted as
// first-class tokens and every token keeps its raw source slice, so
// concatenating token text reconstructs the input byte-for-byte. This is
// what lets the rewriter substitute identifier lexemes without disturbing
// formatting anywhere else.
package lexer

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/sqlveil/pkg/token"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// New creates a new Lexer for the given input.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, col: 1, readPos: 1}
	if len(input) > 0 {
		l.ch = input[0]
	}
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else if l.ch != 0 {
		l.col++
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the position of the current character.
func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// NextToken returns the next token. The returned error is always a
// *ParseError (unterminated string, comment, or quoted identifier);
// lexing does not recover from it.
func (l *Lexer) NextToken() (token.Token, error) {
	start := l.currentPos()

	switch {
	case l.ch == 0:
		return l.emit(token.EOF, start), nil
	case isSpace(l.ch):
		for isSpace(l.ch) {
			l.readChar()
		}
		return l.emit(token.WHITESPACE, start), nil
	case l.ch == '-' && l.peekChar() == '-':
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
		return l.emit(token.COMMENT, start), nil
	case l.ch == '/' && l.peekChar() == '*':
		return l.readBlockComment(start)
	case l.ch == '\'':
		return l.readString(start)
	case l.ch == '"':
		return l.readQuotedIdent(start, '"', token.QuoteDouble)
	case l.ch == '`':
		return l.readQuotedIdent(start, '`', token.QuoteBacktick)
	case l.ch == '[':
		return l.readBracketIdent(start)
	case isLetter(l.ch):
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		tok := l.emit(token.IDENT, start)
		tok.Type = token.LookupIdent(strings.ToLower(tok.Text))
		return tok, nil
	case isDigit(l.ch):
		l.readNumber()
		return l.emit(token.NUMBER, start), nil
	default:
		return l.readSymbol(start)
	}
}

// readSymbol scans operators and punctuation, longest match first.
func (l *Lexer) readSymbol(start token.Position) (token.Token, error) {
	typ := token.ILLEGAL

	switch l.ch {
	case '+':
		typ = token.PLUS
	case '-':
		typ = token.MINUS
	case '*':
		typ = token.STAR
	case '/':
		typ = token.SLASH
	case '%':
		typ = token.PERCENT
	case '=':
		typ = token.EQ
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			typ = token.LE
		case '>':
			l.readChar()
			typ = token.NE
		default:
			typ = token.LT
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			typ = token.GE
		} else {
			typ = token.GT
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			typ = token.NE
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			typ = token.DPIPE
		}
	case '.':
		typ = token.DOT
	case ',':
		typ = token.COMMA
	case ';':
		typ = token.SEMICOLON
	case '(':
		typ = token.LPAREN
	case ')':
		typ = token.RPAREN
	}

	l.readChar()
	return l.emit(typ, start), nil
}

// readBlockComment scans a /* ... */ comment.
func (l *Lexer) readBlockComment(start token.Position) (token.Token, error) {
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // skip '*'
			l.readChar() // skip '/'
			return l.emit(token.COMMENT, start), nil
		}
		l.readChar()
	}
	return token.Token{}, &ParseError{Pos: start, Message: ErrUnterminatedComment}
}

// readString scans a single-quoted string literal.
// Doubled single quotes escape: 'it''s'.
func (l *Lexer) readString(start token.Position) (token.Token, error) {
	l.readChar() // skip opening quote

	for l.ch != 0 {
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			tok := l.emit(token.STRING, start)
			tok.Quote = token.QuoteSingle
			return tok, nil
		}
		l.readChar()
	}
	return token.Token{}, &ParseError{Pos: start, Message: ErrUnterminatedString}
}

// readQuotedIdent scans a "..." or `...` quoted identifier.
// Doubled closing quotes escape: "col""name".
func (l *Lexer) readQuotedIdent(start token.Position, quote byte, style token.QuoteStyle) (token.Token, error) {
	l.readChar() // skip opening quote

	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			tok := l.emit(token.IDENT, start)
			tok.Quote = style
			return tok, nil
		}
		l.readChar()
	}
	return token.Token{}, &ParseError{Pos: start, Message: ErrUnterminatedIdent}
}

// readBracketIdent scans a [bracket] quoted identifier (SQL Server style).
func (l *Lexer) readBracketIdent(start token.Position) (token.Token, error) {
	l.readChar() // skip '['

	for l.ch != 0 {
		if l.ch == ']' {
			l.readChar() // skip ']'
			tok := l.emit(token.IDENT, start)
			tok.Quote = token.QuoteBracket
			return tok, nil
		}
		l.readChar()
	}
	return token.Token{}, &ParseError{Pos: start, Message: ErrUnterminatedIdent}
}

// readNumber scans a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() {
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		if isDigit(l.peekChar()) || ((l.peekChar() == '+' || l.peekChar() == '-') && l.readPos+1 < len(l.input) && isDigit(l.input[l.readPos+1])) {
			l.readChar() // skip 'e'
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
}

// emit builds a token spanning from start to the current position.
func (l *Lexer) emit(typ token.TokenType, start token.Position) token.Token {
	return token.Token{
		Type: typ,
		Text: l.input[start.Offset:l.pos],
		Span: token.Span{Start: start, End: l.currentPos()},
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// isLetter returns true if ch can start an identifier. Bytes above 0x7F
// are part of multi-byte UTF-8 runes and are treated as letters.
func isLetter(ch byte) bool {
	return ch == '_' || ch >= 0x80 || unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, excluding the trailing EOF.
// The concatenation of token texts equals the input exactly.
func Tokenize(input string) ([]token.Token, error) {
	l := New(input)
	var tokens []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == token.EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
