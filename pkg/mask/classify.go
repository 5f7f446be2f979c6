package mask

import (
	"strings"

	"github.com/leapstack-labs/sqlveil/pkg/token"
)

// ClassifyOptions tune entity classification.
type ClassifyOptions struct {
	// LiteralExclusions are lowercase lexemes that make the immediately
	// following string literal unsafe to mask (its value participates in
	// query structure rather than data). See DefaultLiteralExclusions.
	LiteralExclusions []string

	// ExtraBuiltins are additional lowercase identifiers that are never
	// classified as entities, on top of the builtin function/type list.
	ExtraBuiltins []string
}

// DefaultLiteralExclusions returns the default set of lexemes whose
// following string literal is left unmasked: row-count and paging clauses,
// interval/escape/collation specifiers, and similar structural positions
// where substituting the literal would change what the query means rather
// than what it reveals.
func DefaultLiteralExclusions() []string {
	return []string{"limit", "offset", "fetch", "top", "interval", "escape", "collate", "language"}
}

// clauseKind tracks the positional context the classifier is walking in.
type clauseKind int

const (
	clauseNone   clauseKind = iota
	clauseSelect            // select list: idents are columns, trailing idents aliases
	clauseFrom              // table references (FROM/JOIN/INTO/UPDATE/TABLE)
	clauseWith              // CTE names
	clauseExpr              // generic expression: idents default to columns
)

// classifier walks a token stream and emits the entity set. Classification
// is positional and keyword-driven: it looks at a bounded neighborhood of
// each identifier, never at query semantics.
type classifier struct {
	tokens     []token.Token
	sig        []int // indexes of non-trivia tokens
	set        *EntitySet
	excludeLit map[string]struct{}
	extra      map[string]struct{}
	deferred   []int // sig positions of expression qualifiers (alias-or-table)
}

// Classify consumes a token stream and returns the entity set. Reserved
// keywords are never entities regardless of position; that invariant is
// enforced by the lexer's token types plus the builtin exclusion list here.
func Classify(tokens []token.Token, opts ClassifyOptions) *EntitySet {
	exclusions := opts.LiteralExclusions
	if exclusions == nil {
		exclusions = DefaultLiteralExclusions()
	}

	c := &classifier{
		tokens:     tokens,
		set:        NewEntitySet(),
		excludeLit: make(map[string]struct{}, len(exclusions)),
		extra:      make(map[string]struct{}, len(opts.ExtraBuiltins)),
	}
	for _, w := range exclusions {
		c.excludeLit[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range opts.ExtraBuiltins {
		c.extra[strings.ToLower(w)] = struct{}{}
	}
	for i, tok := range tokens {
		if !token.IsTrivia(tok.Type) {
			c.sig = append(c.sig, i)
		}
	}

	c.run()
	c.resolveDeferred()
	return c.set
}

func (c *classifier) run() {
	clause := clauseNone
	var stack []clauseKind
	expectAlias := false

	for i := 0; i < len(c.sig); i++ {
		tok := c.tokAt(i)
		switch {
		case token.IsKeyword(tok.Type):
			switch tok.Type {
			case token.SELECT:
				clause = clauseSelect
			case token.FROM, token.JOIN, token.UPDATE, token.INTO, token.TABLE:
				clause = clauseFrom
				expectAlias = false
			case token.WITH:
				clause = clauseWith
			case token.WHERE, token.ON, token.HAVING, token.GROUP, token.ORDER,
				token.PARTITION, token.BY, token.WHEN, token.THEN, token.ELSE,
				token.ELSEIF, token.IF, token.CASE, token.SET, token.USING,
				token.VALUES, token.AND, token.OR, token.NOT, token.BETWEEN,
				token.LIKE, token.IN, token.WHILE, token.RETURN, token.DECLARE:
				clause = clauseExpr
			}
		case tok.Type == token.LPAREN:
			stack = append(stack, clause)
			clause = clauseExpr
			expectAlias = false
		case tok.Type == token.RPAREN:
			if n := len(stack); n > 0 {
				clause = stack[n-1]
				stack = stack[:n-1]
			}
			// a closed subquery in FROM position may take an alias
			expectAlias = clause == clauseFrom
		case tok.Type == token.COMMA:
			if clause == clauseFrom {
				expectAlias = false
			}
		case tok.Type == token.STRING:
			c.classifyString(i)
		case tok.Type == token.IDENT:
			i = c.classifyIdent(i, &clause, &expectAlias)
		}
	}
}

// classifyIdent classifies the identifier at sig position i, consuming any
// dotted chain it heads. It returns the last sig position consumed.
func (c *classifier) classifyIdent(i int, clause *clauseKind, expectAlias *bool) int {
	if c.isProtected(c.tokAt(i)) {
		return i
	}

	// AS always introduces an alias, whatever the clause.
	if prev, ok := c.prevTok(i); ok && prev.Type == token.AS {
		c.add(RoleAlias, i)
		*expectAlias = false
		return i
	}

	// CTE name in WITH name AS (...). The name acts as a table reference
	// for the rest of the statement, so it gets the table role.
	if *clause == clauseWith {
		c.add(RoleTable, i)
		return i
	}

	parts, last, star := c.gatherChain(i)

	if *clause == clauseFrom && !*expectAlias {
		c.classifyTableChain(parts)
		*expectAlias = true
		return last
	}

	if *clause == clauseFrom && *expectAlias && len(parts) == 1 {
		// implicit table alias: FROM customers c
		c.add(RoleAlias, i)
		*expectAlias = false
		return i
	}

	// identifier directly followed by ( is a function call
	if len(parts) == 1 && c.typeAt(i+1) == token.LPAREN {
		c.add(RoleFunction, i)
		return i
	}

	// implicit column alias: SELECT amount total
	if *clause == clauseSelect && len(parts) == 1 {
		if prev, ok := c.prevTok(i); ok {
			switch prev.Type {
			case token.IDENT, token.NUMBER, token.STRING, token.RPAREN, token.STAR:
				c.add(RoleAlias, i)
				return i
			}
		}
	}

	c.classifyExprChain(parts, star)
	return last
}

// gatherChain collects the dotted chain headed by the ident at sig position
// i (a, a.b, a.b.c, or a.*). It returns the sig positions of the identifier
// parts, the last consumed position, and whether the chain ended in a star.
func (c *classifier) gatherChain(i int) (parts []int, last int, star bool) {
	parts = []int{i}
	last = i
	for c.typeAt(last+1) == token.DOT {
		switch c.typeAt(last + 2) {
		case token.IDENT:
			parts = append(parts, last+2)
			last += 2
		case token.STAR:
			last += 2
			return parts, last, true
		default:
			return parts, last, false
		}
	}
	return parts, last, false
}

// classifyTableChain assigns roles by position within a dotted chain in
// table position: t / schema.t / catalog.schema.t.
func (c *classifier) classifyTableChain(parts []int) {
	roles := [...]Role{RoleTable, RoleSchema, RoleCatalog}
	for offset := 0; offset < len(parts) && offset < len(roles); offset++ {
		idx := parts[len(parts)-1-offset]
		if !c.isProtected(c.tokAt(idx)) {
			c.add(roles[offset], idx)
		}
	}
}

// classifyExprChain assigns roles within a dotted chain in expression
// position: col / qualifier.col / schema.qualifier.col. The qualifier may
// be a table name or an alias defined elsewhere in the statement, possibly
// after this occurrence, so its resolution is deferred. A chain ending in
// .* has no column part; every ident is shifted into qualifier position.
func (c *classifier) classifyExprChain(parts []int, star bool) {
	for i := 0; i < len(parts); i++ {
		offset := i
		if star {
			offset++
		}
		idx := parts[len(parts)-1-i]
		if c.isProtected(c.tokAt(idx)) {
			continue
		}
		switch offset {
		case 0:
			c.add(RoleColumn, idx)
		case 1:
			c.deferred = append(c.deferred, idx)
		case 2:
			c.add(RoleSchema, idx)
		default:
			c.add(RoleCatalog, idx)
		}
	}
}

// resolveDeferred settles expression qualifiers once every alias and table
// definition has been seen: a qualifier matching a known alias is that
// alias, otherwise it is a table reference.
func (c *classifier) resolveDeferred() {
	for _, i := range c.deferred {
		tok := c.tokAt(i)
		key := canonicalKey(tok)
		if _, ok := c.set.Lookup(RoleAlias, key); ok {
			c.add(RoleAlias, i)
			continue
		}
		c.add(RoleTable, i)
	}
}

// classifyString classifies a string literal as a maskable value unless it
// sits in an excluded structural position.
func (c *classifier) classifyString(i int) {
	if prev, ok := c.prevTok(i); ok {
		lower := strings.ToLower(prev.Text)
		if _, excluded := c.excludeLit[lower]; excluded {
			return
		}
		// typed literals: DATE '2024-01-01', TIMESTAMP '...'
		if prev.Type == token.IDENT && IsBuiltin(lower) {
			return
		}
	}
	c.add(RoleString, i)
}

// isProtected reports whether an identifier token may never become an
// entity. Quoting an identifier explicitly opts it out of keyword/builtin
// status, so only unquoted lexemes are checked.
func (c *classifier) isProtected(tok token.Token) bool {
	if tok.Quote != token.QuoteNone {
		return false
	}
	lower := strings.ToLower(tok.Text)
	if token.IsReserved(lower) || IsBuiltin(lower) {
		return true
	}
	_, ok := c.extra[lower]
	return ok
}

func (c *classifier) add(role Role, i int) {
	c.set.add(role, c.tokAt(i), c.sig[i])
}

func (c *classifier) tokAt(i int) token.Token {
	return c.tokens[c.sig[i]]
}

// typeAt returns the token type at sig position i, or EOF when out of range.
func (c *classifier) typeAt(i int) token.TokenType {
	if i < 0 || i >= len(c.sig) {
		return token.EOF
	}
	return c.tokens[c.sig[i]].Type
}

func (c *classifier) prevTok(i int) (token.Token, bool) {
	if i-1 < 0 {
		return token.Token{}, false
	}
	return c.tokAt(i - 1), true
}
