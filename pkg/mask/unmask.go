package mask

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/sqlveil/pkg/lexer"
	"github.com/leapstack-labs/sqlveil/pkg/token"
)

// Warning reports a synthetic-looking lexeme with no mapping entry,
// usually an identifier a round trip through an external tool invented.
// Warnings never fail an unmask.
type Warning struct {
	Lexeme  string         `json:"lexeme"`
	Pos     token.Position `json:"pos"`
	Message string         `json:"message"`
}

// fence patterns for markdown artifacts an external tool may wrap SQL in.
var (
	fenceOpenRe  = regexp.MustCompile("(?m)^```(?:sql|SQL)?[ \t]*\r?\n")
	fenceCloseRe = regexp.MustCompile("(?m)\r?\n```[ \t]*$")
)

// syntheticShapeRe matches lexemes shaped like deterministic synthetic
// names (db_1, table_3, col_12, ...), used to flag unmapped leftovers.
// Semantic-mode names have no recognizable shape, so an invented lexeme
// in semantic output passes through without a warning.
var syntheticShapeRe = regexp.MustCompile(`^(?:db|schema|table|col|alias|func|str)_\d+$`)

// StripFences removes markdown code-fence wrapping if present; text without
// fences is returned unchanged.
func StripFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	stripped := fenceOpenRe.ReplaceAllString(text, "")
	stripped = fenceCloseRe.ReplaceAllString(stripped, "")
	return strings.TrimSpace(stripped)
}

// Unmask replaces synthetic lexemes in text with their stored originals.
// The text is re-tokenized fresh: it may have been reformatted, fenced, or
// otherwise drifted since masking, so no structural identity with the
// original token stream is assumed. Substitution is exact-match only,
// role-scoped via re-classification first, then unambiguous cross-role.
// Tokens with no match pass through unchanged.
func Unmask(text string, store *Store, opts ClassifyOptions) (string, []Warning, error) {
	stripped := StripFences(text)

	tokens, err := lexer.Tokenize(stripped)
	if err != nil {
		return "", nil, err
	}
	set := Classify(tokens, opts)

	var b strings.Builder
	b.Grow(len(stripped))
	var warnings []Warning

	for i, tok := range tokens {
		switch tok.Type {
		case token.STRING:
			if rec, ok := store.LookupSynthetic(RoleString, tok.Unquote()); ok {
				b.WriteString(tok.Quote.Wrap(rec.Original))
				continue
			}
		case token.IDENT:
			lexeme := tok.Unquote()
			if rec, ok := resolveSynthetic(set, store, i, lexeme); ok {
				b.WriteString(tok.Quote.Wrap(rec.Original))
				continue
			}
			if syntheticShapeRe.MatchString(strings.ToLower(lexeme)) {
				warnings = append(warnings, Warning{
					Lexeme:  lexeme,
					Pos:     tok.Span.Start,
					Message: "synthetic-looking identifier has no mapping entry",
				})
			}
		}
		b.WriteString(tok.Text)
	}
	return b.String(), warnings, nil
}

// resolveSynthetic finds the record a synthetic identifier maps back to:
// first scoped by the role inferred from position, then by an unambiguous
// match across all roles (the external tool may have moved the identifier
// into a position the classifier reads differently).
func resolveSynthetic(set *EntitySet, store *Store, tokenIdx int, lexeme string) (MappingRecord, bool) {
	if e, ok := set.ByToken(tokenIdx); ok {
		if rec, found := store.LookupSynthetic(e.Role, lexeme); found {
			return rec, true
		}
	}
	return store.LookupSyntheticAny(lexeme)
}
