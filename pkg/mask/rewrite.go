package mask

import (
	"strings"

	"github.com/leapstack-labs/sqlveil/pkg/token"
)

// Rewrite applies the enabled mapping records to the token stream and
// returns masked SQL. Only tokens claimed by an entity with an enabled
// mapping change; every other token, including whitespace and comments, is
// emitted verbatim, so the output is byte-identical to the input outside
// masked spans. Replacements keep the token's original quoting style.
func Rewrite(tokens []token.Token, set *EntitySet, store *Store) string {
	var b strings.Builder
	b.Grow(len(tokens) * 8)

	for i, tok := range tokens {
		if e, ok := set.ByToken(i); ok {
			if rec, found := store.Lookup(e.Role, e.Key); found && rec.Enabled {
				b.WriteString(tok.Quote.Wrap(rec.Synthetic))
				continue
			}
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}
