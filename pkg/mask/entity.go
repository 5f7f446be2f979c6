package mask

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlveil/pkg/token"
)

// Role is the syntactic category of a maskable entity.
type Role int

// Roles, ordered from outermost qualifier to literal.
const (
	RoleCatalog Role = iota
	RoleSchema
	RoleTable
	RoleColumn
	RoleAlias
	RoleFunction
	RoleString
)

var roleNames = map[Role]string{
	RoleCatalog:  "catalog",
	RoleSchema:   "schema",
	RoleTable:    "table",
	RoleColumn:   "column",
	RoleAlias:    "alias",
	RoleFunction: "function",
	RoleString:   "string",
}

// prefix used by the deterministic name generator per role.
var rolePrefixes = map[Role]string{
	RoleCatalog:  "db",
	RoleSchema:   "schema",
	RoleTable:    "table",
	RoleColumn:   "col",
	RoleAlias:    "alias",
	RoleFunction: "func",
	RoleString:   "str",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", r)
}

// Prefix returns the deterministic-naming prefix for the role.
func (r Role) Prefix() string {
	return rolePrefixes[r]
}

// ParseRole parses a role name as produced by Role.String.
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if name == strings.ToLower(s) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// MarshalText implements encoding.TextMarshaler (used by encoding/json).
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Role) MarshalYAML() (any, error) {
	return r.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Role) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// sharesNamespace reports whether two roles occupy the same lexical
// namespace, i.e. whether a synthetic name committed for one could collide
// with one committed for the other. All identifier roles share a namespace
// (a table and an alias can both appear where an identifier is expected);
// string literals live in their own.
func (r Role) sharesNamespace(other Role) bool {
	if r == RoleString || other == RoleString {
		return r == other
	}
	return true
}

// Entity is a classified, maskable identifier or literal. Key is the
// canonical lookup lexeme: case-folded for unquoted identifiers, exact for
// quoted ones and string literals. Occurrences are indexes into the token
// stream the entity was classified from.
type Entity struct {
	Role        Role
	Key         string
	Raw         string // first-seen lexeme with source casing, stored as the mapping original
	Quoted      bool   // first occurrence was a quoted identifier: Key is case-exact
	Occurrences []int
}

// canonicalKey derives the mapping key for a token: quoted identifiers and
// strings keep their exact inner lexeme, unquoted identifiers are folded.
func canonicalKey(tok token.Token) string {
	if tok.Quote != token.QuoteNone {
		return tok.Unquote()
	}
	return strings.ToLower(tok.Text)
}

// rawLexeme is the original lexeme a mapping record stores: the inner text
// with source casing preserved.
func rawLexeme(tok token.Token) string {
	return tok.Unquote()
}

type entityKey struct {
	role Role
	key  string
}

// EntitySet holds the entities discovered in one token stream. Every
// Identifier/StringLiteral token belongs to at most one entity; entities are
// keyed by (role, canonical key) so `orders` as a table and `orders` as an
// alias get independent records.
type EntitySet struct {
	entities map[entityKey]*Entity
	order    []entityKey
	byToken  map[int]*Entity
}

// NewEntitySet creates an empty entity set.
func NewEntitySet() *EntitySet {
	return &EntitySet{
		entities: make(map[entityKey]*Entity),
		byToken:  make(map[int]*Entity),
	}
}

// add records an occurrence of (role, token) at token index idx.
func (s *EntitySet) add(role Role, tok token.Token, idx int) {
	if _, claimed := s.byToken[idx]; claimed {
		return
	}
	k := entityKey{role: role, key: canonicalKey(tok)}
	e, ok := s.entities[k]
	if !ok {
		e = &Entity{Role: role, Key: k.key, Raw: rawLexeme(tok), Quoted: tok.Quote != token.QuoteNone}
		s.entities[k] = e
		s.order = append(s.order, k)
	}
	e.Occurrences = append(e.Occurrences, idx)
	s.byToken[idx] = e
}

// Entities returns the entities in first-seen order.
func (s *EntitySet) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.entities[k])
	}
	return out
}

// ByToken returns the entity that claimed the token at index idx, if any.
func (s *EntitySet) ByToken(idx int) (*Entity, bool) {
	e, ok := s.byToken[idx]
	return e, ok
}

// Lookup returns the entity for (role, key), if present.
func (s *EntitySet) Lookup(role Role, key string) (*Entity, bool) {
	e, ok := s.entities[entityKey{role: role, key: key}]
	return e, ok
}

// Has reports whether any role claims the given canonical key.
func (s *EntitySet) Has(key string) bool {
	for _, k := range s.order {
		if k.key == key {
			return true
		}
	}
	return false
}

// Len returns the number of distinct entities.
func (s *EntitySet) Len() int {
	return len(s.order)
}
