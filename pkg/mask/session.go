package mask

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlveil/pkg/lexer"
	"github.com/leapstack-labs/sqlveil/pkg/token"
)

// ErrNotAnalyzed is returned by Mask before Analyze has run.
var ErrNotAnalyzed = errors.New("no analysis: call Analyze first")

// SessionOptions configure a masking session.
type SessionOptions struct {
	Classify ClassifyOptions
	Generate GenerateOptions

	// Mapping is a previously saved mapping to reuse: lexemes it covers
	// keep their synthetic names across re-analysis, and only newly
	// discovered entities get fresh ones.
	Mapping *Store

	Logger *slog.Logger
}

// Session owns the state of masking one SQL document: the token stream,
// the entity set, and the mapping table. Sessions share no mutable state,
// so separate sessions may run concurrently without synchronization.
// Cancelling a session is simply discarding it; there is no partial-commit
// state to roll back.
type Session struct {
	ID string

	opts     SessionOptions
	logger   *slog.Logger
	source   string
	tokens   []token.Token
	entities *EntitySet
	store    *Store
	seeded   bool
}

// NewSession creates a session. A provided mapping is copied in, so the
// caller's store is not mutated.
func NewSession(opts SessionOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Generate.Logger == nil {
		opts.Generate.Logger = logger
	}

	s := &Session{
		ID:     uuid.New().String(),
		opts:   opts,
		logger: logger,
		store:  NewStore(),
	}
	if opts.Mapping != nil {
		if err := s.store.Merge(opts.Mapping); err != nil {
			return nil, err
		}
		s.seeded = true
	}
	return s, nil
}

// Analyze tokenizes and classifies sql, replacing any prior analysis. The
// prior entity set and mapping are discarded, except that a mapping loaded
// at session creation is kept so repeated analysis of evolving SQL stays
// stable. Markdown fences are stripped before tokenizing. On a ParseError
// the session's previous state is untouched.
func (s *Session) Analyze(sql string) (*EntitySet, error) {
	stripped := StripFences(sql)
	tokens, err := lexer.Tokenize(stripped)
	if err != nil {
		return nil, err
	}

	s.source = stripped
	s.tokens = tokens
	s.entities = Classify(tokens, s.opts.Classify)

	if !s.seeded {
		s.store.Clear()
	}

	s.logger.Debug("analyzed sql document",
		slog.String("session", s.ID),
		slog.Int("tokens", len(tokens)),
		slog.Int("entities", s.entities.Len()))
	return s.entities, nil
}

// Mask generates any missing mapping records and rewrites the analyzed
// document. It is all-or-nothing: a *MaskingError aborts the operation
// with no output.
func (s *Session) Mask(ctx context.Context) (string, []MappingRecord, error) {
	if s.entities == nil {
		return "", nil, ErrNotAnalyzed
	}

	gen := NewGenerator(s.opts.Generate)
	if err := gen.Populate(ctx, s.entities, s.store); err != nil {
		return "", nil, err
	}

	masked := Rewrite(s.tokens, s.entities, s.store)
	return masked, s.store.Records(), nil
}

// Regenerate discards the session's full mapping set, including a loaded
// one, and masks again with fresh names.
func (s *Session) Regenerate(ctx context.Context) (string, []MappingRecord, error) {
	if s.entities == nil {
		return "", nil, ErrNotAnalyzed
	}
	s.store.Clear()
	s.seeded = false
	return s.Mask(ctx)
}

// Unmask reverses masking on text using this session's mapping table.
func (s *Session) Unmask(text string) (string, []Warning, error) {
	return Unmask(text, s.store, s.opts.Classify)
}

// Store exposes the session's mapping table for display, toggling, and
// persistence.
func (s *Session) Store() *Store {
	return s.store
}

// Entities returns the most recent analysis result, or nil before Analyze.
func (s *Session) Entities() *EntitySet {
	return s.entities
}

// Source returns the analyzed SQL text (after fence stripping).
func (s *Session) Source() string {
	return s.source
}

// MaskSQL is a convenience wrapper: one-shot analyze and mask.
func MaskSQL(ctx context.Context, sql string, opts SessionOptions) (string, []MappingRecord, error) {
	s, err := NewSession(opts)
	if err != nil {
		return "", nil, err
	}
	if _, err := s.Analyze(sql); err != nil {
		return "", nil, err
	}
	return s.Mask(ctx)
}
