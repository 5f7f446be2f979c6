package mask

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlveil/pkg/token"
)

// Mode selects how synthetic names are produced.
type Mode string

// Naming modes.
const (
	ModeDeterministic Mode = "deterministic" // role-prefixed counters
	ModeSemantic      Mode = "semantic"      // external namer with deterministic fallback
)

// ParseMode validates a naming mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeDeterministic:
		return ModeDeterministic, nil
	case ModeSemantic:
		return ModeSemantic, nil
	default:
		return "", fmt.Errorf("unknown naming mode %q", s)
	}
}

// NamerFunc asks an external collaborator for a synthetic name candidate.
// It is optional and fallible: any error, timeout, or unusable candidate
// makes the generator fall back to deterministic naming for that entity.
type NamerFunc func(ctx context.Context, role Role, key string, domain Domain) (string, error)

// GenerateOptions configure a Generator.
type GenerateOptions struct {
	Mode         Mode
	Namer        NamerFunc     // required for ModeSemantic, ignored otherwise
	NamerTimeout time.Duration // per-entity bound on the namer call
	Logger       *slog.Logger
}

const (
	defaultNamerTimeout = 10 * time.Second

	// maxNameAttempts bounds the deterministic counter search. Hitting it
	// means the name space is exhausted, a defined terminal condition.
	maxNameAttempts = 10000
)

// identPattern is what a usable synthetic identifier must look like.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Generator produces mapping records for classified entities.
type Generator struct {
	opts     GenerateOptions
	logger   *slog.Logger
	counters map[Role]int
}

// NewGenerator creates a Generator. Zero-value options default to
// deterministic mode.
func NewGenerator(opts GenerateOptions) *Generator {
	if opts.Mode == "" {
		opts.Mode = ModeDeterministic
	}
	if opts.NamerTimeout <= 0 {
		opts.NamerTimeout = defaultNamerTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		opts:     opts,
		logger:   logger,
		counters: make(map[Role]int),
	}
}

// Populate creates a mapping record for every entity in the set that does
// not already have one, committing into store. Entities already mapped
// (e.g. from a loaded mapping file) keep their records untouched. On a
// CollisionExhaustion the whole operation fails with *MaskingError and the
// store is left as-is; the caller must not use partial output.
func (g *Generator) Populate(ctx context.Context, set *EntitySet, store *Store) error {
	var domain Domain
	if g.opts.Mode == ModeSemantic {
		domain = DetectDomain(set)
		g.logger.Debug("detected naming domain", slog.String("domain", string(domain)))
	}

	for _, e := range set.Entities() {
		if _, ok := store.Lookup(e.Role, e.Key); ok {
			continue
		}

		synthetic, err := g.name(ctx, e, set, store, domain)
		if err != nil {
			return err
		}
		if err := store.Add(MappingRecord{
			Role:      e.Role,
			Original:  e.Raw,
			Quoted:    e.Quoted,
			Synthetic: synthetic,
			Enabled:   true,
		}); err != nil {
			return &MaskingError{Role: e.Role, Entity: e.Key, Reason: err.Error()}
		}
	}
	return nil
}

// name produces a collision-free synthetic name for one entity.
func (g *Generator) name(ctx context.Context, e *Entity, set *EntitySet, store *Store, domain Domain) (string, error) {
	if g.opts.Mode == ModeSemantic && g.opts.Namer != nil {
		if candidate, ok := g.semanticName(ctx, e, set, store, domain); ok {
			return candidate, nil
		}
		// fall through to deterministic naming for this entity
	}
	return g.deterministicName(e, set, store)
}

// semanticName asks the external namer for a candidate and vets it. Any
// failure is logged and reported as not-ok; it never propagates.
func (g *Generator) semanticName(ctx context.Context, e *Entity, set *EntitySet, store *Store, domain Domain) (string, bool) {
	callCtx, cancel := context.WithTimeout(ctx, g.opts.NamerTimeout)
	defer cancel()

	candidate, err := g.opts.Namer(callCtx, e.Role, e.Key, domain)
	if err != nil {
		g.logger.Warn("semantic namer failed, using deterministic fallback",
			slog.String("role", e.Role.String()),
			slog.String("entity", e.Key),
			slog.Any("error", err))
		return "", false
	}

	candidate = strings.TrimSpace(candidate)
	if !g.usable(candidate, e.Role, set, store) {
		g.logger.Warn("semantic namer returned unusable candidate, using deterministic fallback",
			slog.String("role", e.Role.String()),
			slog.String("entity", e.Key),
			slog.String("candidate", candidate))
		return "", false
	}
	return candidate, true
}

// deterministicName advances the per-role counter until a free name is
// found, within a bounded number of attempts.
func (g *Generator) deterministicName(e *Entity, set *EntitySet, store *Store) (string, error) {
	prefix := e.Role.Prefix()
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		g.counters[e.Role]++
		candidate := fmt.Sprintf("%s_%d", prefix, g.counters[e.Role])
		if g.usable(candidate, e.Role, set, store) {
			return candidate, nil
		}
	}
	return "", &MaskingError{Role: e.Role, Entity: e.Key, Reason: ReasonNameSpaceExhausted}
}

// usable checks a candidate against the full collision policy: reserved
// keywords, builtins, committed synthetics in overlapping roles, and every
// original lexeme in the document (so unmasking stays unambiguous).
func (g *Generator) usable(candidate string, role Role, set *EntitySet, store *Store) bool {
	if candidate == "" {
		return false
	}
	if role != RoleString && !identPattern.MatchString(candidate) {
		return false
	}
	if role == RoleString && strings.ContainsAny(candidate, "'\"`") {
		return false
	}
	lower := strings.ToLower(candidate)
	if token.IsReserved(lower) || IsBuiltin(lower) {
		return false
	}
	if store.SyntheticTaken(role, candidate) {
		return false
	}
	if set.Has(lower) || set.Has(candidate) {
		return false
	}
	return true
}
