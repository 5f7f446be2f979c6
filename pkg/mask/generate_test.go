package mask_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leapstack-labs/sqlveil/internal/testutil"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populate(t *testing.T, sql string, opts mask.GenerateOptions) (*mask.EntitySet, *mask.Store) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testutil.NewTestLogger(t)
	}
	set := classify(t, sql, mask.ClassifyOptions{})
	store := mask.NewStore()
	gen := mask.NewGenerator(opts)
	require.NoError(t, gen.Populate(context.Background(), set, store))
	return set, store
}

func TestDeterministicNames(t *testing.T) {
	sql := "SELECT c.name FROM shop.customers c WHERE city = 'Berlin'"
	_, store := populate(t, sql, mask.GenerateOptions{})

	expect := map[string]string{ // original -> synthetic
		"name":      "col_1",
		"customers": "table_1",
		"shop":      "schema_1",
		"c":         "alias_1",
		"city":      "col_2",
		"Berlin":    "str_1",
	}
	for original, synthetic := range expect {
		found := false
		for _, rec := range store.Records() {
			if rec.Original == original {
				assert.Equal(t, synthetic, rec.Synthetic, "original %q", original)
				assert.True(t, rec.Enabled)
				found = true
			}
		}
		assert.True(t, found, "no record for %q", original)
	}
}

func TestDeterministicNamesStableAcrossRuns(t *testing.T) {
	sql := "SELECT a, b, c FROM t1 JOIN t2 ON t1.x = t2.y"

	_, first := populate(t, sql, mask.GenerateOptions{})
	_, second := populate(t, sql, mask.GenerateOptions{})

	assert.Equal(t, first.Records(), second.Records())
}

func TestGeneratorSkipsOriginalLexemeCollisions(t *testing.T) {
	// The document already contains col_1 as an identifier, so the
	// counter must skip it for every column.
	sql := "SELECT col_1, price FROM t"
	set, store := populate(t, sql, mask.GenerateOptions{})

	require.Equal(t, 3, set.Len())
	for _, rec := range store.Records() {
		assert.NotEqual(t, "col_1", rec.Synthetic)
	}
	rec, ok := store.Lookup(mask.RoleColumn, "col_1")
	require.True(t, ok, "col_1 itself still gets masked")
	assert.Equal(t, "col_2", rec.Synthetic)

	price, ok := store.Lookup(mask.RoleColumn, "price")
	require.True(t, ok)
	assert.Equal(t, "col_3", price.Synthetic)
}

func TestGeneratorRespectsExistingMappings(t *testing.T) {
	store := mask.NewStore()
	require.NoError(t, store.Add(mask.MappingRecord{
		Role: mask.RoleTable, Original: "customers", Synthetic: "table_9", Enabled: true,
	}))

	set := classify(t, "SELECT id FROM customers", mask.ClassifyOptions{})
	gen := mask.NewGenerator(mask.GenerateOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, gen.Populate(context.Background(), set, store))

	rec, ok := store.Lookup(mask.RoleTable, "customers")
	require.True(t, ok)
	assert.Equal(t, "table_9", rec.Synthetic, "pre-existing mapping is kept")
}

func TestSemanticNamer(t *testing.T) {
	namer := func(_ context.Context, role mask.Role, key string, _ mask.Domain) (string, error) {
		return "veiled_" + key, nil
	}

	_, store := populate(t, "SELECT price FROM products", mask.GenerateOptions{
		Mode:  mask.ModeSemantic,
		Namer: namer,
	})

	rec, ok := store.Lookup(mask.RoleColumn, "price")
	require.True(t, ok)
	assert.Equal(t, "veiled_price", rec.Synthetic)
}

func TestSemanticNamerReceivesDomain(t *testing.T) {
	var got mask.Domain
	namer := func(_ context.Context, _ mask.Role, key string, domain mask.Domain) (string, error) {
		got = domain
		return "x_" + key, nil
	}

	populate(t, "SELECT price FROM products JOIN orders ON 1=1", mask.GenerateOptions{
		Mode:  mask.ModeSemantic,
		Namer: namer,
	})
	assert.Equal(t, mask.DomainRetail, got)
}

func TestSemanticNamerErrorFallsBack(t *testing.T) {
	namer := func(context.Context, mask.Role, string, mask.Domain) (string, error) {
		return "", errors.New("endpoint unreachable")
	}

	_, store := populate(t, "SELECT price FROM products", mask.GenerateOptions{
		Mode:  mask.ModeSemantic,
		Namer: namer,
	})

	rec, ok := store.Lookup(mask.RoleColumn, "price")
	require.True(t, ok)
	assert.Equal(t, "col_1", rec.Synthetic, "failure falls back to deterministic naming")
	tbl, ok := store.Lookup(mask.RoleTable, "products")
	require.True(t, ok)
	assert.Equal(t, "table_1", tbl.Synthetic)
}

func TestSemanticNamerUnusableCandidatesFallBack(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
	}{
		{"empty", ""},
		{"reserved keyword", "select"},
		{"builtin", "count"},
		{"not an identifier", "my name"},
		{"original lexeme", "products"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			namer := func(context.Context, mask.Role, string, mask.Domain) (string, error) {
				return tt.candidate, nil
			}
			_, store := populate(t, "SELECT price FROM products", mask.GenerateOptions{
				Mode:  mask.ModeSemantic,
				Namer: namer,
			})

			rec, ok := store.Lookup(mask.RoleColumn, "price")
			require.True(t, ok)
			assert.Equal(t, "col_1", rec.Synthetic)
		})
	}
}

func TestSemanticNamerDuplicateCandidateFallsBack(t *testing.T) {
	// Namer returns the same candidate for every entity; only the first
	// commit can use it, the rest fall back deterministically.
	namer := func(context.Context, mask.Role, string, mask.Domain) (string, error) {
		return "thing", nil
	}

	_, store := populate(t, "SELECT a, b FROM t", mask.GenerateOptions{
		Mode:  mask.ModeSemantic,
		Namer: namer,
	})

	a, ok := store.Lookup(mask.RoleColumn, "a")
	require.True(t, ok)
	assert.Equal(t, "thing", a.Synthetic)

	b, ok := store.Lookup(mask.RoleColumn, "b")
	require.True(t, ok)
	assert.Equal(t, "col_1", b.Synthetic)
}

func TestSemanticNamerContextHasDeadline(t *testing.T) {
	var hadDeadline bool
	namer := func(ctx context.Context, _ mask.Role, key string, _ mask.Domain) (string, error) {
		_, hadDeadline = ctx.Deadline()
		return "n_" + key, nil
	}

	populate(t, "SELECT a FROM t", mask.GenerateOptions{
		Mode:         mask.ModeSemantic,
		Namer:        namer,
		NamerTimeout: 50 * time.Millisecond,
	})
	assert.True(t, hadDeadline, "namer calls are bounded by a per-entity deadline")
}

func TestParseMode(t *testing.T) {
	m, err := mask.ParseMode("deterministic")
	require.NoError(t, err)
	assert.Equal(t, mask.ModeDeterministic, m)

	m, err = mask.ParseMode("SEMANTIC")
	require.NoError(t, err)
	assert.Equal(t, mask.ModeSemantic, m)

	_, err = mask.ParseMode("creative")
	require.Error(t, err)
}

func TestMaskingErrorMessage(t *testing.T) {
	err := &mask.MaskingError{Role: mask.RoleColumn, Entity: "price", Reason: mask.ReasonNameSpaceExhausted}
	assert.Equal(t, fmt.Sprintf("masking failed for column %q: %s", "price", mask.ReasonNameSpaceExhausted), err.Error())
}
