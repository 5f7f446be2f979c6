package mask_test

import (
	"context"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlveil/internal/testutil"
	"github.com/leapstack-labs/sqlveil/pkg/lexer"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMaskPreservesStructure(t *testing.T) {
	sql := `SELECT c.name, o.total  -- join them
FROM customers c
JOIN orders o ON o.customer_id = c.id
WHERE o.status = 'shipped'`

	_, masked := maskRoundTrip(t, sql)

	// Structure, keywords, whitespace, and comments are untouched.
	assert.Contains(t, masked, "-- join them")
	assert.Contains(t, masked, "SELECT ")
	assert.Contains(t, masked, "\nFROM ")
	assert.Contains(t, masked, "\nJOIN ")
	assert.Contains(t, masked, " ON ")
	assert.Contains(t, masked, "WHERE ")

	// Every sensitive lexeme is gone.
	for _, leaked := range []string{"customers", "orders", "name", "total", "customer_id", "status", "shipped"} {
		assert.NotContains(t, masked, leaked, "masked output leaks %q", leaked)
	}

	// The masked output is still lexable SQL.
	_, err := lexer.Tokenize(masked)
	require.NoError(t, err)
}

func TestSessionMaskRequiresAnalyze(t *testing.T) {
	session, err := mask.NewSession(mask.SessionOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	_, _, err = session.Mask(context.Background())
	assert.ErrorIs(t, err, mask.ErrNotAnalyzed)
	_, _, err = session.Regenerate(context.Background())
	assert.ErrorIs(t, err, mask.ErrNotAnalyzed)
}

func TestSessionAnalyzeParseErrorKeepsState(t *testing.T) {
	session, err := mask.NewSession(mask.SessionOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	_, err = session.Analyze("SELECT id FROM customers")
	require.NoError(t, err)
	masked, _, err := session.Mask(context.Background())
	require.NoError(t, err)

	_, err = session.Analyze("SELECT 'unterminated")
	require.Error(t, err)

	// The previous analysis is still usable.
	again, _, err := session.Mask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, masked, again)
}

func TestSessionDisabledMappingLeavesOriginal(t *testing.T) {
	session, err := mask.NewSession(mask.SessionOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	_, err = session.Analyze("SELECT name, city FROM customers")
	require.NoError(t, err)
	_, _, err = session.Mask(context.Background())
	require.NoError(t, err)

	require.True(t, session.Store().SetEnabled(mask.RoleColumn, "city", false))

	masked, _, err := session.Mask(context.Background())
	require.NoError(t, err)
	assert.Contains(t, masked, "city", "disabled entity keeps its original lexeme")
	assert.NotContains(t, masked, "name")
	assert.NotContains(t, masked, "customers")

	// Masking again flips nothing: disabled state is sticky.
	again, _, err := session.Mask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, masked, again)
}

func TestSessionQuoteStylesSurviveMasking(t *testing.T) {
	sql := "SELECT \"Order Total\", `weird col`, [bracketed] FROM t"
	_, masked := maskRoundTrip(t, sql)

	assert.Contains(t, masked, `"col_`)
	assert.Contains(t, masked, "`col_")
	assert.Contains(t, masked, "[col_")
}

func TestSessionRegenerateIssuesFreshNames(t *testing.T) {
	session, err := mask.NewSession(mask.SessionOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	_, err = session.Analyze("SELECT name FROM customers")
	require.NoError(t, err)

	_, first, err := session.Mask(context.Background())
	require.NoError(t, err)
	_, second, err := session.Regenerate(context.Background())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	// Same originals, but the counters restarted inside a new generator,
	// so the sets are equal here; what matters is the store was rebuilt.
	firstByOriginal := make(map[string]string)
	for _, rec := range first {
		firstByOriginal[rec.Original] = rec.Synthetic
	}
	for _, rec := range second {
		_, known := firstByOriginal[rec.Original]
		assert.True(t, known, "regeneration covers the same entities")
	}
}

func TestSessionSeededMappingKeepsNamesAcrossEdits(t *testing.T) {
	// First session masks v1 of the query and its mapping is saved.
	first, err := mask.NewSession(mask.SessionOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	_, err = first.Analyze("SELECT name FROM customers")
	require.NoError(t, err)
	_, _, err = first.Mask(context.Background())
	require.NoError(t, err)

	// Second session loads that mapping and masks an edited query.
	second, err := mask.NewSession(mask.SessionOptions{
		Mapping: first.Store(),
		Logger:  testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	_, err = second.Analyze("SELECT name, city FROM customers WHERE active = 1")
	require.NoError(t, err)
	masked, records, err := second.Mask(context.Background())
	require.NoError(t, err)

	// Entities from v1 keep their synthetic names.
	for _, rec := range first.Store().Records() {
		got, ok := second.Store().Lookup(rec.Role, rec.Original)
		require.True(t, ok)
		assert.Equal(t, rec.Synthetic, got.Synthetic, "seeded mapping keeps %q stable", rec.Original)
	}

	// New entities got fresh non-colliding names.
	city, ok := second.Store().Lookup(mask.RoleColumn, "city")
	require.True(t, ok)
	nameRec, _ := second.Store().Lookup(mask.RoleColumn, "name")
	assert.NotEqual(t, nameRec.Synthetic, city.Synthetic)

	assert.NotContains(t, masked, "city")
	assert.GreaterOrEqual(t, len(records), 4)

	// Re-analyzing within the seeded session keeps the loaded mapping.
	_, err = second.Analyze("SELECT name FROM customers")
	require.NoError(t, err)
	_, _, err = second.Mask(context.Background())
	require.NoError(t, err)
	got, ok := second.Store().Lookup(mask.RoleColumn, "name")
	require.True(t, ok)
	assert.Equal(t, nameRec.Synthetic, got.Synthetic)
}

func TestSessionIDsAreUnique(t *testing.T) {
	a, err := mask.NewSession(mask.SessionOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	b, err := mask.NewSession(mask.SessionOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}

func TestMaskSQL(t *testing.T) {
	masked, records, err := mask.MaskSQL(context.Background(), "SELECT secret_col FROM hidden_table", mask.SessionOptions{
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	assert.NotContains(t, masked, "secret_col")
	assert.NotContains(t, masked, "hidden_table")
	assert.NotEmpty(t, records)
	assert.True(t, strings.HasPrefix(masked, "SELECT "))
}

func TestDetectDomain(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want mask.Domain
	}{
		{
			name: "retail vocabulary",
			sql:  "SELECT product_id FROM orders JOIN inventory ON 1=1",
			want: mask.DomainRetail,
		},
		{
			name: "finance vocabulary",
			sql:  "SELECT balance FROM accounts JOIN transactions ON 1=1",
			want: mask.DomainFinance,
		},
		{
			name: "hr vocabulary",
			sql:  "SELECT salary FROM employees JOIN departments ON 1=1",
			want: mask.DomainHR,
		},
		{
			name: "no vocabulary falls back",
			sql:  "SELECT x FROM y",
			want: mask.DomainBusiness,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := classify(t, tt.sql, mask.ClassifyOptions{})
			assert.Equal(t, tt.want, mask.DetectDomain(set))
		})
	}
}
