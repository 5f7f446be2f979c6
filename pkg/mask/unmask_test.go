package mask_test

import (
	"context"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlveil/internal/testutil"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maskRoundTrip masks sql and returns the masked text plus the session.
func maskRoundTrip(t *testing.T, sql string) (*mask.Session, string) {
	t.Helper()
	session, err := mask.NewSession(mask.SessionOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	_, err = session.Analyze(sql)
	require.NoError(t, err)
	masked, _, err := session.Mask(context.Background())
	require.NoError(t, err)
	return session, masked
}

func TestUnmaskRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{
			name: "simple query",
			sql:  "SELECT id, name FROM customers WHERE customer_id = 42",
		},
		{
			name: "formatting and comments survive",
			sql:  "SELECT id,  -- key\n\tname\nFROM customers",
		},
		{
			name: "quoted identifiers",
			sql:  `SELECT "Order Total", [Weird Col] FROM t`,
		},
		{
			name: "mixed case identifiers",
			sql:  "SELECT Total FROM Orders WHERE OrderId = 1",
		},
		{
			name: "string literals",
			sql:  "SELECT * FROM t WHERE city = 'Berlin' AND note = 'it''s'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, masked := maskRoundTrip(t, tt.sql)
			assert.NotEqual(t, tt.sql, masked)

			restored, warnings, err := session.Unmask(masked)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.sql, restored, "unmask(mask(sql)) must be byte-identical")
		})
	}
}

func TestMaskKeepsCaseDistinctQuotedTablesApart(t *testing.T) {
	sql := `SELECT "MyTable".x FROM "MyTable" JOIN "mytable" ON "MyTable".x = "mytable".y`
	session, masked := maskRoundTrip(t, sql)

	upper, ok := session.Store().Lookup(mask.RoleTable, "MyTable")
	require.True(t, ok)
	lower, ok := session.Store().Lookup(mask.RoleTable, "mytable")
	require.True(t, ok)
	assert.NotEqual(t, upper.Synthetic, lower.Synthetic,
		"quoted tables differing only in case are separate entities")

	restored, warnings, err := session.Unmask(masked)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, sql, restored, "unmask(mask(sql)) must be byte-identical")
}

func TestUnmaskStripsMarkdownFences(t *testing.T) {
	session, masked := maskRoundTrip(t, "SELECT id FROM customers")

	fenced := "```sql\n" + masked + "\n```"
	restored, warnings, err := session.Unmask(fenced)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "SELECT id FROM customers", restored)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences untouched", "SELECT 1", "SELECT 1"},
		{"plain fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"sql fence", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"uppercase tag", "```SQL\nSELECT 1\n```", "SELECT 1"},
		{"prose around fence", "Here you go:\n```sql\nSELECT 1\n```", "Here you go:\nSELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mask.StripFences(tt.in))
		})
	}
}

func TestUnmaskToleratesDrift(t *testing.T) {
	// Mask a query, then hand back a rewritten query that reuses the
	// synthetic names in new positions and casings.
	session, err := mask.NewSession(mask.SessionOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	_, err = session.Analyze("SELECT name, total FROM customers WHERE city = 'Berlin'")
	require.NoError(t, err)
	_, records, err := session.Mask(context.Background())
	require.NoError(t, err)

	byOriginal := make(map[string]string)
	for _, rec := range records {
		byOriginal[rec.Original] = rec.Synthetic
	}

	drifted := "SELECT " + byOriginal["total"] + ", COUNT(*)\nFROM " + byOriginal["customers"] +
		"\nWHERE " + byOriginal["city"] + " = '" + byOriginal["Berlin"] + "'\nGROUP BY " + byOriginal["total"]

	restored, warnings, err := session.Unmask(drifted)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Contains(t, restored, "total")
	assert.Contains(t, restored, "customers")
	assert.Contains(t, restored, "city")
	assert.Contains(t, restored, "'Berlin'")
	assert.NotContains(t, restored, byOriginal["customers"])
}

func TestUnmaskUppercasedSyntheticStillResolves(t *testing.T) {
	session, masked := maskRoundTrip(t, "SELECT name FROM customers")

	restored, warnings, err := session.Unmask(strings.ToUpper(masked))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Contains(t, restored, "name")
	assert.Contains(t, restored, "customers")
}

func TestUnmaskWarnsOnUnknownSynthetic(t *testing.T) {
	session, _ := maskRoundTrip(t, "SELECT name FROM customers")

	// col_99 looks synthetic but was never issued.
	restored, warnings, err := session.Unmask("SELECT col_99 FROM table_1")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "col_99", warnings[0].Lexeme)
	assert.Equal(t, 1, warnings[0].Pos.Line)
	assert.Contains(t, restored, "col_99", "unknown lexemes pass through unchanged")
	assert.Contains(t, restored, "customers", "known synthetics are still restored")
}

func TestUnmaskLeavesForeignIdentifiersAlone(t *testing.T) {
	session, _ := maskRoundTrip(t, "SELECT name FROM customers")

	input := "SELECT some_helper(x) FROM table_1"
	restored, warnings, err := session.Unmask(input)
	require.NoError(t, err)
	assert.Empty(t, warnings, "non-synthetic-looking identifiers produce no warnings")
	assert.Contains(t, restored, "some_helper(x)")
	assert.Contains(t, restored, "customers")
}
