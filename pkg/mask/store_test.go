package mask_test

import (
	"bytes"
	"testing"

	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(role mask.Role, original, synthetic string) mask.MappingRecord {
	return mask.MappingRecord{Role: role, Original: original, Synthetic: synthetic, Enabled: true}
}

func TestStoreAddAndLookup(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleTable, "Customers", "table_1")))

	rec, ok := s.Lookup(mask.RoleTable, "customers")
	require.True(t, ok, "identifier originals are matched case-insensitively")
	assert.Equal(t, "Customers", rec.Original, "source casing is preserved")
	assert.Equal(t, "table_1", rec.Synthetic)

	_, ok = s.Lookup(mask.RoleColumn, "customers")
	assert.False(t, ok, "lookups are role-scoped")
}

func TestStoreStringOriginalsAreCaseSensitive(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleString, "Berlin", "str_1")))

	_, ok := s.Lookup(mask.RoleString, "berlin")
	assert.False(t, ok)
	_, ok = s.Lookup(mask.RoleString, "Berlin")
	assert.True(t, ok)
}

func TestStoreQuotedOriginalsAreCaseExact(t *testing.T) {
	quoted := func(role mask.Role, original, synthetic string) mask.MappingRecord {
		return mask.MappingRecord{Role: role, Original: original, Quoted: true, Synthetic: synthetic, Enabled: true}
	}

	s := mask.NewStore()
	require.NoError(t, s.Add(quoted(mask.RoleTable, "MyTable", "table_1")))
	require.NoError(t, s.Add(quoted(mask.RoleTable, "mytable", "table_2")),
		"quoted identifiers differing only in case are distinct entities")

	rec, ok := s.Lookup(mask.RoleTable, "MyTable")
	require.True(t, ok)
	assert.Equal(t, "table_1", rec.Synthetic)

	rec, ok = s.Lookup(mask.RoleTable, "mytable")
	require.True(t, ok)
	assert.Equal(t, "table_2", rec.Synthetic)

	_, ok = s.Lookup(mask.RoleTable, "MYTABLE")
	assert.False(t, ok, "quoted records never fold")

	// an unquoted record still matches case-insensitively alongside them
	require.NoError(t, s.Add(record(mask.RoleColumn, "Amount", "col_1")))
	rec, ok = s.Lookup(mask.RoleColumn, "AMOUNT")
	require.True(t, ok)
	assert.Equal(t, "col_1", rec.Synthetic)
}

func TestStoreDuplicateOriginalRejected(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleTable, "orders", "table_1")))

	err := s.Add(record(mask.RoleTable, "ORDERS", "table_2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestStoreSyntheticNamespaceCollisions(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleTable, "orders", "table_1")))

	// identifier roles share one namespace
	err := s.Add(record(mask.RoleColumn, "x", "TABLE_1"))
	require.Error(t, err, "case-insensitive collision across identifier roles")

	assert.True(t, s.SyntheticTaken(mask.RoleAlias, "table_1"))
	assert.False(t, s.SyntheticTaken(mask.RoleString, "table_1"), "strings live in their own namespace")

	require.NoError(t, s.Add(record(mask.RoleString, "x", "table_1")))
}

func TestStoreLookupSynthetic(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleColumn, "price", "col_1")))

	rec, ok := s.LookupSynthetic(mask.RoleColumn, "COL_1")
	require.True(t, ok)
	assert.Equal(t, "price", rec.Original)

	_, ok = s.LookupSynthetic(mask.RoleTable, "col_1")
	assert.False(t, ok)
}

func TestStoreLookupSyntheticAny(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleColumn, "price", "col_1")))
	require.NoError(t, s.Add(record(mask.RoleString, "Berlin", "str_1")))
	require.NoError(t, s.Add(record(mask.RoleString, "col_1 text", "col_1")))

	// unambiguous
	rec, ok := s.LookupSyntheticAny("str_1")
	require.True(t, ok)
	assert.Equal(t, "Berlin", rec.Original)

	// "col_1" is a synthetic in two roles: ambiguous, no match
	_, ok = s.LookupSyntheticAny("col_1")
	assert.False(t, ok)

	_, ok = s.LookupSyntheticAny("nope")
	assert.False(t, ok)
}

func TestStoreSetEnabled(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleColumn, "price", "col_1")))

	require.True(t, s.SetEnabled(mask.RoleColumn, "PRICE", false))
	rec, _ := s.Lookup(mask.RoleColumn, "price")
	assert.False(t, rec.Enabled)

	assert.False(t, s.SetEnabled(mask.RoleColumn, "missing", false))
}

func TestStoreMergeExistingWins(t *testing.T) {
	base := mask.NewStore()
	require.NoError(t, base.Add(record(mask.RoleTable, "orders", "table_1")))

	incoming := mask.NewStore()
	require.NoError(t, incoming.Add(record(mask.RoleTable, "orders", "table_99")))
	require.NoError(t, incoming.Add(record(mask.RoleColumn, "price", "col_1")))

	require.NoError(t, base.Merge(incoming))

	rec, _ := base.Lookup(mask.RoleTable, "orders")
	assert.Equal(t, "table_1", rec.Synthetic, "existing record wins")
	_, ok := base.Lookup(mask.RoleColumn, "price")
	assert.True(t, ok, "new records are appended")
	assert.Equal(t, 2, base.Len())
}

func TestStoreClear(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleTable, "orders", "table_1")))

	s.Clear()
	assert.Equal(t, 0, s.Len())
	_, ok := s.Lookup(mask.RoleTable, "orders")
	assert.False(t, ok)
	require.NoError(t, s.Add(record(mask.RoleTable, "orders", "table_1")))
}

func TestStoreYAMLRoundTrip(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleTable, "Customers", "table_1")))
	require.NoError(t, s.Add(record(mask.RoleString, "it's", "str_1")))
	s.SetEnabled(mask.RoleTable, "Customers", false)

	var buf bytes.Buffer
	require.NoError(t, s.EncodeYAML(&buf))
	assert.Contains(t, buf.String(), "version: 1")

	loaded, err := mask.DecodeYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.Records(), loaded.Records())
}

func TestStoreJSONRoundTrip(t *testing.T) {
	s := mask.NewStore()
	require.NoError(t, s.Add(record(mask.RoleColumn, "price", "col_1")))

	var buf bytes.Buffer
	require.NoError(t, s.EncodeJSON(&buf))
	assert.Contains(t, buf.String(), `"role": "column"`)

	loaded, err := mask.DecodeJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.Records(), loaded.Records())
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := mask.DecodeYAML(bytes.NewBufferString("version: 2\nrecords: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestParseRole(t *testing.T) {
	for _, name := range []string{"catalog", "schema", "table", "column", "alias", "function", "string"} {
		role, err := mask.ParseRole(name)
		require.NoError(t, err)
		assert.Equal(t, name, role.String())
	}
	_, err := mask.ParseRole("widget")
	require.Error(t, err)
}
