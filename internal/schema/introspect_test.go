package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/testutil"
)

func TestIntrospectSampleDataset(t *testing.T) {
	db := testutil.OpenSampleDB(t)

	s, err := Introspect(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, testutil.SampleTables, s.TableNames())
	assert.Equal(t, testutil.SampleSchema(), s)

	orders, ok := s.Lookup("orders")
	require.True(t, ok)
	assert.Equal(t, "order_date", orders.Columns[2].Name)
	assert.Equal(t, "DATE", orders.Columns[2].Type)
}

func TestIntrospectSkipsInternalTables(t *testing.T) {
	db := testutil.OpenSampleDB(t)
	ctx := context.Background()

	// AUTOINCREMENT makes SQLite create sqlite_sequence
	_, err := db.ExecContext(ctx, "CREATE TABLE audit (id INTEGER PRIMARY KEY AUTOINCREMENT, note)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO audit (note) VALUES ('x')")
	require.NoError(t, err)

	s, err := Introspect(ctx, db)
	require.NoError(t, err)

	assert.NotContains(t, s.TableNames(), "sqlite_sequence")

	audit, ok := s.Lookup("audit")
	require.True(t, ok)
	assert.Equal(t, "", audit.Columns[1].Type, "untyped column reports an empty type")
}

func TestIntrospectQuotesTableNames(t *testing.T) {
	db := testutil.OpenSampleDB(t)
	ctx := context.Background()

	name := `odd "name\x`
	_, err := db.ExecContext(ctx, `CREATE TABLE "odd ""name\x" (v TEXT)`)
	require.NoError(t, err)

	s, err := Introspect(ctx, db)
	require.NoError(t, err)

	odd, ok := s.Lookup(name)
	require.True(t, ok)
	require.Len(t, odd.Columns, 1)
	assert.Equal(t, "v", odd.Columns[0].Name)
	assert.Equal(t, `"x""y"`, quoteIdent(`x"y`))
}

func TestIntrospectSummaryLine(t *testing.T) {
	db := testutil.OpenSampleDB(t)

	s, err := Introspect(context.Background(), db)
	require.NoError(t, err)

	assert.Contains(t, s.Summary(), "- products: product_id (INTEGER), name (TEXT), category (TEXT), price (REAL)")
}

func TestIntrospectClosedDatabase(t *testing.T) {
	db := testutil.OpenSampleDB(t)
	require.NoError(t, db.Close())

	_, err := Introspect(context.Background(), db)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDatabase))
}
