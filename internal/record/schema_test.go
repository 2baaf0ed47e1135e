package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func makeTestColumns() []Column {
	return []Column{
		{Name: "id", DeclaredType: "int4", OID: 23},
		{Name: "name", DeclaredType: "text", OID: 25},
		{Name: "id", DeclaredType: "int8", OID: 20},
	}
}

func TestWireValue_IsNull(t *testing.T) {
	require.True(t, WireValue{DeclaredType: "int4"}.IsNull())
	require.True(t, WireValue{DeclaredType: "no_such_type"}.IsNull())

	// zero-length text is a value, not NULL
	require.False(t, WireValue{DeclaredType: "text", Raw: []byte{}}.IsNull())
}

func TestNewRow_Mismatch(t *testing.T) {
	_, err := NewRow(makeTestColumns(), []WireValue{{}})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestRow_IndexOfAndNames(t *testing.T) {
	cols := makeTestColumns()
	row, err := NewRow(cols, make([]WireValue, len(cols)))
	require.NoError(t, err)

	require.Equal(t, 3, row.NumCols())
	require.Equal(t, 0, row.IndexOf("id")) // first occurrence wins
	require.Equal(t, 1, row.IndexOf("name"))
	require.Equal(t, -1, row.IndexOf("ID"))
	require.Equal(t, []string{"id", "name", "id"}, row.Names())
}

func TestResult_Row(t *testing.T) {
	res := Result{
		Columns: makeTestColumns()[:1],
		Rows:    [][]WireValue{{{DeclaredType: "int4", Raw: []byte{0, 0, 0, 7}}}},
	}

	row, err := res.Row(0)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 7}, row.Values[0].Raw)

	_, err = res.Row(1)
	require.Error(t, err)
}
