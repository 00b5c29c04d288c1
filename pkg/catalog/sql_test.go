package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), "sqlite://:memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *SQLStore, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := s.db.ExecContext(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
}

func TestOpenRejectsBadURI(t *testing.T) {
	_, err := Open(context.Background(), "mongodb://host/db", zap.NewNop())
	require.Error(t, err)
	var ce *ConnectError
	assert.ErrorAs(t, err, &ce)
}

func TestListDatabases(t *testing.T) {
	s := openTestStore(t)

	names, err := s.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "main")
}

func TestListTablesSorted(t *testing.T) {
	s := openTestStore(t)
	seed(t, s,
		`CREATE TABLE zebra (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE apple (id INTEGER PRIMARY KEY)`,
	)

	names, err := s.ListTables(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "zebra"}, names)
}

func TestListTablesUnknownDatabase(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ListTables(context.Background(), "nosuch")
	require.Error(t, err)
	var qe *QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestFetchRowsSerializesInColumnOrder(t *testing.T) {
	s := openTestStore(t)
	seed(t, s,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, note TEXT)`,
		`INSERT INTO users (id, name, note) VALUES (1, 'ada', NULL)`,
		`INSERT INTO users (id, name, note) VALUES (2, 'grace', 'ok')`,
	)

	docs, err := s.FetchRows(context.Background(), "main", "users")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, Document(`{"id":1,"name":"ada","note":null}`), docs[0])
	assert.Equal(t, Document(`{"id":2,"name":"grace","note":"ok"}`), docs[1])
}

func TestFetchRowsEmptyTableIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	seed(t, s, `CREATE TABLE empty (id INTEGER PRIMARY KEY)`)

	docs, err := s.FetchRows(context.Background(), "main", "empty")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFetchRowsUnknownTable(t *testing.T) {
	s := openTestStore(t)

	_, err := s.FetchRows(context.Background(), "main", "ghost")
	require.Error(t, err)
	var qe *QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestEncodeValue(t *testing.T) {
	assert.Equal(t, "null", string(encodeValue(nil)))
	assert.Equal(t, "42", string(encodeValue(int64(42))))
	assert.Equal(t, "1.5", string(encodeValue(1.5)))
	assert.Equal(t, `"hello"`, string(encodeValue([]byte("hello"))))
	assert.Equal(t, `"0xfffe"`, string(encodeValue([]byte{0xff, 0xfe})))
}
