package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// SQLStore is a Store backed by a single long-lived *bun.DB. One store
// serves one session; it is used sequentially by one caller.
type SQLStore struct {
	db     *bun.DB
	engine string
	log    *zap.Logger
}

// Open parses uri, opens the matching driver and verifies the connection
// with a ping bounded by ctx. All failures are *ConnectError.
func Open(ctx context.Context, uri string, log *zap.Logger) (*SQLStore, error) {
	dsn, err := ParseDSN(uri)
	if err != nil {
		return nil, &ConnectError{URI: uri, Err: err}
	}
	sqlDB, err := sqlOpenFunc(dsn.Driver, dsn.Source)
	if err != nil {
		return nil, &ConnectError{URI: uri, Err: err}
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	// In-memory SQLite is per-connection; more than one connection would
	// see different (empty) databases.
	if dsn.Engine == EngineSQLite && dsn.Source == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, &ConnectError{URI: uri, Err: err}
	}
	store := &SQLStore{db: newBunDB(sqlDB, dsn.Engine), engine: dsn.Engine, log: log}
	log.Info("connected", zap.String("engine", dsn.Engine))
	return store, nil
}

func newBunDB(sqlDB *sql.DB, engine string) *bun.DB {
	switch engine {
	case EnginePostgres:
		return bun.NewDB(sqlDB, pgdialect.New())
	case EngineMySQL:
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error { return s.db.Close() }

// ListDatabases returns schema names (Postgres/MySQL) or attached
// database names (SQLite) in sorted order.
func (s *SQLStore) ListDatabases(ctx context.Context) ([]string, error) {
	start := time.Now()
	var names []string
	var err error
	if s.engine == EngineSQLite {
		names, err = s.sqliteDatabases(ctx)
	} else {
		err = s.db.NewRaw(
			"SELECT schema_name FROM information_schema.schemata ORDER BY schema_name",
		).Scan(ctx, &names)
	}
	if err != nil {
		return nil, &QueryError{Op: "list databases", Err: err}
	}
	s.log.Debug("listed databases",
		zap.Int("count", len(names)), zap.Duration("took", time.Since(start)))
	return names, nil
}

func (s *SQLStore) sqliteDatabases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var seq int
		var name string
		var file sql.NullString
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListTables returns the table and view names of db in sorted order.
func (s *SQLStore) ListTables(ctx context.Context, db string) ([]string, error) {
	start := time.Now()
	var names []string
	var err error
	if s.engine == EngineSQLite {
		err = s.db.NewRaw(
			"SELECT name FROM ?.sqlite_master WHERE type IN ('table', 'view') ORDER BY name",
			bun.Ident(db),
		).Scan(ctx, &names)
	} else {
		err = s.db.NewRaw(
			"SELECT table_name FROM information_schema.tables WHERE table_schema = ? ORDER BY table_name",
			db,
		).Scan(ctx, &names)
	}
	if err != nil {
		return nil, &QueryError{Op: fmt.Sprintf("list tables of %s", db), Err: err}
	}
	s.log.Debug("listed tables", zap.String("db", db),
		zap.Int("count", len(names)), zap.Duration("took", time.Since(start)))
	return names, nil
}

// FetchRows reads all rows of db.table. Scan failures after the cursor
// opened degrade to an empty result instead of returning partial data.
func (s *SQLStore) FetchRows(ctx context.Context, db, table string) ([]Document, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM ?.?", bun.Ident(db), bun.Ident(table))
	if err != nil {
		return nil, &QueryError{Op: fmt.Sprintf("open cursor on %s.%s", db, table), Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Op: fmt.Sprintf("open cursor on %s.%s", db, table), Err: err}
	}
	docs := make([]Document, 0, 64)
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			s.log.Warn("row scan failed, dropping result",
				zap.String("table", db+"."+table), zap.Error(err))
			return []Document{}, nil
		}
		docs = append(docs, encodeRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("cursor failed mid-stream, dropping result",
			zap.String("table", db+"."+table), zap.Error(err))
		return []Document{}, nil
	}
	s.log.Debug("fetched rows", zap.String("table", db+"."+table),
		zap.Int("count", len(docs)), zap.Duration("took", time.Since(start)))
	return docs, nil
}

// encodeRow serializes one row as a single-line JSON object, keeping the
// result set's column order.
func encodeRow(cols []string, values []any) Document {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(col)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(encodeValue(values[i]))
	}
	buf.WriteByte('}')
	return Document(buf.String())
}

func encodeValue(v any) []byte {
	switch val := v.(type) {
	case nil:
		return []byte("null")
	case []byte:
		if utf8.Valid(val) {
			out, _ := json.Marshal(string(val))
			return out
		}
		out, _ := json.Marshal(fmt.Sprintf("0x%x", val))
		return out
	case time.Time:
		out, _ := json.Marshal(val.Format(time.RFC3339))
		return out
	default:
		out, err := json.Marshal(val)
		if err != nil {
			out, _ = json.Marshal(fmt.Sprint(val))
		}
		return out
	}
}
