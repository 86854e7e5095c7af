package docstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations[i] upgrades a database from user_version i to i+1.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_documents_collection_seq ON documents(collection, seq)`,
}

// driverName is the go-sqlite3 driver registered with the byname SQL
// functions.
const driverName = "sqlite3_byname"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("byname_upper", upperSQL, true)
		},
	})
}

// upperSQL mirrors fields.Upper: text is upper-cased, numbers are
// formatted first. The driver turns a nil result into '', so the
// translator never passes NULL here.
func upperSQL(v any) any {
	switch x := v.(type) {
	case string:
		return strings.ToUpper(x)
	case []byte:
		return strings.ToUpper(string(x))
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return strings.ToUpper(fmt.Sprint(x))
	}
}

// Store holds the documents of every collection in one SQLite database.
type Store struct {
	db *sql.DB
}

// CollectionInfo describes one registered collection.
type CollectionInfo struct {
	Name      string `json:"name"`
	Entity    string `json:"entity"`
	Documents int    `json:"documents"`
}

// Open creates or opens the SQLite database at path and brings its schema
// up to date. The connection runs in WAL mode with a 5s busy timeout and
// foreign keys on; SQLite allows one writer, so the pool holds a single
// connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := setup(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func setup(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return migrate(db)
}

// migrate applies the migrations newer than the database's user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for ; version < len(migrations); version++ {
		if _, err := db.Exec(migrations[version]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RegisterCollection records that entity is stored in collection name.
// Registering an existing collection is a no-op.
func (s *Store) RegisterCollection(ctx context.Context, name, entity string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, entity) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		name, entity)
	if err != nil {
		return fmt.Errorf("register collection %s: %w", name, err)
	}
	return nil
}

// Collections lists every registered collection with its document count,
// ordered by name.
func (s *Store) Collections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, c.entity, COUNT(d.seq)
		FROM collections c
		LEFT JOIN documents d ON d.collection = c.name
		GROUP BY c.name, c.entity
		ORDER BY c.name COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.Name, &info.Entity, &info.Documents); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
