package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/kvmodel/lib/db"
	"github.com/ValentinKolb/kvmodel/lib/db/util"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database instead of a file
const MemoryPath = ":memory:"

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY NOT NULL,
	value BLOB NOT NULL
) WITHOUT ROWID`

// --------------------------------------------------------------------------
// Core sqlite database structure
// --------------------------------------------------------------------------

// sqliteImpl implements db.KVDB on top of a single SQLite table
type sqliteImpl struct {
	path  string
	sqlDB *sql.DB
}

// DBOptions configures how the database file is opened
type DBOptions struct {
	// BusyTimeoutMillis is how long a statement waits for a lock held by another process
	BusyTimeoutMillis int
	// Synchronous is the SQLite synchronous pragma (OFF, NORMAL, FULL)
	Synchronous string
}

// DefaultOptions returns the default sqliteImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		BusyTimeoutMillis: 5000,
		Synchronous:       "NORMAL",
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// Open opens (and creates if needed) the database at path.
// Use MemoryPath for a database that lives only as long as the returned value.
func Open(path string, opts *DBOptions) (db.KVDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	dsn := MemoryPath
	if path != MemoryPath {
		dsn = filepath.Clean(path)
	}
	dsn += fmt.Sprintf(
		"?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(%s)",
		opts.BusyTimeoutMillis, opts.Synchronous,
	)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// one connection: an in-memory database is per connection, and the store is single-writer anyway
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteImpl{path: path, sqlDB: sqlDB}, nil
}

// --------------------------------------------------------------------------
// KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set upserts the value for key.
func (s *sqliteImpl) Set(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.sqlDB.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes the row for key, if any.
func (s *sqliteImpl) Delete(key string) error {
	if _, err := s.sqlDB.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Clear removes all rows.
func (s *sqliteImpl) Clear() error {
	if _, err := s.sqlDB.Exec(`DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Methods - Query Operations
// --------------------------------------------------------------------------

// Get returns the value stored for key.
func (s *sqliteImpl) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.sqlDB.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Has reports whether a row exists for key.
func (s *sqliteImpl) Has(key string) (bool, error) {
	var exists int
	err := s.sqlDB.QueryRow(`SELECT EXISTS(SELECT 1 FROM kv WHERE key = ?)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has %q: %w", key, err)
	}
	return exists == 1, nil
}

// Keys returns all keys. The rows are fully read before returning,
// so the caller can delete keys while iterating over the result.
func (s *sqliteImpl) Keys() ([]string, error) {
	rows, err := s.sqlDB.Query(`SELECT key FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("keys: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	return keys, nil
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes all rows, ordered by key, in the shared snapshot format
func (s *sqliteImpl) Save(w io.Writer) error {
	rows, err := s.sqlDB.Query(`SELECT key, value FROM kv ORDER BY key`)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer rows.Close()

	entries := make([]util.SnapshotEntry, 0)
	for rows.Next() {
		var e util.SnapshotEntry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	return util.WriteSnapshot(w, entries)
}

// Load replaces all rows with the snapshot read from r in a single transaction.
// The snapshot is decoded completely before the table is touched.
func (s *sqliteImpl) Load(r io.Reader) error {
	entries := make([]util.SnapshotEntry, 0)
	err := util.ReadSnapshot(r, func(key string, value []byte) error {
		entries = append(entries, util.SnapshotEntry{Key: key, Value: value})
		return nil
	})
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM kv`); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO kv (key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Key, e.Value); err != nil {
			return fmt.Errorf("load %q: %w", e.Key, err)
		}
	}

	return tx.Commit()
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns exact row statistics and the page usage of the database file
func (s *sqliteImpl) GetInfo() db.DatabaseInfo {
	var (
		count     int
		dataBytes int
		pageCount int
		pageSize  int
	)
	_ = s.sqlDB.QueryRow(`SELECT COUNT(*), COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv`).Scan(&count, &dataBytes)
	_ = s.sqlDB.QueryRow(`PRAGMA page_count`).Scan(&pageCount)
	_ = s.sqlDB.QueryRow(`PRAGMA page_size`).Scan(&pageSize)

	meta := &struct {
		Path      string `json:"path"`
		PageCount int    `json:"page_count"`
		PageSize  int    `json:"page_size"`
		FileBytes int    `json:"file_bytes"`
	}{
		Path:      s.path,
		PageCount: pageCount,
		PageSize:  pageSize,
		FileBytes: pageCount * pageSize,
	}

	return db.DatabaseInfo{
		SizeBytes: dataBytes,
		KeyCount:  count,
		DbType:    db.ImplSQLite,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureGet, db.FeatureDelete, db.FeatureHas,
			db.FeatureKeys, db.FeatureClear,
			db.FeatureSave, db.FeatureLoad,
			db.FeatureDurable,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (s *sqliteImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureKeys |
		db.FeatureClear |
		db.FeatureSave |
		db.FeatureLoad |
		db.FeatureDurable
	return supportedFeatures&feature == feature
}

// Close releases the underlying SQLite connection
func (s *sqliteImpl) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
