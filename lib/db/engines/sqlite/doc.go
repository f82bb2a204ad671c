// Package sqlite implements a file-backed key-value database (KVDB) for the
// db.KVDB interface using the pure Go SQLite driver modernc.org/sqlite.
// It is the engine behind durable data: every Set is committed to the
// database file and survives a process restart.
//
// Storage layout:
//
//	CREATE TABLE kv (key TEXT PRIMARY KEY NOT NULL, value BLOB NOT NULL) WITHOUT ROWID
//
// Keys are stored verbatim. The table has no notion of hierarchy; enumerating a
// subtree means reading all keys (Keys) and filtering them, which is what the
// model layer does.
//
// The database runs in WAL mode with a single connection. A single connection
// keeps ":memory:" databases coherent (SQLite gives every connection its own
// in-memory database) and matches the single-writer contract of the store layer.
//
// Save and Load use the snapshot format of package util, so a durable database
// can be exported and restored into a flat (in-memory) database and vice versa.
//
// Usage Example:
//
//	durable, err := sqlite.Open("data/kvmodel.db", nil)
//	if err != nil {
//		return err
//	}
//	defer durable.Close()
package sqlite
