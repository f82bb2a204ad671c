// Package flat implements an in-memory key-value database (KVDB) for the
// db.KVDB interface. It is the engine behind session-scoped data: everything
// lives in process memory and is gone when the process exits, unless a
// snapshot is written with Save and restored with Load.
//
// Key Components:
//
//   - flatImpl: The database structure implementing db.KVDB. It owns a fixed
//     number of shards and routes every key to exactly one of them.
//
//   - shard: A partition of the key space backed by an xsync.MapOf, a concurrent
//     map that itself shards internally for low contention.
//
// Internal Mechanisms:
//
//   - Sharding Strategy: String keys are hashed with FNV-1a mixed with a
//     per-database seed, then the higher bits select the shard.
//
//   - Copy Semantics: Set copies the caller's slice, Get returns a copy. A value
//     returned by Get can be modified without affecting the database.
//
//   - Enumeration: Keys collects the keys of all shards into a new slice before
//     returning, so callers can delete keys while walking the result.
//
//   - Persistence: Save writes the shared snapshot format of package util with
//     entries sorted by key. Load decodes into fresh shards and swaps them in only
//     after the whole snapshot was read, so a corrupt snapshot leaves the database
//     untouched.
//
// Usage Example:
//
//	session := flat.NewFlatDB(nil)
//	_ = session.Set("model/tempField", []byte(`{"val":"temp"}`))
//	v, ok, _ := session.Get("model/tempField")
package flat
