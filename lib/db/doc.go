// Package db provides a standardized interface for flat key-value database implementations.
// It defines the KVDB interface that the store layer builds on, so that the engine holding
// the bytes can be swapped without touching any code above it.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Feature discovery through capability flags
//   - Standardized snapshot persistence (Save/Load)
//   - Metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for basic operations (Set, Get, Has, Delete), enumeration (Keys),
//     wiping (Clear) and persistence (Save, Load).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method. FeatureDurable marks engines whose
//     data survives a process restart without an explicit snapshot.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for the database backends ("flat" and "sqlite").
//
//   - Database Information: The DatabaseInfo structure reports database state, including
//     size estimates, key count, implementation type and implementation-specific metadata.
//
// Keys are flat. A key like "model/items/0/label" is a single opaque string to every engine;
// the hierarchy is purely a convention of the model layer on top.
//
// Related Packages:
//
// The engines/flat package (github.com/ValentinKolb/kvmodel/lib/db/engines/flat) provides a
// sharded in-memory implementation built on lock-free concurrent maps. It is used for
// session-scoped data and in tests.
//
// The engines/sqlite package (github.com/ValentinKolb/kvmodel/lib/db/engines/sqlite) provides a
// file-backed implementation for durable data.
//
// The util package (github.com/ValentinKolb/kvmodel/lib/db/util) provides hashing helpers,
// size statistics and the binary snapshot format shared by all engines.
//
// The testing package (github.com/ValentinKolb/kvmodel/lib/db/testing) provides
// standardized tests and benchmarks for database implementations that satisfy the db.KVDB interface.
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
