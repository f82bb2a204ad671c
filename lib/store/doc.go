// Package store provides the key-value store contract that models bind their fields to,
// together with unified error handling for all store implementations.
// It serves as an abstraction layer over the lower-level db.KVDB implementations, adding
// string keys and values, feature checks and standardized error reporting.
//
// The package focuses on:
//   - A unified interface (IStore) for key-value operations across different backends
//   - Pluggable storage backend architecture through DBFactory pattern
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for interacting with
//     a key-value store. A model holds two of them, one durable and one session scoped,
//     and never cares which engine is behind either. Besides single key access the
//     interface exposes key enumeration, which is what a subtree clear is built on.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. This system allows applications to make informed
//     decisions based on specific error conditions rather than generic errors.
//     Engine errors are kept as the wrapped cause, so errors.Is still reaches them.
//
//   - DBFactory: A function type that abstracts the creation of underlying db.KVDB
//     instances, providing dependency injection and flexible configuration of
//     storage backends.
//
// Implementations:
//
//	- Local Store (lstore): Utilizes a db.KVDB instance directly, converts between
//	  strings and bytes, logs every operation and counts it per store name.
//	  Available in the "github.com/ValentinKolb/kvmodel/lib/store/lstore" package.
package store
