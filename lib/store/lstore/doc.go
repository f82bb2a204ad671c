// Package lstore implements a local, single-process key-value store based on the
// store.IStore interface. It provides a thin wrapper around any db.KVDB
// implementation: whether the data survives a restart depends only on the engine
// the factory creates (flat for session data, sqlite for durable data).
//
// Implementation Details:
//
//   - Feature Detection: Before executing operations, the store checks if the underlying
//     db.KVDB implementation supports the requested feature through the SupportsFeature
//     method. Unsupported operations return RetCUnsupportedOperation rather than failing
//     silently or producing undefined behavior.
//
//   - Error Handling: Engine failures are logged as warnings and returned as
//     RetCInternalError, with the engine error as the wrapped cause.
//
//   - Metrics: Every call and every failure is counted per store name and operation
//     (kvmodel_store_ops_total, kvmodel_store_errors_total).
//
//   - Composition Architecture: The store.DBFactory factory function injects the underlying
//     db.KVDB implementation, so the store works with any db.KVDB-compatible engine.
//
// Thread Safety:
//
//	The store adds no state of its own besides the counters, so it is exactly as
//	thread-safe as the underlying db.KVDB implementation.
//
// Usage Example:
//
//	durable, err := sqlite.Open("app.db", nil)
//	if err != nil { ... }
//	s := lstore.NewLocalStore(func() db.KVDB { return durable }, lstore.WithName("durable"))
//
//	err = s.Set("model/count", `{"val":1}`)
//	value, found, err := s.Get("model/count")
package lstore
