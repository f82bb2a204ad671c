// Package util provides utility components for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - functions: Seed generation, string hashing and shard selection
//   - statistics: A SizeHistogram for estimating value sizes and distribution stats for shard balance
//   - snapshot: The binary snapshot format every engine uses for Save and Load
package util
