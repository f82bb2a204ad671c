package db

import "io"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplFlat   Implementation = "flat"
	ImplSQLite Implementation = "sqlite"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet    Feature = 1 << iota // Support for Set operations
	FeatureGet                        // Support for Get operations
	FeatureDelete                     // Support for Delete operations
	FeatureHas                        // Support for Has operations
	FeatureKeys                       // Support for enumerating all keys
	FeatureClear                      // Support for wiping the whole database
	FeatureSave                       // Support for Save operations
	FeatureLoad                       // Support for Load operations
	FeatureDurable                    // Data survives a process restart
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureKeys:
		return "Keys"
	case FeatureClear:
		return "Clear"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	case FeatureDurable:
		return "Durable"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	KeyCount          int            `json:"key_count"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for flat key-value database implementations.
// Keys are opaque strings: a database never interprets separators inside a key,
// any hierarchy is a naming convention of the caller.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry with the given key and value.
	// If the key already exists, the old value is overwritten (last write wins).
	Set(key string, value []byte) (err error)

	// Delete removes an entry with the specified key.
	// Deleting a key that does not exist is not an error.
	Delete(key string) (err error)

	// Clear removes every entry from the database.
	Clear() (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	// The returned slice is a copy and may be modified by the caller.
	Get(key string) (value []byte, loaded bool, err error)

	// Has checks whether a key exists in the database.
	Has(key string) (loaded bool, err error)

	// Keys returns every key currently stored. The order is unspecified.
	Keys() (keys []string, err error)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save writes a snapshot of the current state of the database to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load replaces the database state with the snapshot provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Returns true if the feature is supported, false otherwise.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the database.
	Close() (err error)
}
