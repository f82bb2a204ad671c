package flat

import (
	"io"
	"runtime"
	"slices"
	"sync"

	"github.com/ValentinKolb/kvmodel/lib/db"
	"github.com/ValentinKolb/kvmodel/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Core flat database structure
// --------------------------------------------------------------------------

// shard is a partition of the key space with its own concurrent map
type shard struct {
	data *xsync.MapOf[string, []byte]
}

// flatImpl implements db.KVDB as a set of in-memory shards
type flatImpl struct {
	seed   uint64
	shards []*shard

	// loadMu serializes Load against every other operation, since Load swaps the shards
	loadMu sync.RWMutex
}

// DBOptions configures the flatImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = number of CPUs)
}

// DefaultOptions returns the default flatImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewFlatDB creates a new in-memory database with the specified options (optional)
func NewFlatDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}

	return &flatImpl{
		seed:   util.GenerateSeed(),
		shards: newShards(numShards),
	}
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{data: xsync.NewMapOf[string, []byte]()}
	}
	return shards
}

// shardFor returns the shard responsible for key.
// The caller must hold loadMu (read or write).
func (f *flatImpl) shardFor(key string) *shard {
	return f.shards[util.ShardIndex(util.HashString(key, f.seed), len(f.shards))]
}

// --------------------------------------------------------------------------
// KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry. The value is copied, so the caller may reuse its slice.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (f *flatImpl) Set(key string, value []byte) error {
	f.loadMu.RLock()
	defer f.loadMu.RUnlock()

	f.shardFor(key).data.Store(key, slices.Clone(nonNil(value)))
	return nil
}

// Delete removes an entry. Deleting a missing key is a no-op.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (f *flatImpl) Delete(key string) error {
	f.loadMu.RLock()
	defer f.loadMu.RUnlock()

	f.shardFor(key).data.Delete(key)
	return nil
}

// Clear removes all entries from all shards.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (f *flatImpl) Clear() error {
	f.loadMu.RLock()
	defer f.loadMu.RUnlock()

	for _, s := range f.shards {
		s.data.Clear()
	}
	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Methods - Query Operations
// --------------------------------------------------------------------------

// Get returns a copy of the value stored for key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (f *flatImpl) Get(key string) ([]byte, bool, error) {
	f.loadMu.RLock()
	defer f.loadMu.RUnlock()

	v, ok := f.shardFor(key).data.Load(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Has checks if a key exists in the database.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (f *flatImpl) Has(key string) (bool, error) {
	f.loadMu.RLock()
	defer f.loadMu.RUnlock()

	_, ok := f.shardFor(key).data.Load(key)
	return ok, nil
}

// Keys returns all keys of all shards. The result is a point-in-time collection,
// so the caller may delete the returned keys while iterating over them.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// Keys written concurrently may or may not be part of the result.
func (f *flatImpl) Keys() ([]string, error) {
	f.loadMu.RLock()
	defer f.loadMu.RUnlock()

	keys := make([]string, 0, f.size())
	for _, s := range f.shards {
		s.data.Range(func(key string, _ []byte) bool {
			keys = append(keys, key)
			return true
		})
	}
	return keys, nil
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes a snapshot of all entries, sorted by key so equal databases produce equal snapshots.
// Concurrent writes during Save may or may not be part of the snapshot.
func (f *flatImpl) Save(w io.Writer) error {
	f.loadMu.RLock()
	entries := make([]util.SnapshotEntry, 0, f.size())
	for _, s := range f.shards {
		s.data.Range(func(key string, value []byte) bool {
			entries = append(entries, util.SnapshotEntry{Key: key, Value: slices.Clone(value)})
			return true
		})
	}
	f.loadMu.RUnlock()

	slices.SortFunc(entries, func(a, b util.SnapshotEntry) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		default:
			return 0
		}
	})

	return util.WriteSnapshot(w, entries)
}

// Load replaces the whole database with the snapshot read from r.
// On error the database keeps its previous content.
func (f *flatImpl) Load(r io.Reader) error {
	shards := newShards(len(f.shards))
	seed := util.GenerateSeed()

	err := util.ReadSnapshot(r, func(key string, value []byte) error {
		idx := util.ShardIndex(util.HashString(key, seed), len(shards))
		shards[idx].data.Store(key, value)
		return nil
	})
	if err != nil {
		return err
	}

	f.loadMu.Lock()
	defer f.loadMu.Unlock()
	f.seed = seed
	f.shards = shards
	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns size estimates and shard balance statistics
func (f *flatImpl) GetInfo() db.DatabaseInfo {
	f.loadMu.RLock()
	defer f.loadMu.RUnlock()

	const samplesPerShard = 100

	histogram := util.NewSizeHistogram()
	shardSizes := make([]float64, len(f.shards))
	total := 0
	for i, s := range f.shards {
		count := 0
		s.data.Range(func(key string, value []byte) bool {
			histogram.AddSample(len(key) + len(value))
			count++
			return count < samplesPerShard
		})
		size := s.data.Size()
		shardSizes[i] = float64(size)
		total += size
	}

	meta := &struct {
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
		Info              string                 `json:"info"`
	}{
		ShardCount:        len(f.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		Info:              "SizeBytes is estimated from a sample of entries per shard.",
	}

	return db.DatabaseInfo{
		SizeBytes: histogram.EstimateBytes(total, 16),
		KeyCount:  total,
		DbType:    db.ImplFlat,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureGet, db.FeatureDelete, db.FeatureHas,
			db.FeatureKeys, db.FeatureClear,
			db.FeatureSave, db.FeatureLoad,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (f *flatImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureKeys |
		db.FeatureClear |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

// Close is a no-op, the memory is released with the database itself
func (f *flatImpl) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (f *flatImpl) size() int {
	n := 0
	for _, s := range f.shards {
		n += s.data.Size()
	}
	return n
}

// nonNil maps a nil value to an empty one, so a stored empty value is distinguishable from a missing key
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
