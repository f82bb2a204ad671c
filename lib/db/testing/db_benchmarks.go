package testing

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/kvmodel/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory())
		})

		b.Run("Keys", func(b *testing.B) {
			benchmarkKeys(b, factory())
		})

		b.Run("SaveLoad", func(b *testing.B) {
			benchmarkSaveLoad(b, factory)
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// envelope sized like a typical stored field value
var benchValue = []byte(`{"val":"` + strings.Repeat("v", 48) + `"}`)

func fill(b *testing.B, database db.KVDB, n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		if err := database.Set(fmt.Sprintf("model/items/%d/label", i), benchValue); err != nil {
			b.Fatalf("fill: %v", err)
		}
	}
}

// Benchmark for Set operation on new keys
func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	var counter atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			_ = database.Set(fmt.Sprintf("model/set/%d", i), benchValue)
		}
	})
}

// Benchmark for Set operation overwriting a small set of keys
func benchmarkSetExisting(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	const numKeys = 1000
	fill(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			_ = database.Set(fmt.Sprintf("model/items/%d/label", r.Intn(numKeys)), benchValue)
		}
	})
}

// Benchmark for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	const numKeys = 1000
	fill(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			_, _, _ = database.Get(fmt.Sprintf("model/items/%d/label", r.Intn(numKeys)))
		}
	})
}

// Benchmark for Delete operation
func benchmarkDelete(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureDelete)

	keys := make([]string, b.N)
	for i := range keys {
		keys[i] = fmt.Sprintf("model/delete/%d", i)
		_ = database.Set(keys[i], benchValue)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Delete(keys[i])
	}
}

// Benchmark for enumerating all keys, the hot path of a subtree clear
func benchmarkKeys(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureKeys)

	fill(b, database, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := database.Keys(); err != nil {
			b.Fatalf("keys: %v", err)
		}
	}
}

// Benchmark for snapshot round trips
func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	source := factory()
	target := factory()
	b.Cleanup(func() {
		source.Close()
		target.Close()
	})

	requireFeature(b, source, db.FeatureSet|db.FeatureSave|db.FeatureLoad)

	fill(b, source, 10000)

	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var buf bytes.Buffer
			if err := source.Save(&buf); err != nil {
				b.Fatalf("save: %v", err)
			}
		}
	})

	var snapshot bytes.Buffer
	if err := source.Save(&snapshot); err != nil {
		b.Fatalf("save: %v", err)
	}

	b.Run("Load", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := target.Load(bytes.NewReader(snapshot.Bytes())); err != nil {
				b.Fatalf("load: %v", err)
			}
		}
	})
}

// Benchmark for a read-heavy mix similar to model field access
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	const numKeys = 1000
	fill(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := fmt.Sprintf("model/items/%d/label", r.Intn(numKeys))
			switch op := r.Intn(10); {
			case op < 7:
				_, _, _ = database.Get(key)
			case op < 9:
				_ = database.Set(key, benchValue)
			default:
				_ = database.Delete(key)
			}
		}
	})
}
