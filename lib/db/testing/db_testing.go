package testing

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/kvmodel/lib/db"
)

// DBFactory is a function that creates a new, empty instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, factory())
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("LoadCorrupt", func(t *testing.T) {
			testLoadCorrupt(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustSet(t testing.TB, database db.KVDB, key string, value []byte) {
	t.Helper()
	if err := database.Set(key, value); err != nil {
		t.Fatalf("Unexpected error during Set(%q): %v", key, err)
	}
}

func mustGet(t testing.TB, database db.KVDB, key string) ([]byte, bool) {
	t.Helper()
	value, ok, err := database.Get(key)
	if err != nil {
		t.Fatalf("Unexpected error during Get(%q): %v", key, err)
	}
	return value, ok
}

func mustKeys(t testing.TB, database db.KVDB) []string {
	t.Helper()
	keys, err := database.Keys()
	if err != nil {
		t.Fatalf("Unexpected error during Keys: %v", err)
	}
	slices.Sort(keys)
	return keys
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	mustSet(t, database, testKey, testValue1)

	result, exists := mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	mustSet(t, database, testKey, testValue2)

	result, exists = mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, exists = mustGet(t, database, "nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	// Get must hand out a copy
	retrievedValue, _ := mustGet(t, database, testKey)
	retrievedValue[0] = 'X'
	originalValue, _ := mustGet(t, database, testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	// Set must store a copy
	input := []byte("mutable")
	mustSet(t, database, "copy-key", input)
	input[0] = 'X'
	stored, _ := mustGet(t, database, "copy-key")
	if !bytes.Equal(stored, []byte("mutable")) {
		t.Errorf("Set should store a copy, got %s after mutating the input", stored)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	testKey := "delete-key"
	mustSet(t, database, testKey, []byte("delete-value"))

	if err := database.Delete(testKey); err != nil {
		t.Fatalf("Unexpected error during Delete: %v", err)
	}
	if _, exists := mustGet(t, database, testKey); exists {
		t.Errorf("Expected key %s to be gone after Delete", testKey)
	}

	// deleting a key that was never set is not an error
	if err := database.Delete("never-set"); err != nil {
		t.Errorf("Expected Delete of a missing key to succeed, got %v", err)
	}

	// a deleted key can be written again
	mustSet(t, database, testKey, []byte("again"))
	if value, exists := mustGet(t, database, testKey); !exists || !bytes.Equal(value, []byte("again")) {
		t.Errorf("Expected key to be writable after Delete, got exists=%v value=%s", exists, value)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas|db.FeatureDelete)

	has, err := database.Has("has-key")
	if err != nil {
		t.Fatalf("Unexpected error during Has: %v", err)
	}
	if has {
		t.Errorf("Expected Has to be false before Set")
	}

	mustSet(t, database, "has-key", []byte{})
	if has, _ = database.Has("has-key"); !has {
		t.Errorf("Expected Has to be true for a key with an empty value")
	}

	_ = database.Delete("has-key")
	if has, _ = database.Has("has-key"); has {
		t.Errorf("Expected Has to be false after Delete")
	}
}

func testKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureKeys|db.FeatureDelete)

	if keys := mustKeys(t, database); len(keys) != 0 {
		t.Errorf("Expected no keys in an empty database, got %v", keys)
	}

	want := []string{"a", "a/b", "a/b/c", "b"}
	for _, k := range want {
		mustSet(t, database, k, []byte(k))
	}
	// overwriting must not duplicate keys
	mustSet(t, database, "a", []byte("again"))

	if keys := mustKeys(t, database); !slices.Equal(keys, want) {
		t.Errorf("Expected keys %v, got %v", want, keys)
	}

	// the result must be safe to delete from while iterating
	keys, _ := database.Keys()
	for _, k := range keys {
		if err := database.Delete(k); err != nil {
			t.Errorf("Unexpected error deleting %s: %v", k, err)
		}
	}
	if keys := mustKeys(t, database); len(keys) != 0 {
		t.Errorf("Expected no keys after deleting all, got %v", keys)
	}
}

func testClear(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureClear|db.FeatureKeys)

	for i := 0; i < 100; i++ {
		mustSet(t, database, fmt.Sprintf("clear-%d", i), []byte("x"))
	}
	if err := database.Clear(); err != nil {
		t.Fatalf("Unexpected error during Clear: %v", err)
	}
	if keys := mustKeys(t, database); len(keys) != 0 {
		t.Errorf("Expected no keys after Clear, got %d", len(keys))
	}

	// clearing an empty database is fine
	if err := database.Clear(); err != nil {
		t.Errorf("Expected Clear on an empty database to succeed, got %v", err)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	database2 := factory()

	// close the databases after the test
	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureSave|db.FeatureLoad|db.FeatureKeys)

	numEntries := 1000
	originalKeys := make([]string, numEntries)
	originalValues := make([][]byte, numEntries)
	for i := 0; i < numEntries; i++ {
		key := fmt.Sprintf("save-load-test-key-%d", i)
		value := []byte(fmt.Sprintf("save-load-test-value-%d", i))
		originalKeys[i] = key
		originalValues[i] = value
		mustSet(t, database, key, value)
	}

	// the target has content that must be replaced, not merged
	mustSet(t, database2, "stale-key", []byte("stale"))

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}
	if err := database2.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	for i := 0; i < numEntries; i++ {
		actualValue, exists := mustGet(t, database2, originalKeys[i])
		if !exists {
			t.Errorf("Key %s not found after Load", originalKeys[i])
			continue
		}
		if !bytes.Equal(actualValue, originalValues[i]) {
			t.Errorf("Value mismatch for key %s: expected %s, got %s", originalKeys[i], originalValues[i], actualValue)
		}
	}

	if _, exists := mustGet(t, database2, "stale-key"); exists {
		t.Errorf("Expected Load to replace the previous content")
	}
	if n := len(mustKeys(t, database2)); n != numEntries {
		t.Errorf("Expected %d keys after Load, got %d", numEntries, n)
	}

	// saving the same content twice yields the same bytes
	var a, b bytes.Buffer
	_ = database.Save(&a)
	_ = database2.Save(&b)
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Errorf("Expected identical snapshots for identical content")
	}
}

func testLoadCorrupt(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureLoad)

	mustSet(t, database, "keep", []byte("me"))

	err := database.Load(strings.NewReader("definitely not a snapshot"))
	if err == nil {
		t.Fatalf("Expected an error loading a corrupt snapshot")
	}

	if value, exists := mustGet(t, database, "keep"); !exists || !bytes.Equal(value, []byte("me")) {
		t.Errorf("Expected a failed Load to leave the database untouched")
	}

	if err := database.Load(bytes.NewReader(nil)); err == nil {
		t.Errorf("Expected an error loading an empty reader")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")
	mustSet(t, database, emptyKey, emptyKeyValue)
	if result, exists := mustGet(t, database, emptyKey); !exists {
		t.Errorf("Empty key not found after Set")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	nilValueKey := "nil-value-key"
	mustSet(t, database, nilValueKey, nil)
	if result, exists := mustGet(t, database, nilValueKey); !exists {
		t.Errorf("Key for nil value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", result)
	}

	unicodeKey := "モデル/Ünïcødé/🔑"
	mustSet(t, database, unicodeKey, []byte("ok"))
	if result, exists := mustGet(t, database, unicodeKey); !exists || string(result) != "ok" {
		t.Errorf("Unicode key did not round trip, exists=%v value=%s", exists, result)
	}

	// keys are case-sensitive
	mustSet(t, database, "Case", []byte("upper"))
	mustSet(t, database, "case", []byte("lower"))
	if result, _ := mustGet(t, database, "Case"); string(result) != "upper" {
		t.Errorf("Expected case-sensitive keys, got %s for Case", result)
	}

	largeKey := strings.Repeat("k", 1000)
	mustSet(t, database, largeKey, []byte("value for large key"))
	if _, exists := mustGet(t, database, largeKey); !exists {
		t.Errorf("Large key not found after Set")
	}

	largeValue := make([]byte, 1024*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}
	mustSet(t, database, "large-value-key", largeValue)
	if result, exists := mustGet(t, database, "large-value-key"); !exists || !bytes.Equal(result, largeValue) {
		t.Errorf("Large value did not round trip")
	}
}

func testConcurrency(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureKeys)

	const (
		workers = 8
		perWork = 100
	)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				key := fmt.Sprintf("w%d/k%d", w, i)
				if err := database.Set(key, []byte(key)); err != nil {
					errs <- err
					return
				}
				if v, ok, err := database.Get(key); err != nil || !ok || string(v) != key {
					errs <- fmt.Errorf("read back %s: ok=%v err=%v value=%s", key, ok, err, v)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent access failed: %v", err)
	}
	if n := len(mustKeys(t, database)); n != workers*perWork {
		t.Errorf("Expected %d keys, got %d", workers*perWork, n)
	}
}

// testRealisticUsage mirrors what the model layer does: path-like keys,
// enumeration, prefix filtering and removal of a subtree.
func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete|db.FeatureKeys)

	entries := map[string]string{
		"model/count":         `{"val":5}`,
		"model/items/0/label": `{"val":"x"}`,
		"model/items/1/label": `{"val":"y"}`,
		"modelX/count":        `{"val":1}`,
		"other/count":         `{"val":2}`,
	}
	for k, v := range entries {
		mustSet(t, database, k, []byte(v))
	}

	keys, err := database.Keys()
	if err != nil {
		t.Fatalf("Unexpected error during Keys: %v", err)
	}
	for _, k := range keys {
		if strings.HasPrefix(k, "model/") {
			if err := database.Delete(k); err != nil {
				t.Fatalf("Unexpected error during Delete: %v", err)
			}
		}
	}

	want := []string{"modelX/count", "other/count"}
	if got := mustKeys(t, database); !slices.Equal(got, want) {
		t.Errorf("Expected remaining keys %v, got %v", want, got)
	}

	info := database.GetInfo()
	if info.KeyCount != len(want) {
		t.Errorf("Expected GetInfo to report %d keys, got %d", len(want), info.KeyCount)
	}
}
