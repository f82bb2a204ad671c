package lstore

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/ValentinKolb/kvmodel/lib/db"
	"github.com/ValentinKolb/kvmodel/lib/db/engines/flat"
	"github.com/ValentinKolb/kvmodel/lib/db/engines/sqlite"
	"github.com/ValentinKolb/kvmodel/lib/store"
)

func newFlatStore(t *testing.T, name string) store.IStore {
	t.Helper()
	s := NewLocalStore(func() db.KVDB { return flat.NewFlatDB(nil) }, WithName(name))
	t.Cleanup(func() { _ = s.(io.Closer).Close() })
	return s
}

func TestLocalStoreBasics(t *testing.T) {
	s := newFlatStore(t, "test-basics")

	if _, found, err := s.Get("missing"); err != nil || found {
		t.Errorf("Expected missing key, got found=%v err=%v", found, err)
	}

	if err := s.Set("model/count", `{"val":1}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, found, err := s.Get("model/count")
	if err != nil || !found || value != `{"val":1}` {
		t.Errorf("Expected stored value, got %q found=%v err=%v", value, found, err)
	}

	if ok, err := s.Has("model/count"); err != nil || !ok {
		t.Errorf("Expected Has to report the key, got %v err=%v", ok, err)
	}

	if err := s.Set("model/empty", ""); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if value, found, _ := s.Get("model/empty"); !found || value != "" {
		t.Errorf("Expected empty value to be found, got %q found=%v", value, found)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"model/count", "model/empty"}) {
		t.Errorf("Unexpected keys %v", keys)
	}

	if err := s.Delete("model/count"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete("model/count"); err != nil {
		t.Errorf("Deleting a missing key should succeed, got %v", err)
	}
	if ok, _ := s.Has("model/count"); ok {
		t.Error("Expected key to be deleted")
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if keys, _ := s.Keys(); len(keys) != 0 {
		t.Errorf("Expected no keys after ClearAll, got %v", keys)
	}

	info, err := s.GetDBInfo()
	if err != nil || info.DbType != db.ImplFlat {
		t.Errorf("Expected flat db info, got %+v err=%v", info, err)
	}
}

func TestLocalStoreSnapshot(t *testing.T) {
	src := newFlatStore(t, "test-snap-src")
	dst := NewLocalStore(func() db.KVDB {
		d, err := sqlite.Open(sqlite.MemoryPath, nil)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return d
	}, WithName("test-snap-dst"))
	t.Cleanup(func() { _ = dst.(io.Closer).Close() })

	_ = src.Set("a/b", `{"val":"x"}`)
	_ = src.Set("a/c", `{}`)

	var buf bytes.Buffer
	if err := src.(store.Snapshotter).Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := dst.(store.Snapshotter).Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, key := range []string{"a/b", "a/c"} {
		want, _, _ := src.Get(key)
		got, found, err := dst.Get(key)
		if err != nil || !found || got != want {
			t.Errorf("Key %q: expected %q, got %q found=%v err=%v", key, want, got, found, err)
		}
	}

	err := dst.(store.Snapshotter).Load(bytes.NewReader([]byte("garbage")))
	if store.CodeOf(err) != store.RetCInternalError {
		t.Errorf("Expected RetCInternalError for a corrupt snapshot, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Failure handling
// --------------------------------------------------------------------------

var errBroken = errors.New("disk on fire")

// limitedDB supports only Get and fails on it
type limitedDB struct {
	db.KVDB
}

func (limitedDB) SupportsFeature(f db.Feature) bool {
	return f == db.FeatureGet
}

func (limitedDB) Get(string) ([]byte, bool, error) {
	return nil, false, errBroken
}

func (limitedDB) GetInfo() db.DatabaseInfo {
	return db.DatabaseInfo{DbType: "limited"}
}

func (limitedDB) Close() error {
	return nil
}

func TestLocalStoreErrors(t *testing.T) {
	s := NewLocalStore(func() db.KVDB { return limitedDB{} }, WithName("test-errors"))

	err := s.Set("k", "v")
	if store.CodeOf(err) != store.RetCUnsupportedOperation {
		t.Errorf("Expected RetCUnsupportedOperation, got %v", err)
	}
	if _, err := s.Keys(); store.CodeOf(err) != store.RetCUnsupportedOperation {
		t.Errorf("Expected RetCUnsupportedOperation for Keys, got %v", err)
	}

	_, _, err = s.Get("k")
	if store.CodeOf(err) != store.RetCInternalError {
		t.Errorf("Expected RetCInternalError, got %v", err)
	}
	if !errors.Is(err, errBroken) {
		t.Errorf("Expected engine error to be wrapped, got %v", err)
	}
}

func TestCodeOf(t *testing.T) {
	if store.CodeOf(nil) != store.RetCSuccess {
		t.Error("Expected RetCSuccess for nil")
	}
	if store.CodeOf(errors.New("plain")) != store.RetCInternalError {
		t.Error("Expected RetCInternalError for a plain error")
	}
	if store.CodeOf(store.NewError(store.RetCInvalidOperation, "x")) != store.RetCInvalidOperation {
		t.Error("Expected the code carried by the error")
	}
}
