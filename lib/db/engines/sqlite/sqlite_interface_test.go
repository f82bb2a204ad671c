package sqlite

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/kvmodel/lib/db"
	dbtesting "github.com/ValentinKolb/kvmodel/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "SQLiteDB(memory)", func() db.KVDB {
		database, err := Open(MemoryPath, nil)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return database
	})

	dir := t.TempDir()
	n := 0
	dbtesting.RunKVDBTests(t, "SQLiteDB(file)", func() db.KVDB {
		n++
		database, err := Open(filepath.Join(dir, fmt.Sprintf("test-%d.db", n)), nil)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return database
	})
}

func TestDurableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")

	first, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !first.SupportsFeature(db.FeatureDurable) {
		t.Errorf("Expected sqlite to advertise FeatureDurable")
	}
	if err := first.Set("model/count", []byte(`{"val":5}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	value, ok, err := second.Get("model/count")
	if err != nil || !ok {
		t.Fatalf("Expected model/count to survive reopen, ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(value, []byte(`{"val":5}`)) {
		t.Errorf("Expected %s, got %s", `{"val":5}`, value)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  ", nil); err == nil {
		t.Errorf("Expected an error for an empty path")
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "SQLiteDB", func() db.KVDB {
		database, err := Open(MemoryPath, nil)
		if err != nil {
			b.Fatalf("open: %v", err)
		}
		return database
	})
}
