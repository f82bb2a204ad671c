package util

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// TestSnapshotRoundTrip tests that every entry written is read back in order
func TestSnapshotRoundTrip(t *testing.T) {
	entries := []SnapshotEntry{
		{Key: "model/count", Value: []byte(`{"val":42}`)},
		{Key: "model/empty", Value: []byte{}},
		{Key: "model/items/0/label", Value: []byte(`{"val":"a"}`)},
		{Key: "", Value: []byte("empty key")},
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, entries); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	var got []SnapshotEntry
	err := ReadSnapshot(&buf, func(key string, value []byte) error {
		got = append(got, SnapshotEntry{Key: key, Value: value})
		return nil
	})
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}

	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i].Key != entries[i].Key || !bytes.Equal(got[i].Value, entries[i].Value) {
			t.Errorf("Entry %d: expected %q=%q, got %q=%q",
				i, entries[i].Key, entries[i].Value, got[i].Key, got[i].Value)
		}
	}
}

// TestSnapshotEmpty tests that an empty snapshot is valid
func TestSnapshotEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, nil); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	calls := 0
	if err := ReadSnapshot(&buf, func(string, []byte) error { calls++; return nil }); err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no entries, got %d", calls)
	}
}

// TestSnapshotRejectsGarbage tests the format checks
func TestSnapshotRejectsGarbage(t *testing.T) {
	noop := func(string, []byte) error { return nil }

	t.Run("WrongMagic", func(t *testing.T) {
		err := ReadSnapshot(bytes.NewReader([]byte("NOTASNAPSHOT........")), noop)
		if !errors.Is(err, ErrSnapshotFormat) {
			t.Errorf("Expected ErrSnapshotFormat, got %v", err)
		}
	})

	t.Run("TooShort", func(t *testing.T) {
		err := ReadSnapshot(bytes.NewReader([]byte("KVM")), noop)
		if !errors.Is(err, ErrSnapshotFormat) {
			t.Errorf("Expected ErrSnapshotFormat, got %v", err)
		}
	})

	t.Run("WrongVersion", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString(snapshotMagic)
		buf.WriteByte(snapshotVersion + 1)
		_ = binary.Write(&buf, binary.LittleEndian, uint64(0))

		err := ReadSnapshot(&buf, noop)
		if !errors.Is(err, ErrSnapshotFormat) {
			t.Errorf("Expected ErrSnapshotFormat, got %v", err)
		}
	})

	t.Run("OversizedField", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString(snapshotMagic)
		buf.WriteByte(snapshotVersion)
		_ = binary.Write(&buf, binary.LittleEndian, uint64(1))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(maxSnapshotField+1))

		err := ReadSnapshot(&buf, noop)
		if !errors.Is(err, ErrSnapshotFormat) {
			t.Errorf("Expected ErrSnapshotFormat, got %v", err)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		var buf bytes.Buffer
		_ = WriteSnapshot(&buf, []SnapshotEntry{{Key: "key", Value: []byte("value")}})
		truncated := buf.Bytes()[:buf.Len()-2]

		if err := ReadSnapshot(bytes.NewReader(truncated), noop); err == nil {
			t.Error("Expected an error for a truncated snapshot")
		}
	})
}

// TestSnapshotCallbackError tests that reading stops at the first callback error
func TestSnapshotCallbackError(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteSnapshot(&buf, []SnapshotEntry{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
	})

	stop := errors.New("stop")
	calls := 0
	err := ReadSnapshot(&buf, func(string, []byte) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Expected callback error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 callback call, got %d", calls)
	}
}
