package util

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// --------------------------------------------------------------------------
// Snapshot format
// --------------------------------------------------------------------------
//
// Every engine reads and writes the same layout, so a snapshot taken from one
// engine can be restored into another:
//
//	magic   [8]byte  "KVMSNAP\x00"
//	version uint8
//	count   uint64
//	count * (keyLen uint32, key, valueLen uint32, value)
//
// All integers are little endian.

const (
	snapshotMagic   = "KVMSNAP\x00"
	snapshotVersion = 1

	// maxSnapshotField guards against allocating huge buffers for corrupt input
	maxSnapshotField = 1 << 30
)

// ErrSnapshotFormat is returned when the input is not a snapshot this package wrote
var ErrSnapshotFormat = errors.New("invalid snapshot format")

// SnapshotEntry is one key-value pair of a snapshot
type SnapshotEntry struct {
	Key   string
	Value []byte
}

// WriteSnapshot writes entries to w in the shared snapshot format
func WriteSnapshot(w io.Writer, entries []SnapshotEntry) error {
	bw := bufio.NewWriterSize(w, 1024*1024)

	if _, err := bw.WriteString(snapshotMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(snapshotVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, e := range entries {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.Key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(e.Key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(e.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadSnapshot reads a snapshot from r and calls fn for every entry in order.
// Reading stops at the first error returned by fn.
func ReadSnapshot(r io.Reader, fn func(key string, value []byte) error) error {
	br := bufio.NewReaderSize(r, 1024*1024)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotFormat, err)
	}
	if string(magic) != snapshotMagic {
		return fmt.Errorf("%w: magic number mismatch", ErrSnapshotFormat)
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != snapshotVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrSnapshotFormat, version, snapshotVersion)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		key, err := readField(br)
		if err != nil {
			return err
		}
		value, err := readField(br)
		if err != nil {
			return err
		}
		if err := fn(string(key), value); err != nil {
			return err
		}
	}

	return nil
}

func readField(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxSnapshotField {
		return nil, fmt.Errorf("%w: field of %d bytes", ErrSnapshotFormat, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
