// Package snapshot exports and restores the whole contract state store.
//
// A snapshot is a fixed header followed by one payload:
//
//	magic   [8]byte  "MRBLSNAP"
//	version uint16   big endian
//	flags   uint16   bit 0 set when the payload is stored uncompressed
//	rawSize uint64   size of the CBOR body
//	size    uint64   size of the payload that follows
//
// The body is the CBOR encoding of every key/value pair in key order. The
// payload is the body as a single LZ4 block.
package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/LeJamon/goMarble/internal/codec"
	"github.com/LeJamon/goMarble/internal/storage/database"
)

const (
	// Version is the current snapshot format version.
	Version uint16 = 1

	headerSize = 8 + 2 + 2 + 8 + 8
	flagRaw    = 1 << 0

	maxRawSize = 1 << 32
	batchSize  = 1000
)

var magic = [8]byte{'M', 'R', 'B', 'L', 'S', 'N', 'A', 'P'}

var (
	// ErrCorrupt reports a malformed snapshot.
	ErrCorrupt = errors.New("corrupt snapshot")
	// ErrUnsupportedVersion reports a snapshot from a newer format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	// ErrNotEmpty is returned when restoring into a store that has data.
	ErrNotEmpty = errors.New("target store is not empty")
)

// Entry is one key/value pair.
type Entry struct {
	Key   []byte `codec:"k"`
	Value []byte `codec:"v"`
}

type body struct {
	Entries []Entry `codec:"entries"`
}

// Info describes a written or read snapshot.
type Info struct {
	Version     uint16 `json:"version"`
	Entries     int    `json:"entries"`
	RawSize     uint64 `json:"raw_size"`
	PayloadSize uint64 `json:"payload_size"`
	Compressed  bool   `json:"compressed"`
}

// Export writes every entry of db to w.
func Export(ctx context.Context, db database.DB, w io.Writer) (*Info, error) {
	it, err := db.Iterator(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open iterator: %w", err)
	}
	defer it.Close()

	var b body
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.Entries = append(b.Entries, Entry{
			Key:   append([]byte(nil), it.Key()...),
			Value: append([]byte(nil), it.Value()...),
		})
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterate store: %w", err)
	}

	raw, err := codec.Marshal(&b)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	payload, compressed, err := compress(raw)
	if err != nil {
		return nil, err
	}
	var flags uint16
	if !compressed {
		payload = raw
		flags |= flagRaw
	}

	header := make([]byte, headerSize)
	copy(header, magic[:])
	binary.BigEndian.PutUint16(header[8:], Version)
	binary.BigEndian.PutUint16(header[10:], flags)
	binary.BigEndian.PutUint64(header[12:], uint64(len(raw)))
	binary.BigEndian.PutUint64(header[20:], uint64(len(payload)))
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("write payload: %w", err)
	}
	return &Info{
		Version:     Version,
		Entries:     len(b.Entries),
		RawSize:     uint64(len(raw)),
		PayloadSize: uint64(len(payload)),
		Compressed:  compressed,
	}, nil
}

// Read decodes a snapshot from r.
func Read(r io.Reader) ([]Entry, *Info, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if !bytes.Equal(header[:8], magic[:]) {
		return nil, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	info := &Info{
		Version:     binary.BigEndian.Uint16(header[8:]),
		RawSize:     binary.BigEndian.Uint64(header[12:]),
		PayloadSize: binary.BigEndian.Uint64(header[20:]),
	}
	if info.Version > Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, info.Version)
	}
	flags := binary.BigEndian.Uint16(header[10:])
	info.Compressed = flags&flagRaw == 0
	if info.PayloadSize > maxRawSize {
		return nil, nil, fmt.Errorf("%w: payload size %d", ErrCorrupt, info.PayloadSize)
	}

	payload := make([]byte, info.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, fmt.Errorf("%w: payload: %v", ErrCorrupt, err)
	}
	raw := payload
	if info.Compressed {
		var err error
		if raw, err = decompress(payload, info.RawSize); err != nil {
			return nil, nil, err
		}
	} else if uint64(len(raw)) != info.RawSize {
		return nil, nil, fmt.Errorf("%w: raw payload is %d bytes, header says %d", ErrCorrupt, len(raw), info.RawSize)
	}

	var b body
	if len(raw) > 0 {
		if err := codec.Unmarshal(raw, &b); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	info.Entries = len(b.Entries)
	return b.Entries, info, nil
}

// Import restores a snapshot into an empty db.
func Import(ctx context.Context, db database.DB, r io.Reader) (*Info, error) {
	it, err := db.Iterator(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open iterator: %w", err)
	}
	hasData := it.Next()
	it.Close()
	if hasData {
		return nil, ErrNotEmpty
	}

	entries, info, err := Read(r)
	if err != nil {
		return nil, err
	}
	ops := make([]database.BatchOperation, 0, batchSize)
	for _, e := range entries {
		ops = append(ops, database.BatchOperation{Type: database.BatchPut, Key: e.Key, Value: e.Value})
		if len(ops) == batchSize {
			if err := db.Batch(ctx, ops); err != nil {
				return nil, fmt.Errorf("restore batch: %w", err)
			}
			ops = ops[:0]
		}
	}
	if len(ops) > 0 {
		if err := db.Batch(ctx, ops); err != nil {
			return nil, fmt.Errorf("restore batch: %w", err)
		}
	}
	return info, nil
}
