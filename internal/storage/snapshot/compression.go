package snapshot

import (
	"fmt"

	"github.com/pierrec/lz4"
)

// compress returns the LZ4 block of data, or ok=false when LZ4 cannot make
// it smaller.
func compress(data []byte) ([]byte, bool, error) {
	if len(data) == 0 {
		return nil, false, nil
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if n == 0 || n >= len(data) {
		return nil, false, nil
	}
	return compressed[:n], true, nil
}

// decompress expands an LZ4 block whose decoded size is known.
func decompress(data []byte, rawSize uint64) ([]byte, error) {
	if rawSize > maxRawSize {
		return nil, fmt.Errorf("%w: raw size %d", ErrCorrupt, rawSize)
	}
	out := make([]byte, rawSize)
	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
	}
	if uint64(n) != rawSize {
		return nil, fmt.Errorf("%w: decoded %d bytes, header says %d", ErrCorrupt, n, rawSize)
	}
	return out, nil
}
