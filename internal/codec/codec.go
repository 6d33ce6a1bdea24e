// Package codec provides the deterministic binary encoding used for every
// value persisted in contract state and in snapshots.
package codec

import (
	"fmt"

	ugorji "github.com/ugorji/go/codec"
)

// handle is configured once and shared; ugorji handles are safe for
// concurrent use after configuration.
var handle = newHandle()

func newHandle() *ugorji.CborHandle {
	h := &ugorji.CborHandle{}
	// Canonical sorts map keys so equal values always encode to equal bytes.
	h.Canonical = true
	h.StructToArray = false
	h.RawToString = false
	return h
}

// Marshal encodes v as canonical CBOR.
func Marshal(v interface{}) ([]byte, error) {
	var out []byte
	enc := ugorji.NewEncoderBytes(&out, handle)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("cbor encode %T: %w", v, err)
	}
	return out, nil
}

// Unmarshal decodes CBOR data into v, which must be a pointer.
func Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("cbor decode %T: empty input", v)
	}
	dec := ugorji.NewDecoderBytes(data, handle)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("cbor decode %T: %w", v, err)
	}
	return nil
}
