// Package columnar is the one concrete implementation of
// property.Codec: a whole-column read/streaming-write contract backed
// by package wire's varint primitives. PropertyManager treats a
// column's bytes as opaque; this package is what actually produces and
// consumes them, keeping that boundary real rather than a bare
// interface with no implementation behind it.
package columnar

import "github.com/vela-graph/rdg/internal/wire"

// Uint64Codec encodes a []uint64 column as a length-prefixed varint
// sequence. It is the default codec for numeric property columns.
type Uint64Codec struct{}

func (Uint64Codec) Encode(values []uint64) ([]byte, error) {
	return wire.EncodeUint64Slice(nil, values), nil
}

func (Uint64Codec) Decode(data []byte) ([]uint64, error) {
	vals, _, err := wire.DecodeUint64Slice(data)
	return vals, err
}
