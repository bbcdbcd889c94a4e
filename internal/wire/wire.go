// Package wire provides the compact binary encoding used for topology
// blobs: a header plus adj_indices[], dests[], and optional
// edge_prop_index[]/node_prop_index[] arrays. Each array is encoded
// with google.golang.org/protobuf/encoding/protowire directly — a
// varint-encoded element count followed by that many varints — rather
// than a generated protobuf message, since these arrays are
// runtime-sized numeric slices with no fixed schema worth declaring.
// Using protowire's primitives keeps the encoding byte-compatible with
// protobuf's own wire format, so a blob can be embedded inside a
// larger protobuf message if a caller ever needs that.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// EncodeUint64Slice appends the length-prefixed varint encoding of vals
// to dst and returns the extended slice.
func EncodeUint64Slice(dst []byte, vals []uint64) []byte {
	dst = protowire.AppendVarint(dst, uint64(len(vals)))
	for _, v := range vals {
		dst = protowire.AppendVarint(dst, v)
	}
	return dst
}

// DecodeUint64Slice reads a length-prefixed varint sequence from b and
// returns the decoded values along with the number of bytes consumed.
func DecodeUint64Slice(b []byte) ([]uint64, int, error) {
	n, nLen := protowire.ConsumeVarint(b)
	if nLen < 0 {
		return nil, 0, fmt.Errorf("wire: corrupt slice length prefix")
	}
	off := nLen
	out := make([]uint64, n)
	for i := uint64(0); i < n; i++ {
		v, vLen := protowire.ConsumeVarint(b[off:])
		if vLen < 0 {
			return nil, 0, fmt.Errorf("wire: corrupt element %d", i)
		}
		out[i] = v
		off += vLen
	}
	return out, off, nil
}

// EncodeBool appends a single boolean as a one-byte varint.
func EncodeBool(dst []byte, v bool) []byte {
	if v {
		return protowire.AppendVarint(dst, 1)
	}
	return protowire.AppendVarint(dst, 0)
}

// DecodeBool reads a single boolean and the number of bytes consumed.
func DecodeBool(b []byte) (bool, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return false, 0, fmt.Errorf("wire: corrupt bool")
	}
	return v != 0, n, nil
}

// EncodeString appends a length-prefixed UTF-8 string.
func EncodeString(dst []byte, s string) []byte {
	dst = protowire.AppendVarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// DecodeString reads a length-prefixed UTF-8 string.
func DecodeString(b []byte) (string, int, error) {
	n, nLen := protowire.ConsumeVarint(b)
	if nLen < 0 {
		return "", 0, fmt.Errorf("wire: corrupt string length prefix")
	}
	end := nLen + int(n)
	if end > len(b) {
		return "", 0, fmt.Errorf("wire: truncated string")
	}
	return string(b[nLen:end]), end, nil
}
