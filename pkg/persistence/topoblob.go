package persistence

import (
	"fmt"

	"github.com/vela-graph/rdg/internal/csr"
	"github.com/vela-graph/rdg/internal/wire"
	"github.com/vela-graph/rdg/pkg/model"
)

// encodeTopology serializes one RdgTopology record into the "header +
// adj_indices[], dests[], optional edge_prop_index[], optional
// node_prop_index[]" layout for the topology record file
// kind, using the varint wire codec from package wire.
func encodeTopology(t model.RdgTopology) []byte {
	var buf []byte
	buf = wire.EncodeBool(buf, t.Tag.Transpose == csr.TransposeYes)
	buf = append(buf, byte(t.Tag.EdgeSort), byte(t.Tag.NodeSort))
	buf = wire.EncodeUint64Slice(buf, widenU32(t.AdjIndices))
	buf = wire.EncodeUint64Slice(buf, widenU32(t.Dests))
	buf = wire.EncodeUint64Slice(buf, widenU32(t.EdgePropIndices))
	buf = wire.EncodeUint64Slice(buf, widenU32(t.NodePropIndices))
	buf = append(buf, 0) // fingerprint-present flag, patched below
	if t.EdgeTypeFingerprint != 0 {
		buf[len(buf)-1] = 1
		var fbuf [8]byte
		for i := 0; i < 8; i++ {
			fbuf[i] = byte(t.EdgeTypeFingerprint >> (8 * i))
		}
		buf = append(buf, fbuf[:]...)
	}
	return buf
}

// decodeTopology is encodeTopology's inverse.
func decodeTopology(data []byte, tag model.Tag) (model.RdgTopology, error) {
	out := model.RdgTopology{Tag: tag}
	if len(data) < 3 {
		return out, fmt.Errorf("persistence: topology blob too short")
	}
	transposed, n, err := wire.DecodeBool(data)
	if err != nil {
		return out, fmt.Errorf("persistence: topology transpose flag: %w", err)
	}
	_ = transposed
	off := n
	off += 2 // edge_sort, node_sort bytes are carried in tag already

	adj, n, err := wire.DecodeUint64Slice(data[off:])
	if err != nil {
		return out, fmt.Errorf("persistence: topology adj_indices: %w", err)
	}
	off += n

	dests, n, err := wire.DecodeUint64Slice(data[off:])
	if err != nil {
		return out, fmt.Errorf("persistence: topology dests: %w", err)
	}
	off += n

	edgePropIdx, n, err := wire.DecodeUint64Slice(data[off:])
	if err != nil {
		return out, fmt.Errorf("persistence: topology edge_prop_index: %w", err)
	}
	off += n

	nodePropIdx, n, err := wire.DecodeUint64Slice(data[off:])
	if err != nil {
		return out, fmt.Errorf("persistence: topology node_prop_index: %w", err)
	}
	off += n

	if off >= len(data) {
		return out, fmt.Errorf("persistence: topology blob missing fingerprint flag")
	}
	hasFingerprint := data[off] == 1
	off++
	if hasFingerprint {
		if off+8 > len(data) {
			return out, fmt.Errorf("persistence: topology blob truncated fingerprint")
		}
		var fp uint64
		for i := 0; i < 8; i++ {
			fp |= uint64(data[off+i]) << (8 * i)
		}
		out.EdgeTypeFingerprint = fp
	}

	out.AdjIndices = narrowU32(adj)
	out.Dests = narrowU32(dests)
	out.EdgePropIndices = narrowU32(edgePropIdx)
	out.NodePropIndices = narrowU32(nodePropIdx)
	return out, nil
}

func widenU32(vals []uint32) []uint64 {
	if len(vals) == 0 {
		return nil
	}
	out := make([]uint64, len(vals))
	for i, v := range vals {
		out[i] = uint64(v)
	}
	return out
}

func narrowU32(vals []uint64) []uint32 {
	if len(vals) == 0 {
		return nil
	}
	out := make([]uint32, len(vals))
	for i, v := range vals {
		out[i] = uint32(v)
	}
	return out
}
