package segment

import (
	"encoding/binary"
	"fmt"

	"github.com/lakota-db/lakota/codec"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/schema"
)

// EncodeInline serialises f into a single self-contained blob: a manifest
// (identical shape to the one Write stores) immediately followed by every
// column's encoded payload concatenated in schema storage order. It is
// used for Commit's small-write embedding path (spec.md §4.4), where the
// row count is small enough that a whole extra pair of Pod round trips for
// a separate segment blob and column blobs isn't worth it.
func EncodeInline(sc *schema.Schema, f *frame.Frame) ([]byte, error) {
	order := sc.StorageOrder()
	entries := make([]columnEntry, 0, len(order))
	payloads := make([][]byte, 0, len(order))
	for _, name := range order {
		col, _ := sc.Column(name)
		c, ok := f.Cols[name]
		if !ok {
			return nil, fmt.Errorf("segment: inline frame missing column %s", name)
		}
		payload, err := codec.Encode(c, col.Codec)
		if err != nil {
			return nil, fmt.Errorf("segment: inline encode column %s: %w", name, err)
		}
		entries = append(entries, columnEntry{length: uint32(len(payload)), rowCount: uint64(c.Len())})
		payloads = append(payloads, payload)
	}
	manifest := encodeManifest(entries)
	out := make([]byte, 0, 4+len(manifest)+sumLens(payloads))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(manifest)))
	out = append(out, manifest...)
	for _, p := range payloads {
		out = append(out, p...)
	}
	return out, nil
}

func sumLens(payloads [][]byte) int {
	n := 0
	for _, p := range payloads {
		n += len(p)
	}
	return n
}

// DecodeInline reverses EncodeInline into a Frame holding the requested
// columns (all of sc when columns is nil).
func DecodeInline(sc *schema.Schema, data []byte, columns []string) (*frame.Frame, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("segment: inline blob too short")
	}
	manifestLen := binary.LittleEndian.Uint32(data[:4])
	off := 4
	if off+int(manifestLen) > len(data) {
		return nil, fmt.Errorf("segment: inline manifest truncated")
	}
	entries, err := decodeManifest(data[off : off+int(manifestLen)])
	if err != nil {
		return nil, fmt.Errorf("segment: decode inline manifest: %w", err)
	}
	off += int(manifestLen)

	order := sc.StorageOrder()
	if len(entries) != len(order) {
		return nil, fmt.Errorf("segment: inline manifest has %d columns, schema has %d", len(entries), len(order))
	}
	offsets := make(map[string][2]int, len(order)) // name -> [start, end)
	for i, name := range order {
		start := off
		end := start + int(entries[i].length)
		offsets[name] = [2]int{start, end}
		off = end
	}
	if off > len(data) {
		return nil, fmt.Errorf("segment: inline payload truncated")
	}

	want := columns
	if want == nil {
		want = sc.Names()
	}
	byName := make(map[string]columnEntry, len(entries))
	for i, name := range order {
		byName[name] = entries[i]
	}
	cols := make(map[string]frame.Column, len(want))
	for _, name := range want {
		sch, ok := sc.Column(name)
		if !ok {
			return nil, fmt.Errorf("segment: unknown column %s", name)
		}
		e := byName[name]
		rng := offsets[name]
		c, err := codec.Decode(data[rng[0]:rng[1]], sch.Type, int(e.rowCount), sch.Codec)
		if err != nil {
			return nil, fmt.Errorf("segment: decode inline column %s: %w", name, err)
		}
		cols[name] = c
	}
	// Inline payloads are encoded from sorted, deduplicated frames; building
	// the Frame directly keeps a column subset valid.
	return &frame.Frame{Schema: sc, Cols: cols}, nil
}
