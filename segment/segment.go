// Package segment implements content-addressed columnar chunks: one blob
// per column plus a manifest blob listing each column's length, row count,
// and digest (spec.md §4.3, wire format per spec.md §6).
package segment

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/lakota-db/lakota/codec"
	"github.com/lakota-db/lakota/digest"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/lkerr"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
)

// manifestVersion is the wire version of the segment manifest format.
const manifestVersion = 1

// columnEntry mirrors one manifest row. Column identity is positional: the
// Nth entry corresponds to the Nth column of schema.StorageOrder(), exactly
// as spec.md §6 describes the manifest ("per column: length, row_count,
// digest" with no embedded name).
type columnEntry struct {
	length   uint32
	rowCount uint64
	digest   digest.Digest
}

// Write encodes every column of f (in schema storage order), stores each
// column blob content-addressed under pod, then stores and returns the
// digest of the manifest blob referencing them. An empty frame still
// produces a valid, empty manifest.
func Write(ctx context.Context, p pod.Pod, sc *schema.Schema, f *frame.Frame) (digest.Digest, error) {
	order := sc.StorageOrder()
	entries := make([]columnEntry, 0, len(order))
	for _, name := range order {
		col, _ := sc.Column(name)
		c, ok := f.Cols[name]
		if !ok {
			return digest.Digest{}, fmt.Errorf("%w: segment missing column %s", lkerr.ErrSchemaMismatch, name)
		}
		payload, err := codec.Encode(c, col.Codec)
		if err != nil {
			return digest.Digest{}, fmt.Errorf("segment: encode column %s: %w", name, err)
		}
		d := digest.Sum(payload)
		if len(payload) > 0 {
			if err := putBlob(ctx, p, d, payload); err != nil {
				return digest.Digest{}, fmt.Errorf("segment: store column %s: %w", name, err)
			}
		}
		entries = append(entries, columnEntry{
			length:   uint32(len(payload)),
			rowCount: uint64(c.Len()),
			digest:   d,
		})
	}
	manifest := encodeManifest(entries)
	d := digest.Sum(manifest)
	if err := putBlob(ctx, p, d, manifest); err != nil {
		return digest.Digest{}, fmt.Errorf("segment: store manifest: %w", err)
	}
	return d, nil
}

// Read reads the manifest at d and decodes the requested columns (all
// columns of sc when columns is nil) into a Frame. rowLo/rowHi optionally
// restrict which rows are materialised after decode; pass -1 for both to
// take the whole segment.
func Read(ctx context.Context, p pod.Pod, sc *schema.Schema, d digest.Digest, columns []string, rowLo, rowHi int) (*frame.Frame, error) {
	manifest, err := getBlob(ctx, p, d)
	if err != nil {
		return nil, fmt.Errorf("segment: read manifest: %w", err)
	}
	entries, err := decodeManifest(manifest)
	if err != nil {
		return nil, fmt.Errorf("segment: decode manifest: %w", err)
	}
	order := sc.StorageOrder()
	if len(entries) != len(order) {
		return nil, fmt.Errorf("%w: manifest has %d columns, schema has %d", lkerr.ErrSchemaMismatch, len(entries), len(order))
	}
	byName := make(map[string]columnEntry, len(entries))
	for i, name := range order {
		byName[name] = entries[i]
	}

	want := columns
	if want == nil {
		want = sc.Names()
	}
	cols := make(map[string]frame.Column, len(want))
	for _, name := range want {
		sch, ok := sc.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %s", lkerr.ErrSchemaMismatch, name)
		}
		e, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: segment missing column %s", lkerr.ErrDataMissing, name)
		}
		var payload []byte
		if e.length > 0 {
			payload, err = getBlob(ctx, p, e.digest)
			if err != nil {
				return nil, fmt.Errorf("segment: read column %s: %w", name, err)
			}
		}
		c, err := codec.Decode(payload, sch.Type, int(e.rowCount), sch.Codec)
		if err != nil {
			return nil, fmt.Errorf("segment: decode column %s: %w", name, err)
		}
		cols[name] = c
	}

	// Segments are written from already sorted, deduplicated frames, so the
	// decoded columns are used as they are; frame.New would reject a frame
	// holding only a subset of sc's columns.
	f := &frame.Frame{Schema: sc, Cols: cols}
	if rowLo < 0 && rowHi < 0 {
		return f, nil
	}
	lo, hi := rowLo, rowHi
	if lo < 0 {
		lo = 0
	}
	if hi < 0 || hi > f.Len() {
		hi = f.Len()
	}
	sliced := f.Slice(lo, hi)
	return sliced, nil
}

// ReachableKeys returns the Pod keys of the manifest at d and every column
// blob it references, for use by gc's reachability walk (spec.md §4.6.5).
// Zero-length columns (an all-empty column never writes a blob) are skipped.
func ReachableKeys(ctx context.Context, p pod.Pod, d digest.Digest) ([]string, error) {
	manifest, err := getBlob(ctx, p, d)
	if err != nil {
		return nil, fmt.Errorf("segment: read manifest: %w", err)
	}
	entries, err := decodeManifest(manifest)
	if err != nil {
		return nil, fmt.Errorf("segment: decode manifest: %w", err)
	}
	keys := make([]string, 0, len(entries)+1)
	keys = append(keys, d.Key())
	for _, e := range entries {
		if e.length > 0 {
			keys = append(keys, e.digest.Key())
		}
	}
	return keys, nil
}

func putBlob(ctx context.Context, p pod.Pod, d digest.Digest, data []byte) error {
	key := d.Key()
	// Content-addressed blobs never change once written; skip the write
	// when the digest is already present to save an I/O round trip.
	if _, err := p.Get(ctx, key); err == nil {
		return nil
	}
	return p.Put(ctx, key, data)
}

func getBlob(ctx context.Context, p pod.Pod, d digest.Digest) ([]byte, error) {
	key := d.Key()
	data, err := pod.GetTolerant(ctx, p, key)
	if err != nil {
		return nil, lkerr.NewMissingDigest(d, key)
	}
	return data, nil
}

const columnEntrySize = 4 + 8 + digest.Size

func encodeManifest(entries []columnEntry) []byte {
	buf := make([]byte, 0, 3+len(entries)*columnEntrySize)
	buf = append(buf, manifestVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(entries)))
	for _, e := range entries {
		buf = binary.LittleEndian.AppendUint32(buf, e.length)
		buf = binary.LittleEndian.AppendUint64(buf, e.rowCount)
		buf = append(buf, e.digest[:]...)
	}
	return buf
}

func decodeManifest(data []byte) ([]columnEntry, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("segment: manifest too short")
	}
	version := data[0]
	if version != manifestVersion {
		return nil, fmt.Errorf("segment: unsupported manifest version %d", version)
	}
	count := int(binary.LittleEndian.Uint16(data[1:3]))
	off := 3
	if off+count*columnEntrySize > len(data) {
		return nil, fmt.Errorf("segment: manifest truncated")
	}
	entries := make([]columnEntry, 0, count)
	for i := 0; i < count; i++ {
		length := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		rowCount := binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
		var d digest.Digest
		copy(d[:], data[off:off+digest.Size])
		off += digest.Size
		entries = append(entries, columnEntry{length: length, rowCount: rowCount, digest: d})
	}
	return entries, nil
}
