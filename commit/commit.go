// Package commit implements the immutable record of one successful write:
// an index-tuple range, the segment (or embedded miniature segment) holding
// its rows, and range-intersection logic used by the Series read/merge
// paths (spec.md §4.4).
package commit

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/lakota-db/lakota/digest"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
	"github.com/lakota-db/lakota/segment"
)

// EmbedThreshold is the row count at or below which Build embeds the frame
// directly in the commit body instead of writing a separate segment,
// matching the original implementation's small-write optimisation
// (settings.embed_max_size, expressed here in rows rather than bytes).
const EmbedThreshold = 1024

const wireVersion = 1

const (
	flagEmbedded byte = 1 << 0
)

// Commit is one immutable write record.
type Commit struct {
	Start     frame.Index
	Stop      frame.Index
	Length    int
	Segment   digest.Digest // valid iff Embedded == nil
	Embedded  []byte        // valid iff non-nil; a segment.EncodeInline blob
	Author    string
	Timestamp int64 // microseconds since epoch, metadata only
}

// Build materialises f as a commit: either a standalone segment (written to
// p) or, when f has at most EmbedThreshold rows, an embedded miniature
// segment carried inline in the commit body.
func Build(ctx context.Context, p pod.Pod, sc *schema.Schema, f *frame.Frame, author string, timestamp int64) (*Commit, error) {
	if f.Empty() {
		return nil, fmt.Errorf("commit: cannot build from an empty frame")
	}
	c := &Commit{
		Start:     f.Start(),
		Stop:      f.Stop(),
		Length:    f.Len(),
		Author:    author,
		Timestamp: timestamp,
	}
	if f.Len() <= EmbedThreshold {
		blob, err := segment.EncodeInline(sc, f)
		if err != nil {
			return nil, fmt.Errorf("commit: embed frame: %w", err)
		}
		c.Embedded = blob
		return c, nil
	}
	d, err := segment.Write(ctx, p, sc, f)
	if err != nil {
		return nil, fmt.Errorf("commit: write segment: %w", err)
	}
	c.Segment = d
	return c, nil
}

// Frame materialises the rows described by c, decoding the requested
// columns (all columns of sc when columns is nil) from wherever they live
// (embedded body or a Pod-resident segment).
func (c *Commit) Frame(ctx context.Context, p pod.Pod, sc *schema.Schema, columns []string) (*frame.Frame, error) {
	if c.Embedded != nil {
		return segment.DecodeInline(sc, c.Embedded, columns)
	}
	return segment.Read(ctx, p, sc, c.Segment, columns, -1, -1)
}

// Slice loads the columns needed for the query range and returns the
// sub-frame whose index tuples fall within [start, stop].
func (c *Commit) Slice(ctx context.Context, p pod.Pod, sc *schema.Schema, columns []string, start, stop frame.Index) (*frame.Frame, error) {
	f, err := c.Frame(ctx, p, sc, columns)
	if err != nil {
		return nil, err
	}
	lo := f.SearchIndex(start)
	hi := f.SearchIndexRight(stop)
	return f.Slice(lo, hi), nil
}

// Encode serialises c to its wire form (spec.md §6): version, column
// serialised start/stop keys, row count, an embedded flag, and either the
// segment digest or the embedded payload.
func Encode(c *Commit, sc *schema.Schema) []byte {
	types := indexTypes(sc)
	startKey := encodeIndex(c.Start, types)
	stopKey := encodeIndex(c.Stop, types)

	var buf []byte
	buf = append(buf, wireVersion)
	buf = appendBytes(buf, startKey)
	buf = appendBytes(buf, stopKey)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(c.Length))
	var flags byte
	if c.Embedded != nil {
		flags |= flagEmbedded
	}
	buf = append(buf, flags)
	if c.Embedded != nil {
		buf = appendBytes(buf, c.Embedded)
	} else {
		buf = append(buf, c.Segment[:]...)
	}
	buf = appendBytes(buf, []byte(c.Author))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(c.Timestamp))
	return buf
}

// Decode reverses Encode.
func Decode(data []byte, sc *schema.Schema) (*Commit, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("commit: buffer too short")
	}
	version := data[0]
	if version != wireVersion {
		return nil, fmt.Errorf("commit: unsupported wire version %d", version)
	}
	off := 1
	types := indexTypes(sc)

	startKey, n, err := readBytes(data[off:])
	if err != nil {
		return nil, fmt.Errorf("commit: read start key: %w", err)
	}
	off += n
	start, _, err := decodeIndex(startKey, types)
	if err != nil {
		return nil, err
	}

	stopKey, n, err := readBytes(data[off:])
	if err != nil {
		return nil, fmt.Errorf("commit: read stop key: %w", err)
	}
	off += n
	stop, _, err := decodeIndex(stopKey, types)
	if err != nil {
		return nil, err
	}

	if off+8+1 > len(data) {
		return nil, errShortIndex
	}
	length := binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	flags := data[off]
	off += 1

	c := &Commit{Start: start, Stop: stop, Length: int(length)}
	if flags&flagEmbedded != 0 {
		embedded, n, err := readBytes(data[off:])
		if err != nil {
			return nil, fmt.Errorf("commit: read embedded body: %w", err)
		}
		off += n
		c.Embedded = embedded
	} else {
		if off+digest.Size > len(data) {
			return nil, errShortIndex
		}
		copy(c.Segment[:], data[off:off+digest.Size])
		off += digest.Size
	}

	author, n, err := readBytes(data[off:])
	if err != nil {
		return nil, fmt.Errorf("commit: read author: %w", err)
	}
	off += n
	c.Author = string(author)

	if off+8 > len(data) {
		return nil, errShortIndex
	}
	c.Timestamp = int64(binary.LittleEndian.Uint64(data[off : off+8]))

	return c, nil
}

func indexTypes(sc *schema.Schema) []schema.Type {
	idx := sc.Index()
	types := make([]schema.Type, len(idx))
	for i, c := range idx {
		types[i] = c.Type
	}
	return types
}
