// Package frame implements the in-memory columnar batch used throughout
// lakota: an immutable, schema-conformant, sorted-and-deduplicated tuple of
// equal-length arrays (spec.md §3 "Frame").
//
// Array-library bindings (numpy/arrow/dataframe interop) are an external
// collaborator per spec.md §1; Frame exposes plain Go slices via Column.
package frame

import (
	"fmt"
	"sort"

	"github.com/lakota-db/lakota/schema"
)

// Frame is a columnar batch: one Column per schema.Column, all the same
// length, sorted lexicographically by the schema's index columns with no
// duplicate index tuples.
type Frame struct {
	Schema *schema.Schema
	Cols   map[string]Column
}

// New builds a Frame from raw columns, validating them against schema, then
// sorts and deduplicates on the index columns (keeping the last occurrence
// of each duplicate index tuple), matching Series.Write step 1.
func New(sc *schema.Schema, cols map[string]Column) (*Frame, error) {
	lens := make(map[string]int, len(cols))
	for name, c := range cols {
		if !sc.Has(name) {
			return nil, fmt.Errorf("frame: unknown column %q", name)
		}
		lens[name] = c.Len()
	}
	if err := sc.Validate(lens); err != nil {
		return nil, err
	}
	for _, c := range sc.Columns() {
		got := cols[c.Name]
		if got.Type != c.Type {
			return nil, fmt.Errorf("frame: column %q has type %s, schema wants %s", c.Name, got.Type, c.Type)
		}
	}
	f := &Frame{Schema: sc, Cols: cols}
	f.sortAndDedup()
	return f, nil
}

// Empty reports whether the frame has zero rows.
func (f *Frame) Empty() bool {
	return f.Len() == 0
}

// Len returns the row count.
func (f *Frame) Len() int {
	for _, c := range f.Cols {
		return c.Len()
	}
	return 0
}

func (f *Frame) idxCols() []Column {
	names := f.Schema.IndexNames()
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = f.Cols[n]
	}
	return out
}

// less reports whether row i sorts before row j, comparing index columns
// left to right.
func (f *Frame) less(idx []Column, i, j int) bool {
	for _, c := range idx {
		switch c.Compare(i, c, j) {
		case -1:
			return true
		case 1:
			return false
		}
	}
	return false
}

func (f *Frame) equalIdx(idx []Column, i, j int) bool {
	for _, c := range idx {
		if !c.Equal(i, c, j) {
			return false
		}
	}
	return true
}

// sortAndDedup sorts rows on the index columns and removes duplicate index
// tuples, keeping the last occurrence, matching Series.Write step 1.
func (f *Frame) sortAndDedup() {
	n := f.Len()
	if n == 0 {
		return
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	idx := f.idxCols()
	sort.SliceStable(perm, func(a, b int) bool {
		return f.less(idx, perm[a], perm[b])
	})

	// Dedup: keep the last of each run of equal index tuples.
	keep := make([]int, 0, n)
	for i := 0; i < len(perm); i++ {
		if i+1 < len(perm) && f.equalIdxAt(idx, perm[i], perm[i+1]) {
			continue // a later duplicate exists; skip this one
		}
		keep = append(keep, perm[i])
	}

	f.Cols = gather(f.Cols, keep)
}

func (f *Frame) equalIdxAt(idx []Column, i, j int) bool {
	for _, c := range idx {
		if !c.Equal(i, c, j) {
			return false
		}
	}
	return true
}

func gather(cols map[string]Column, positions []int) map[string]Column {
	out := make(map[string]Column, len(cols))
	for name, c := range cols {
		out[name] = gatherColumn(c, positions)
	}
	return out
}

func gatherColumn(c Column, positions []int) Column {
	out := Column{Type: c.Type}
	switch c.Type {
	case schema.Float64:
		vs := make([]float64, len(positions))
		for i, p := range positions {
			vs[i] = c.Float64[p]
		}
		out.Float64 = vs
	case schema.Bool:
		vs := make([]bool, len(positions))
		for i, p := range positions {
			vs[i] = c.Bool[p]
		}
		out.Bool = vs
	case schema.String:
		vs := make([]string, len(positions))
		for i, p := range positions {
			vs[i] = c.Str[p]
		}
		out.Str = vs
	case schema.Bytes:
		vs := make([][]byte, len(positions))
		for i, p := range positions {
			vs[i] = c.Bin[p]
		}
		out.Bin = vs
	default:
		vs := make([]int64, len(positions))
		for i, p := range positions {
			vs[i] = c.Int64[p]
		}
		out.Int64 = vs
	}
	return out
}

// Slice returns the sub-frame of rows [i:j).
func (f *Frame) Slice(i, j int) *Frame {
	cols := make(map[string]Column, len(f.Cols))
	for name, c := range f.Cols {
		cols[name] = c.Slice(i, j)
	}
	return &Frame{Schema: f.Schema, Cols: cols}
}

// IndexAt returns the index tuple (as an Index) of row i.
func (f *Frame) IndexAt(i int) Index {
	idx := f.idxCols()
	vals := make([]Value, len(idx))
	for k, c := range idx {
		vals[k] = valueAt(c, i)
	}
	return Index{Values: vals}
}

// Start returns the index tuple of the first row.
func (f *Frame) Start() Index {
	if f.Empty() {
		return Index{}
	}
	return f.IndexAt(0)
}

// Stop returns the index tuple of the last row.
func (f *Frame) Stop() Index {
	if f.Empty() {
		return Index{}
	}
	return f.IndexAt(f.Len() - 1)
}

// SearchIndex returns the position of the first row whose index tuple is >=
// idx (bisect-left), using binary search over the (already sorted) index
// columns.
func (f *Frame) SearchIndex(idx Index) int {
	idxCols := f.idxCols()
	n := f.Len()
	return sort.Search(n, func(i int) bool {
		return compareRowToIndex(idxCols, i, idx) >= 0
	})
}

// SearchIndexRight returns the position just past the last row whose index
// tuple is <= idx (bisect-right).
func (f *Frame) SearchIndexRight(idx Index) int {
	idxCols := f.idxCols()
	n := f.Len()
	return sort.Search(n, func(i int) bool {
		return compareRowToIndex(idxCols, i, idx) > 0
	})
}

func compareRowToIndex(idxCols []Column, row int, idx Index) int {
	for k, c := range idxCols {
		if k >= len(idx.Values) {
			return 0
		}
		cmp := compareColValue(c, row, idx.Values[k])
		if cmp != 0 {
			return cmp
		}
	}
	return 0
}

// Concat concatenates frames in order, assuming (but not re-checking) that
// each frame's rows sort after the previous frame's rows.
func Concat(sc *schema.Schema, frames ...*Frame) *Frame {
	nonEmpty := make([]*Frame, 0, len(frames))
	for _, fr := range frames {
		if fr != nil && !fr.Empty() {
			nonEmpty = append(nonEmpty, fr)
		}
	}
	if len(nonEmpty) == 0 {
		return &Frame{Schema: sc, Cols: emptyColumns(sc)}
	}
	cols := make(map[string]Column, len(sc.Columns()))
	for _, c := range sc.Columns() {
		cols[c.Name] = concatColumn(c.Type, nonEmpty, c.Name)
	}
	return &Frame{Schema: sc, Cols: cols}
}

func emptyColumns(sc *schema.Schema) map[string]Column {
	cols := make(map[string]Column, len(sc.Columns()))
	for _, c := range sc.Columns() {
		cols[c.Name] = Column{Type: c.Type}
	}
	return cols
}

func concatColumn(t schema.Type, frames []*Frame, name string) Column {
	out := Column{Type: t}
	switch t {
	case schema.Float64:
		var vs []float64
		for _, f := range frames {
			vs = append(vs, f.Cols[name].Float64...)
		}
		out.Float64 = vs
	case schema.Bool:
		var vs []bool
		for _, f := range frames {
			vs = append(vs, f.Cols[name].Bool...)
		}
		out.Bool = vs
	case schema.String:
		var vs []string
		for _, f := range frames {
			vs = append(vs, f.Cols[name].Str...)
		}
		out.Str = vs
	case schema.Bytes:
		var vs [][]byte
		for _, f := range frames {
			vs = append(vs, f.Cols[name].Bin...)
		}
		out.Bin = vs
	default:
		var vs []int64
		for _, f := range frames {
			vs = append(vs, f.Cols[name].Int64...)
		}
		out.Int64 = vs
	}
	return out
}
