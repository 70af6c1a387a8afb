// Package schema describes the column layout of a lakota series: the
// ordered set of typed columns and which of them form the sort/index key.
// It has no casting helpers: frame.New rejects a column whose type differs
// from the schema.
//
// Schema string-parsing (the small DSL used by the CLI, e.g.
// "timestamp:tss:index,value:float64") is an external collaborator per
// spec.md §1 and is not implemented here; callers build a Schema
// programmatically with New.
package schema

import (
	"fmt"

	"github.com/lakota-db/lakota/lkerr"
)

// Type is the logical type of a column.
type Type uint8

const (
	Int64 Type = iota
	Float64
	Bool
	TimestampNS
	TimestampUS
	TimestampMS
	TimestampS
	Date
	String
	Bytes
)

func (t Type) String() string {
	switch t {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case TimestampNS:
		return "timestamp[ns]"
	case TimestampUS:
		return "timestamp[us]"
	case TimestampMS:
		return "timestamp[ms]"
	case TimestampS:
		return "timestamp[s]"
	case Date:
		return "date"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Comparable reports whether values of t can be ordered with <, which every
// index column must support.
func (t Type) Comparable() bool {
	return t != Bytes
}

// Column describes one column of a Schema.
type Column struct {
	Name  string
	Type  Type
	Index bool
	// Codec optionally names the compression codec to use for this column
	// (see package codec). Empty selects the type's default codec.
	Codec string
}

// Schema is the ordered, validated set of columns of a series.
type Schema struct {
	columns []Column
	byName  map[string]int
	idxPos  []int // positions (into columns) of the index columns, in order
}

// New validates cols and returns a Schema. At least one index column is
// required and column names must be unique.
func New(cols ...Column) (*Schema, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("schema: at least one column is required")
	}
	byName := make(map[string]int, len(cols))
	var idxPos []int
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("schema: column %d has an empty name", i)
		}
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate column name %q", c.Name)
		}
		byName[c.Name] = i
		if c.Index {
			if !c.Type.Comparable() {
				return nil, fmt.Errorf("schema: index column %q has non-comparable type %s", c.Name, c.Type)
			}
			idxPos = append(idxPos, i)
		}
	}
	if len(idxPos) == 0 {
		return nil, fmt.Errorf("schema: at least one index column is required")
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return &Schema{columns: out, byName: byName, idxPos: idxPos}, nil
}

// Columns returns the schema's columns in declaration order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the column names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the index columns, in index order (the sort key).
func (s *Schema) Index() []Column {
	out := make([]Column, len(s.idxPos))
	for i, p := range s.idxPos {
		out[i] = s.columns[p]
	}
	return out
}

// IndexNames returns the names of the index columns, in index order.
func (s *Schema) IndexNames() []string {
	out := make([]string, len(s.idxPos))
	for i, p := range s.idxPos {
		out[i] = s.columns[p].Name
	}
	return out
}

// StorageOrder returns column names in the order they are physically stored
// in a Segment: index columns first (in index order), then the remaining
// columns in declaration order, per spec.md §3.
func (s *Schema) StorageOrder() []string {
	seen := make(map[string]bool, len(s.columns))
	out := make([]string, 0, len(s.columns))
	for _, p := range s.idxPos {
		out = append(out, s.columns[p].Name)
		seen[s.columns[p].Name] = true
	}
	for _, c := range s.columns {
		if !seen[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column looks up a column by name.
func (s *Schema) Column(name string) (Column, bool) {
	p, ok := s.byName[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[p], true
}

// Has reports whether name is a column of s.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Equal reports whether s and other declare the same columns, in the same
// order, with the same types and index flags.
func (s *Schema) Equal(other *Schema) bool {
	if other == nil || len(s.columns) != len(other.columns) {
		return false
	}
	for i, c := range s.columns {
		o := other.columns[i]
		if c.Name != o.Name || c.Type != o.Type || c.Index != o.Index {
			return false
		}
	}
	return true
}

// Validate checks that a set of column names+lengths matches the schema
// exactly (same names, same length for every column), returning
// lkerr.ErrSchemaMismatch wrapped with detail on failure.
func (s *Schema) Validate(colLens map[string]int) error {
	if len(colLens) != len(s.columns) {
		return fmt.Errorf("%w: expected %d columns, got %d", lkerr.ErrSchemaMismatch, len(s.columns), len(colLens))
	}
	var n int
	first := true
	for _, c := range s.columns {
		l, ok := colLens[c.Name]
		if !ok {
			return fmt.Errorf("%w: missing column %q", lkerr.ErrSchemaMismatch, c.Name)
		}
		if first {
			n = l
			first = false
		} else if l != n {
			return fmt.Errorf("%w: column %q has length %d, expected %d", lkerr.ErrSchemaMismatch, c.Name, l, n)
		}
	}
	return nil
}
