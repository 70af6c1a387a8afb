package schema

import "encoding/json"

// wireColumn is the JSON-serialisable shape of a Column, grounded on the
// teacher's own metadata encoding style (encoding/json for small,
// infrequently-written descriptors; see e.g. apiServer/meta.go).
type wireColumn struct {
	Name  string `json:"name"`
	Type  Type   `json:"type"`
	Index bool   `json:"index,omitempty"`
	Codec string `json:"codec,omitempty"`
}

// Encode serialises s to a self-describing byte form, used to persist a
// series' schema alongside its registry row so it can be reopened without
// external knowledge of its column layout.
func Encode(s *Schema) ([]byte, error) {
	cols := make([]wireColumn, len(s.columns))
	for i, c := range s.columns {
		cols[i] = wireColumn{Name: c.Name, Type: c.Type, Index: c.Index, Codec: c.Codec}
	}
	return json.Marshal(cols)
}

// Decode reverses Encode.
func Decode(data []byte) (*Schema, error) {
	var wire []wireColumn
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	cols := make([]Column, len(wire))
	for i, w := range wire {
		cols[i] = Column{Name: w.Name, Type: w.Type, Index: w.Index, Codec: w.Codec}
	}
	return New(cols...)
}
