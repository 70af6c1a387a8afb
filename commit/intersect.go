package commit

import "github.com/lakota-db/lakota/frame"

// Overlap classifies how a commit's [Start, Stop] range relates to a query
// range (spec.md §4.4).
type Overlap uint8

const (
	// Disjoint: the commit and the query range share no index tuples.
	Disjoint Overlap = iota
	// Equal: the commit's range is exactly the query range.
	Equal
	// Contains: the commit's range fully covers the query range.
	Contains
	// Contained: the query range fully covers the commit's range.
	Contained
	// OverlapLeft: the commit starts before the query range and ends
	// inside it.
	OverlapLeft
	// OverlapRight: the commit starts inside the query range and ends
	// after it.
	OverlapRight
)

func (o Overlap) String() string {
	switch o {
	case Disjoint:
		return "DISJOINT"
	case Equal:
		return "EQUAL"
	case Contains:
		return "CONTAINS"
	case Contained:
		return "CONTAINED"
	case OverlapLeft:
		return "OVERLAP_LEFT"
	case OverlapRight:
		return "OVERLAP_RIGHT"
	default:
		return "UNKNOWN"
	}
}

// Intersect classifies c's range against the closed query range
// [start, stop].
func (c *Commit) Intersect(start, stop frame.Index) Overlap {
	cs, ce := c.Start, c.Stop
	switch {
	case ce.Less(start) || stop.Less(cs):
		return Disjoint
	case !cs.Less(start) && !start.Less(cs) && !ce.Less(stop) && !stop.Less(ce):
		return Equal
	case !cs.Less(start) && !stop.Less(ce):
		return Contained
	case !start.Less(cs) && !ce.Less(stop):
		return Contains
	case cs.Less(start):
		return OverlapLeft
	default:
		return OverlapRight
	}
}
