package changelog

import (
	"sync"
	"time"
)

// clock serialises epoch generation so two Append calls issued back to back
// within the same process never produce the same microsecond reading, even
// on platforms where time.Now()'s resolution is coarser than a
// microsecond.
var clock = struct {
	mu   sync.Mutex
	last uint64
}{}

// NextEpoch returns a microsecond epoch guaranteed to be strictly greater
// than the value returned by the previous call within this process.
// Divergence across processes is expected and handled by Heads/merge, not
// prevented here (spec.md §4.5's "clock skew... documented as a
// limitation").
func NextEpoch() uint64 {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	now := uint64(time.Now().UnixMicro())
	if now <= clock.last {
		now = clock.last + 1
	}
	clock.last = now
	return now
}
