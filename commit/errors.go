package commit

import "errors"

// errShortIndex is returned when decoding an index tuple runs past the end
// of the supplied buffer.
var errShortIndex = errors.New("commit: short or corrupt index buffer")
