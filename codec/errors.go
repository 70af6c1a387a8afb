package codec

import "errors"

// errShortBuffer is returned when a decode encounters truncated or corrupt
// input.
var errShortBuffer = errors.New("codec: short or corrupt buffer")
