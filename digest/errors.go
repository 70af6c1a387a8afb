package digest

import "errors"

// ErrBadLength is returned by Parse when the decoded byte slice does not
// match Size.
var ErrBadLength = errors.New("digest: wrong byte length")
