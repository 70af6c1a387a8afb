// Package digest implements the content-addressing primitives shared by
// every layer of lakota: a fixed-width cryptographic digest, its hex
// rendering, and the two-level directory fan-out used to turn a digest into
// a Pod key.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
)

// Size is the width, in bytes, of a Digest.
const Size = sha1.Size

// Digest is a content hash. Equal content always produces an equal Digest.
type Digest [Size]byte

// Zero is the sentinel digest used as the parent of a root revision.
var Zero Digest

// Sum hashes the concatenation of data and returns its Digest.
func Sum(data ...[]byte) Digest {
	h := sha1.New()
	for _, d := range data {
		h.Write(d)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// String renders the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero sentinel.
func (d Digest) IsZero() bool {
	return d == Zero
}

// Parse decodes a hex string into a Digest.
func Parse(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(b) != Size {
		return d, ErrBadLength
	}
	copy(d[:], b)
	return d, nil
}

// HashedPath splits a hex digest string into a two-level directory prefix
// plus the remaining suffix: "aabbccdd..." -> ("aa/bb", "ccdd...").
// It gives bounded fan-out on filesystem and S3-style backends.
func HashedPath(hexDigest string) (folder, filename string) {
	if len(hexDigest) <= 4 {
		return "", hexDigest
	}
	return hexDigest[0:2] + "/" + hexDigest[2:4], hexDigest[4:]
}

// Key returns the Pod key ("aa/bb/rest") for d.
func (d Digest) Key() string {
	folder, filename := HashedPath(d.String())
	if folder == "" {
		return filename
	}
	return folder + "/" + filename
}
