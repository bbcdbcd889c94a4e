// Package contentaddr implements the content-addressed naming scheme
// used for property files and topology blobs: one file per column,
// named "<name>.<digest>", using github.com/cespare/xxhash/v2 for the
// digest. Collision resistance within a single graph directory is all
// these names need, not a cryptographic guarantee.
package contentaddr

import (
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Digest identifies a blob's content. It is computed over the bytes
// given to NewFileName and becomes the suffix of the blob-store key it
// returns.
type Digest uint64

// Sum computes the digest of b.
func Sum(b []byte) Digest {
	return Digest(xxhash.Sum64(b))
}

// String renders the digest as lowercase hex, used as the randomized
// suffix of a content-addressed file name.
func (d Digest) String() string {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(d >> (8 * i))
	}
	return hex.EncodeToString(buf[:])
}

// NewFileName builds a content-addressed file name of the form
// "<name>.<digest>", using a content digest instead of a random suffix
// so repeated writes of identical content reuse the same name.
func NewFileName(name string, content []byte) string {
	return fmt.Sprintf("%s.%s", name, Sum(content))
}
