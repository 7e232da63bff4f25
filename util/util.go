package util

import (
	"github.com/martinlindhe/bubblebabble"

	"github.com/hashlink/core/hash"
)

// EncodeBubbleBabble encodes a digest into a human readable format
func EncodeBubbleBabble(d hash.Digest) string {
	dst := make([]byte, bubblebabble.EncodedLen(len(d)))
	bubblebabble.Encode(dst, d)
	return string(dst)
}

// DecodeBubbleBabble decodes a digest from a human readable format
func DecodeBubbleBabble(s string, size int) (hash.Digest, error) {
	dst := make(hash.Digest, size)
	_, err := bubblebabble.Decode(dst, []byte(s))
	return dst, err
}
