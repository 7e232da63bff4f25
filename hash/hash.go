package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	mapset "github.com/deckarep/golang-set"
	"golang.org/x/crypto/blake2b"
)

// Func computes the digest of a byte slice. Output length is up to the
// function; sentinels and suffix checks adapt to it.
type Func func([]byte) Digest

// Digest is the output of a Func. The hex encoding is the canonical
// string form used for links and at-rest keys.
type Digest []byte

// SHA256 is the default digest function
func SHA256(b []byte) Digest {
	s := sha256.Sum256(b)
	return s[:]
}

// Blake2b is an alternative digest function
func Blake2b(b []byte) Digest {
	s := blake2b.Sum256(b)
	return s[:]
}

func (d Digest) String() string {
	return hex.EncodeToString(d)
}

// Sealed reports whether the hex form of d ends in "0000", the fixed
// proof-of-work difficulty.
func (d Digest) Sealed() bool {
	if len(d) < 2 {
		return false
	}
	return d[len(d)-2] == 0 && d[len(d)-1] == 0
}

// Equal compares two digests by value
func (d Digest) Equal(o Digest) bool {
	return bytes.Equal(d, o)
}

// IsSentinel reports whether d is an all-zero genesis marker
func (d Digest) IsSentinel() bool {
	if len(d) == 0 {
		return false
	}
	for _, b := range d {
		if b != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of d
func (d Digest) Clone() Digest {
	c := make(Digest, len(d))
	copy(c, d)
	return c
}

// Sentinel returns the all-zero genesis marker sized for f
func Sentinel(f Func) Digest {
	return make(Digest, len(f(nil)))
}

// FromHex turns a hex string back into a digest
func FromHex(s string) (Digest, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return Digest(b), nil
}

// Diff returns the difference between the local and remote digest sets
func Diff(l, r []Digest) ([]Digest, []Digest) {
	byHex := map[string]Digest{}
	loc := mapset.NewSet()
	for _, h := range l {
		loc.Add(h.String())
		byHex[h.String()] = h
	}
	rem := mapset.NewSet()
	for _, h := range r {
		rem.Add(h.String())
		byHex[h.String()] = h
	}
	delm := loc.Difference(rem)
	addm := rem.Difference(loc)
	a, d := []Digest{}, []Digest{}
	for _, h := range delm.ToSlice() {
		d = append(d, byHex[h.(string)])
	}
	for _, h := range addm.ToSlice() {
		a = append(a, byHex[h.(string)])
	}
	return a, d
}
