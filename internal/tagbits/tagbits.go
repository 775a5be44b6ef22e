// Package tagbits maps open sets of string tags onto a 64-bit mask.
//
// Each tag sets exactly one bit, chosen by a fixed-seed xxhash of its NFC
// form reduced mod 64. The mapping is identical across runs, processes and
// platforms; never substitute a randomized hash (hash/maphash, map order).
//
// A mask is a lossy summary of a tag set:
//   - No false negatives: if two tag sets intersect, their masks intersect
//   - False positives: distinct tags can share a bit, so a positive match
//     is only a prefilter and must be confirmed with an exact set check
//
// Collisions become likely once a set covers more than about 8 of the 64 bits.
package tagbits

import (
	"encoding/binary"
	"math/bits"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Seed is mixed into every tag hash. Changing it changes every mask and
// therefore every persisted digest that depends on bit assignment.
const Seed uint64 = 0x5354_4f52_594c_4554 // "STORYLET"

// Bitset is a 64-bit tag mask.
type Bitset uint64

// Bit returns the single-bit mask for a tag.
// Tags are trimmed and NFC normalized, so "Rival" and "Rival " share a bit
// and composed/decomposed spellings agree.
func Bit(tag string) Bitset {
	return Bitset(1) << (Hash(Normalize(tag)) % 64)
}

// Hash is the fixed-seed 64-bit hash of an already normalized string.
func Hash(s string) uint64 {
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], Seed)

	d := xxhash.New()
	_, _ = d.Write(seed[:])
	_, _ = d.WriteString(s)
	return d.Sum64()
}

// Normalize is the canonical form used for both hashing and exact comparison.
func Normalize(tag string) string {
	return norm.NFC.String(strings.TrimSpace(tag))
}

// FromTags builds a mask from a tag list. Order and duplicates do not
// matter; an empty list yields the zero mask. Blank tags are ignored.
func FromTags(tags []string) Bitset {
	var b Bitset
	for _, t := range tags {
		if Normalize(t) == "" {
			continue
		}
		b |= Bit(t)
	}
	return b
}

// Matches reports whether the masks share at least one bit.
func Matches(a, b Bitset) bool {
	return a&b != 0
}

// Covers reports whether every bit of sub is set in b. When it is false,
// at least one tag behind sub is certainly absent from the set behind b.
func (b Bitset) Covers(sub Bitset) bool {
	return sub&^b == 0
}

// Union returns a | b.
func (b Bitset) Union(other Bitset) Bitset {
	return b | other
}

// Intersect returns a & b.
func (b Bitset) Intersect(other Bitset) Bitset {
	return b & other
}

// Count returns the number of set bits.
func (b Bitset) Count() int {
	return bits.OnesCount64(uint64(b))
}

// IsZero reports whether no bits are set.
func (b Bitset) IsZero() bool {
	return b == 0
}
