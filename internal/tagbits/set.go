package tagbits

import "sort"

// Set is an exact tag set paired with its mask. The mask answers the cheap
// question first; the sorted tag list answers it exactly.
type Set struct {
	Mask Bitset
	tags []string
}

// NewSet normalizes, deduplicates and sorts tags.
func NewSet(tags []string) Set {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := Normalize(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return Set{Mask: FromTags(out), tags: out}
}

// Tags returns the normalized tags in sorted order.
func (s Set) Tags() []string {
	return s.tags
}

// Len returns the number of distinct tags.
func (s Set) Len() int {
	return len(s.tags)
}

// Has reports whether a tag is in the set.
func (s Set) Has(tag string) bool {
	n := Normalize(tag)
	if !Matches(s.Mask, Bit(n)) {
		return false
	}
	i := sort.SearchStrings(s.tags, n)
	return i < len(s.tags) && s.tags[i] == n
}

// Intersects reports whether the sets share a tag. The mask test rejects
// most disjoint pairs; a mask hit is confirmed by walking both sorted lists.
func (s Set) Intersects(other Set) bool {
	if !Matches(s.Mask, other.Mask) {
		return false
	}
	i, j := 0, 0
	for i < len(s.tags) && j < len(other.tags) {
		switch {
		case s.tags[i] == other.tags[j]:
			return true
		case s.tags[i] < other.tags[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// ContainsAll reports whether every tag of sub is in s.
func (s Set) ContainsAll(sub Set) bool {
	if !s.Mask.Covers(sub.Mask) {
		return false
	}
	for _, t := range sub.tags {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same tags.
func (s Set) Equal(other Set) bool {
	if s.Mask != other.Mask || len(s.tags) != len(other.tags) {
		return false
	}
	for i := range s.tags {
		if s.tags[i] != other.tags[i] {
			return false
		}
	}
	return true
}
