// Package tag provides the tag identity and tag memory decoding.
package tag

import (
	"strconv"
	"strings"
)

// keyLength is the number of UID bytes used for override lookups.
const keyLength = 4

// UID is the identity of a tag as reported by anticollision.
type UID []byte

// Equal reports whether both UIDs contain the same bytes.
// A nil UID is only equal to another nil or empty UID.
func (u UID) Equal(other UID) bool {
	if len(u) != len(other) {
		return false
	}
	for i := range u {
		if u[i] != other[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether no tag is identified.
func (u UID) IsZero() bool {
	return len(u) == 0
}

// Key returns the override lookup key: the first four bytes joined with dots.
func (u UID) Key() string {
	n := len(u)
	if n > keyLength {
		n = keyLength
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = strconv.Itoa(int(u[i]))
	}
	return strings.Join(parts, ".")
}

// String returns all UID bytes joined with dots.
func (u UID) String() string {
	parts := make([]string, len(u))
	for i, b := range u {
		parts[i] = strconv.Itoa(int(b))
	}
	return strings.Join(parts, ".")
}

// Clone returns a copy that does not share the backing array.
func (u UID) Clone() UID {
	if u == nil {
		return nil
	}
	c := make(UID, len(u))
	copy(c, u)
	return c
}
