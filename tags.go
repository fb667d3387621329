package koragraph

import (
	"strings"

	"github.com/a-peyrard/koragraph/set"
)

// Tags is a normalized set of identity markers: sorted and without duplicates. Two tag sets
// match when they contain exactly the same markers, an empty set only matches an empty set.
type Tags []string

// NewTags normalizes the given markers into a tag set.
func NewTags(tags ...string) Tags {
	if len(tags) == 0 {
		return nil
	}
	return set.Sorted(set.NewFromSlice(tags))
}

// Matches returns true if both tag sets contain exactly the same markers.
func (t Tags) Matches(other Tags) bool {
	return set.NewFromSlice(t).Equal(set.NewFromSlice(other))
}

func (t Tags) IsEmpty() bool {
	return len(t) == 0
}

// Key is a stable textual form of the set, suitable as a map key.
func (t Tags) Key() string {
	return strings.Join(NewTags(t...), ",")
}

func (t Tags) String() string {
	return "[" + strings.Join(t, ", ") + "]"
}
