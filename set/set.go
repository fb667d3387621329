// Package set contains a minimal generic set built on top of a map, used for tag sets and
// generated identifiers.
package set

import (
	"cmp"
	"slices"
)

// Set represents a generic set data structure
type Set[T comparable] map[T]struct{}

func New[T comparable]() Set[T] {
	return make(Set[T])
}

func NewWithValues[T comparable](values ...T) Set[T] {
	return NewFromSlice(values)
}

// NewFromSlice creates a set from the given slice, duplicates are dropped.
func NewFromSlice[T comparable](slice []T) Set[T] {
	s := make(Set[T], len(slice))
	for _, elem := range slice {
		s.Add(elem)
	}
	return s
}

func (s Set[T]) Add(value T) {
	s[value] = struct{}{}
}

func (s Set[T]) Contains(value T) bool {
	_, exists := s[value]
	return exists
}

func (s Set[T]) IsEmpty() bool {
	return len(s) == 0
}

// ToSlice returns all values as a slice, in no particular order.
func (s Set[T]) ToSlice() []T {
	result := make([]T, 0, len(s))
	for value := range s {
		result = append(result, value)
	}
	return result
}

// Equal returns true if both sets contain exactly the same elements. Tag sets match this way.
func (s Set[T]) Equal(other Set[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for value := range s {
		if !other.Contains(value) {
			return false
		}
	}
	return true
}

// Sorted returns the values of the set in ascending order
func Sorted[T cmp.Ordered](s Set[T]) []T {
	result := s.ToSlice()
	slices.Sort(result)
	return result
}
