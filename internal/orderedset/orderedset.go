// Package orderedset provides an insertion-ordered unique collection keyed
// by a caller-supplied identity function. It backs submitted-answer tracking
// and the player roster: a slice is the arena, a map is the secondary index,
// and every mutation keeps both in lockstep.
package orderedset

import "errors"

// ErrIndexOutOfRange is returned for positional misuse. It indicates a bug
// in the caller, not bad input; callers are expected to bounds-check first.
var ErrIndexOutOfRange = errors.New("ordered set: index out of range")

// Set is an insertion-ordered set of T, deduplicated by the key function.
// It is single-owner: no concurrent mutation, and positions obtained before
// a mutation are invalid after it.
type Set[T any] struct {
	key   func(T) string
	items []T
	index map[string]int
}

// New returns an empty set using key for element identity.
func New[T any](key func(T) string) *Set[T] {
	return &Set[T]{key: key, index: make(map[string]int)}
}

// From builds a set from items in order, dropping duplicate keys.
func From[T any](key func(T) string, items []T) *Set[T] {
	s := New(key)
	for _, item := range items {
		s.Append(item)
	}
	return s
}

// NewStrings returns an empty set of strings keyed by identity.
func NewStrings() *Set[string] {
	return New(func(s string) string { return s })
}

// FromStrings builds a string set keyed by identity.
func FromStrings(items []string) *Set[string] {
	return From(func(s string) string { return s }, items)
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	return len(s.items)
}

// Has reports whether an element with item's key is present.
func (s *Set[T]) Has(item T) bool {
	_, ok := s.index[s.key(item)]
	return ok
}

// IndexOf returns the position of item, or false if absent.
func (s *Set[T]) IndexOf(item T) (int, bool) {
	pos, ok := s.index[s.key(item)]
	return pos, ok
}

// At returns the element at position i.
func (s *Set[T]) At(i int) (T, error) {
	var zero T
	if i < 0 || i >= len(s.items) {
		return zero, ErrIndexOutOfRange
	}
	return s.items[i], nil
}

// Append adds item at the next position. Appending an existing key is a
// no-op.
func (s *Set[T]) Append(item T) {
	k := s.key(item)
	if _, ok := s.index[k]; ok {
		return
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, item)
}

// Remove deletes item if present and renumbers every element after it.
func (s *Set[T]) Remove(item T) {
	pos, ok := s.index[s.key(item)]
	if !ok {
		return
	}
	s.removeAt(pos)
}

func (s *Set[T]) removeAt(pos int) {
	delete(s.index, s.key(s.items[pos]))
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	for i := pos; i < len(s.items); i++ {
		s.index[s.key(s.items[i])] = i
	}
}

// InsertAt places item at index, shifting elements at and after it forward.
// Inserting an existing key is a pure no-op: the element keeps its current
// position. Index may equal Len (append position).
func (s *Set[T]) InsertAt(index int, item T) error {
	if index < 0 || index > len(s.items) {
		return ErrIndexOutOfRange
	}
	k := s.key(item)
	if _, ok := s.index[k]; ok {
		return nil
	}
	s.items = append(s.items, item)
	copy(s.items[index+1:], s.items[index:])
	s.items[index] = item
	for i := index; i < len(s.items); i++ {
		s.index[s.key(s.items[i])] = i
	}
	return nil
}

// ReinsertAt moves the element currently at from so it lands at to, where
// to is interpreted against the slice after removal. This matches
// drag-reorder semantics and must not be "simplified" to pre-removal
// coordinates.
func (s *Set[T]) ReinsertAt(from, to int) error {
	if from < 0 || from > len(s.items) || to < 0 || to > len(s.items) {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	if from == len(s.items) {
		return ErrIndexOutOfRange
	}
	item := s.items[from]
	s.removeAt(from)
	if to > len(s.items) {
		to = len(s.items)
	}
	return s.InsertAt(to, item)
}

// TakeRight keeps the newest n elements, dropping the oldest and
// renumbering survivors from 0. A set of size <= n is untouched.
func (s *Set[T]) TakeRight(n int) {
	if n < 0 {
		n = 0
	}
	if len(s.items) <= n {
		return
	}
	drop := len(s.items) - n
	for i := 0; i < drop; i++ {
		delete(s.index, s.key(s.items[i]))
	}
	s.items = append([]T(nil), s.items[drop:]...)
	for i, item := range s.items {
		s.index[s.key(item)] = i
	}
}

// DropExcluded removes every element whose key is not among allowed's keys.
func (s *Set[T]) DropExcluded(allowed []T) {
	keep := make(map[string]struct{}, len(allowed))
	for _, item := range allowed {
		keep[s.key(item)] = struct{}{}
	}
	out := s.items[:0]
	for _, item := range s.items {
		if _, ok := keep[s.key(item)]; ok {
			out = append(out, item)
		} else {
			delete(s.index, s.key(item))
		}
	}
	s.items = out
	for i, item := range s.items {
		s.index[s.key(item)] = i
	}
}

// Values returns the elements in position order. The slice is a copy.
func (s *Set[T]) Values() []T {
	return append([]T(nil), s.items...)
}
