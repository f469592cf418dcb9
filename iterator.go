// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oaset

import "fmt"

// Iterator is a bidirectional cursor over the slots of a Set. An Iterator
// only ever rests on a non-empty slot or on the end position (index
// Capacity()), which is never dereferenced.
//
// Iterators are values; Next and Prev return the moved iterator. They do not
// snapshot the set: an Emplace or Erase is visible to iterators created
// before it. A Rebalance replaces the slots and invalidates every iterator;
// using one afterwards panics.
//
// Moving backwards past the first element lands on the end position, so
// s.Begin().Prev() == s.End() while s.End().Prev() is the last element.
type Iterator[T comparable] struct {
	s     *Set[T]
	index int
	gen   uint64
}

// Begin returns an iterator positioned at the first element in slot order,
// or End if the set is empty.
func (s *Set[T]) Begin() Iterator[T] {
	return s.iter(s.scanForward(0))
}

// End returns the end iterator.
func (s *Set[T]) End() Iterator[T] {
	return s.iter(len(s.slots))
}

func (s *Set[T]) iter(i int) Iterator[T] {
	return Iterator[T]{s: s, index: i, gen: s.gen}
}

// scanForward returns the index of the first non-empty slot at or after i,
// or len(s.slots).
func (s *Set[T]) scanForward(i int) int {
	for ; i < len(s.slots); i++ {
		if !s.isEmpty(s.slots[i]) {
			return i
		}
	}
	return len(s.slots)
}

// scanBackward returns the index of the last non-empty slot at or before i,
// or len(s.slots) if there is none.
func (s *Set[T]) scanBackward(i int) int {
	for ; i >= 0; i-- {
		if !s.isEmpty(s.slots[i]) {
			return i
		}
	}
	return len(s.slots)
}

// Next returns an iterator positioned at the next element, or End. Next of
// End is End.
func (it Iterator[T]) Next() Iterator[T] {
	it.check()
	if it.index < len(it.s.slots) {
		it.index = it.s.scanForward(it.index + 1)
	}
	return it
}

// Prev returns an iterator positioned at the previous element. Prev of End
// is the last element. If there is no previous element the result is End.
func (it Iterator[T]) Prev() Iterator[T] {
	it.check()
	it.index = it.s.scanBackward(it.index - 1)
	return it
}

// Value returns the element the iterator is positioned at. It panics if the
// iterator is at End.
func (it Iterator[T]) Value() T {
	it.check()
	if it.index >= len(it.s.slots) {
		panic("oaset: Value called on end iterator")
	}
	return it.s.slots[it.index]
}

// IsEnd returns true if the iterator is positioned at End.
func (it Iterator[T]) IsEnd() bool {
	it.check()
	return it.index >= len(it.s.slots)
}

// Equal returns true if both iterators belong to the same set and are
// positioned at the same slot. Like every other method it panics if either
// iterator has been invalidated.
func (it Iterator[T]) Equal(o Iterator[T]) bool {
	it.check()
	o.check()
	return it.s == o.s && it.index == o.index
}

func (it Iterator[T]) String() string {
	if it.s == nil {
		return "iterator(nil)"
	}
	if it.index >= len(it.s.slots) {
		return "iterator(end)"
	}
	return fmt.Sprintf("iterator(%d)", it.index)
}

func (it Iterator[T]) check() {
	if it.s == nil {
		panic("oaset: use of zero Iterator")
	}
	if it.gen != it.s.gen {
		panic(fmt.Sprintf("oaset: iterator invalidated by rebalance (generation %d, set at %d)",
			it.gen, it.s.gen))
	}
}
