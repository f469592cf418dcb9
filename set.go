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

// Package oaset is a fixed-capacity open-addressing hash set. See
// https://en.wikipedia.org/wiki/Open_addressing and
// https://en.wikipedia.org/wiki/Linear_probing.
//
// # Layout
//
// A Set stores its elements directly in a single slice of slots. There is no
// separate metadata array: a slot is empty iff it holds the set's sentinel
// value (the zero value of T unless overridden with WithEmpty). The sentinel
// is reserved and can never be stored; emplacing it is a no-op and looking it
// up never finds anything.
//
// # Probing
//
// The home slot of a value v is hasher.Hash(v) % capacity. Probing walks
// forward one slot at a time from the home slot, wrapping around at the end
// of the slots, and stops at the first slot that either equals v (found) or
// holds the sentinel (insertion point). If every slot has been visited
// without stopping the probe is exhausted, which Emplace reports as
// ErrTableFull. Find, Emplace, Erase and the re-insertion done by Rebalance
// all share the same probe routine so they always agree on slot identity.
//
// # Capacity
//
// A Set never grows on its own. Capacity changes only through Rebalance,
// which allocates fresh storage, optionally installs a new hash function, and
// re-inserts every element through the ordinary emplace path. A Rebalance to
// a capacity smaller than the number of elements fails with
// ErrRebalanceTooSmall and leaves the set untouched.
//
// # Deletion
//
// Writing the sentinel into a slot in the middle of a cluster would cut the
// probe chain of every element stored further along it. The default
// BackwardShift erase mode closes the hole by shifting later elements of the
// cluster back towards their home slots. The Vacate mode simply writes the
// sentinel; elements beyond the hole can then become unreachable until the
// next Rebalance. See EraseMode.
package oaset

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const debug = false

// ErrTableFull is returned by Emplace when probing visited every slot without
// finding either the value or an empty slot. The caller must Rebalance to a
// larger capacity and retry.
var ErrTableFull = errors.New("oaset: table is full")

// ErrRebalanceTooSmall is returned by Rebalance when the requested capacity
// cannot hold the elements currently in the set.
var ErrRebalanceTooSmall = errors.New("oaset: rebalance capacity is smaller than the set size")

// Set is an open-addressing hash set of values of type T with a fixed
// capacity. Empty slots hold a reserved sentinel value.
//
// A Set is NOT goroutine-safe.
type Set[T comparable] struct {
	// slots is capacity in length. A slot is empty iff it is equal to empty.
	slots []T
	// The hash function used to compute the home slot of a value. Replaced
	// only by a successful RebalanceWithHasher.
	hasher Hasher[T]
	// equal is used both to match stored values and to recognize the
	// sentinel.
	equal func(a, b T) bool
	// The sentinel value marking an empty slot.
	empty T
	// The number of non-empty slots.
	used      int
	eraseMode EraseMode
	// The allocator to use for the slots slice.
	allocator Allocator[T]
	logger    *zap.Logger
	// gen is bumped whenever the slots slice is replaced. Iterators carry
	// the generation they were created under.
	gen uint64
}

// New constructs a new Set with the specified capacity and hash function. All
// capacity slots are initialized to the sentinel.
func New[T comparable](capacity int, hasher Hasher[T], options ...option[T]) *Set[T] {
	if capacity < 0 {
		panic(fmt.Sprintf("oaset: negative capacity %d", capacity))
	}
	if hasher == nil {
		panic("oaset: nil hasher")
	}

	s := &Set[T]{
		hasher:    hasher,
		equal:     func(a, b T) bool { return a == b },
		allocator: defaultAllocator[T]{},
		logger:    zap.NewNop(),
	}

	for _, op := range options {
		op.apply(s)
	}

	s.slots = s.alloc(capacity)
	s.checkInvariants()
	return s
}

// Close releases the slots back to the configured allocator. It is
// unnecessary to close a set using the default allocator. It is invalid to
// use a Set after it has been closed, though Close itself is idempotent.
func (s *Set[T]) Close() {
	if s.allocator == nil {
		return
	}
	if len(s.slots) > 0 {
		s.allocator.Free(s.slots)
	}
	s.slots = nil
	s.used = 0
	s.gen++
	s.allocator = nil
}

// Emplace inserts v into the set. It returns true if v was inserted and false
// if v was already present or is the sentinel. If v is absent and there is no
// empty slot left ErrTableFull is returned and the set is unchanged.
func (s *Set[T]) Emplace(v T) (bool, error) {
	inserted, err := s.emplace(v)
	if err != nil {
		s.logger.Debug("emplace: table is full",
			zap.Int("capacity", len(s.slots)), zap.Int("used", s.used))
		return false, err
	}
	s.checkInvariants()
	return inserted, nil
}

func (s *Set[T]) emplace(v T) (bool, error) {
	if s.isEmpty(v) {
		return false, nil
	}

	i, ok := s.probe(v)
	if !ok {
		return false, ErrTableFull
	}
	if !s.isEmpty(s.slots[i]) {
		return false, nil
	}

	s.slots[i] = v
	s.used++
	if debug {
		s.logger.Debug("emplace(inserting)", zap.Int("index", i), zap.Int("used", s.used))
	}
	return true, nil
}

// Erase removes v from the set, returning the number of elements removed (0
// or 1). Erasing an absent value or the sentinel is a no-op.
func (s *Set[T]) Erase(v T) int {
	i, ok := s.probe(v)
	if !ok || s.isEmpty(s.slots[i]) {
		return 0
	}

	s.slots[i] = s.empty
	s.used--
	if s.eraseMode == BackwardShift {
		s.backwardShift(i)
	}
	if debug {
		s.logger.Debug("erase", zap.Int("index", i), zap.Int("used", s.used))
	}
	s.checkInvariants()
	return 1
}

// backwardShift closes the hole at index i which has just been emptied. It
// walks the cluster following i and moves back every element whose probe path
// passes through the hole, moving the hole to the vacated slot each time. The
// walk ends at the first empty slot or after wrapping all the way around to
// the hole.
func (s *Set[T]) backwardShift(hole int) {
	n := len(s.slots)
	for j := (hole + 1) % n; j != hole; j = (j + 1) % n {
		v := s.slots[j]
		if s.isEmpty(v) {
			return
		}
		// v may fill the hole iff the hole lies on v's probe path, i.e. v is
		// at least as far from its home as the hole is from v.
		home := s.home(v)
		if (j-home+n)%n >= (j-hole+n)%n {
			if debug {
				s.logger.Debug("erase(shifting)", zap.Int("from", j), zap.Int("to", hole))
			}
			s.slots[hole] = v
			s.slots[j] = s.empty
			hole = j
		}
	}
}

// Rebalance changes the capacity of the set, re-inserting every element with
// the current hash function. See RebalanceWithHasher.
func (s *Set[T]) Rebalance(capacity int) error {
	return s.RebalanceWithHasher(capacity, s.hasher)
}

// RebalanceWithHasher changes the capacity of the set to capacity and
// installs hasher, re-inserting every element in slot order. If capacity is
// smaller than Len an error wrapping ErrRebalanceTooSmall is returned and
// neither the slots nor the hash function are modified.
//
// A successful rebalance invalidates all iterators.
func (s *Set[T]) RebalanceWithHasher(capacity int, hasher Hasher[T]) error {
	if hasher == nil {
		panic("oaset: nil hasher")
	}
	if capacity < s.used {
		return fmt.Errorf("%w: capacity=%d size=%d", ErrRebalanceTooSmall, capacity, s.used)
	}

	s.logger.Debug("rebalance",
		zap.Int("old-capacity", len(s.slots)), zap.Int("new-capacity", capacity), zap.Int("used", s.used))

	oldSlots, used := s.slots, s.used
	s.slots = s.alloc(capacity)
	s.hasher = hasher
	s.used = 0
	s.gen++

	for i := range oldSlots {
		v := oldSlots[i]
		if s.isEmpty(v) {
			continue
		}
		if _, err := s.emplace(v); err != nil {
			panic(fmt.Sprintf("invariant failed: rebalance: re-inserting %v at capacity %d: %v\n%s",
				v, capacity, err, s.debugString()))
		}
	}
	if s.used != used {
		panic(fmt.Sprintf("invariant failed: rebalance: re-inserted %d elements, but %d were present\n%s",
			s.used, used, s.debugString()))
	}

	if len(oldSlots) > 0 {
		s.allocator.Free(oldSlots)
	}

	s.logger.Debug("rebalance: done", zap.Int("capacity", len(s.slots)), zap.Int("used", s.used))
	s.checkInvariants()
	return nil
}

// Clear removes every element from the set, retaining the capacity.
// Iterators remain valid.
func (s *Set[T]) Clear() {
	for i := range s.slots {
		s.slots[i] = s.empty
	}
	s.used = 0
	s.checkInvariants()
}

// Find returns an iterator positioned at v, or End if v is not in the set.
func (s *Set[T]) Find(v T) Iterator[T] {
	i, ok := s.probe(v)
	if !ok || s.isEmpty(s.slots[i]) {
		return s.End()
	}
	return s.iter(i)
}

// Contains returns true if v is in the set.
func (s *Set[T]) Contains(v T) bool {
	i, ok := s.probe(v)
	return ok && !s.isEmpty(s.slots[i])
}

// Capacity returns the number of slots.
func (s *Set[T]) Capacity() int {
	return len(s.slots)
}

// Len returns the number of elements in the set.
func (s *Set[T]) Len() int {
	return s.used
}

// Empty returns true if the set has no elements.
func (s *Set[T]) Empty() bool {
	return s.used == 0
}

// Hasher returns the hash function currently in use.
func (s *Set[T]) Hasher() Hasher[T] {
	return s.hasher
}

// Equal returns the equality predicate.
func (s *Set[T]) Equal() func(a, b T) bool {
	return s.equal
}

// EmptyValue returns the sentinel marking empty slots.
func (s *Set[T]) EmptyValue() T {
	return s.empty
}

// All calls yield sequentially for each element in slot order. If yield
// returns false, iteration stops.
func (s *Set[T]) All(yield func(v T) bool) {
	for it := s.Begin(); !it.IsEnd(); it = it.Next() {
		if !yield(it.Value()) {
			return
		}
	}
}

// Backward calls yield sequentially for each element in reverse slot order.
// If yield returns false, iteration stops.
func (s *Set[T]) Backward(yield func(v T) bool) {
	for it := s.End().Prev(); !it.IsEnd(); it = it.Prev() {
		if !yield(it.Value()) {
			return
		}
	}
}

// probe returns the index of the slot that either holds v or is the empty
// slot v would be inserted into. ok is false if v is the sentinel or if every
// slot was visited without finding either.
func (s *Set[T]) probe(v T) (index int, ok bool) {
	if s.isEmpty(v) || len(s.slots) == 0 {
		return 0, false
	}

	seq := makeProbeSeq(s.home(v), len(s.slots))
	if debug {
		s.logger.Debug("probe", zap.Any("value", v), zap.Stringer("seq", seq))
	}

	for ; !seq.done(); seq = seq.next() {
		c := s.slots[seq.offset]
		if s.isEmpty(c) || s.equal(c, v) {
			if debug {
				s.logger.Debug("probe(stopped)", zap.Stringer("seq", seq), zap.Bool("empty", s.isEmpty(c)))
			}
			return seq.offset, true
		}
	}

	if debug {
		s.logger.Debug("probe(exhausted)", zap.Stringer("seq", seq))
	}
	return 0, false
}

// home returns the home slot of v. Must not be called when the set has no
// slots.
func (s *Set[T]) home(v T) int {
	return int(s.hasher.Hash(v) % uint64(len(s.slots)))
}

func (s *Set[T]) isEmpty(v T) bool {
	return s.equal(v, s.empty)
}

func (s *Set[T]) alloc(n int) []T {
	slots := s.allocator.Alloc(n)
	if len(slots) != n {
		panic(fmt.Sprintf("oaset: allocator returned %d slots, expected %d", len(slots), n))
	}
	for i := range slots {
		slots[i] = s.empty
	}
	return slots
}

func (s *Set[T]) checkInvariants() {
	if invariants {
		var used int
		for i, v := range s.slots {
			if s.isEmpty(v) {
				continue
			}
			used++

			// In vacate mode an erase may legitimately break the probe chain
			// of v, so reachability is not verified.
			if s.eraseMode == Vacate {
				continue
			}
			if j, ok := s.probe(v); !ok || j != i {
				panic(fmt.Sprintf("invariant failed: slot(%d): %v not found [home=%d probe=%d/%t]\n%s",
					i, v, s.home(v), j, ok, s.debugString()))
			}
		}

		if used != s.used {
			panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, s.used, s.debugString()))
		}
	}
}

func (s *Set[T]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  erase-mode=%s\n", len(s.slots), s.used, s.eraseMode)
	for i, v := range s.slots {
		if s.isEmpty(v) {
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		} else {
			fmt.Fprintf(&buf, "  %4d: %v [home=%d]\n", i, v, s.home(v))
		}
	}
	return buf.String()
}

// probeSeq maintains the state for a linear probe sequence of the form
//
//	p(i) := (home + i) mod capacity
//
// for i in [0, capacity). The sequence visits every slot exactly once.
type probeSeq struct {
	capacity int
	offset   int
	index    int
}

func makeProbeSeq(home, capacity int) probeSeq {
	return probeSeq{
		capacity: capacity,
		offset:   home,
		index:    0,
	}
}

func (s probeSeq) next() probeSeq {
	s.index++
	s.offset++
	if s.offset == s.capacity {
		s.offset = 0
	}
	return s
}

func (s probeSeq) done() bool {
	return s.index >= s.capacity
}

func (s probeSeq) String() string {
	return fmt.Sprintf("capacity=%d offset=%d index=%d", s.capacity, s.offset, s.index)
}
