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

import (
	"fmt"

	"go.uber.org/zap"
)

// option provide an interface to do work on Set while it is being created.
type option[T comparable] interface {
	apply(s *Set[T])
}

type equalOption[T comparable] struct {
	equal func(a, b T) bool
}

func (op equalOption[T]) apply(s *Set[T]) {
	s.equal = op.equal
}

// WithEqual is an option to specify the equality predicate used to compare
// elements with each other and with the sentinel. The predicate must be
// consistent with the hash function: equal values must hash identically. The
// default is ==.
func WithEqual[T comparable](equal func(a, b T) bool) option[T] {
	return equalOption[T]{equal}
}

type emptyOption[T comparable] struct {
	empty T
}

func (op emptyOption[T]) apply(s *Set[T]) {
	s.empty = op.empty
}

// WithEmpty is an option to specify the sentinel value marking an empty slot.
// The sentinel can never be stored in the set. The default is the zero value
// of T.
func WithEmpty[T comparable](empty T) option[T] {
	return emptyOption[T]{empty}
}

// EraseMode selects how Erase empties the slot of a removed element.
type EraseMode int

const (
	// BackwardShift empties the slot and then shifts later elements of the
	// same cluster back into the hole whenever the hole lies on their probe
	// path. Every element stays reachable from its home slot.
	BackwardShift EraseMode = iota
	// Vacate only writes the sentinel into the slot. An element inserted
	// after the erased one whose probe path crossed the erased slot becomes
	// unreachable by Find, Erase and Emplace (which may then store a
	// duplicate) until the next Rebalance re-inserts it.
	Vacate
)

func (m EraseMode) String() string {
	switch m {
	case BackwardShift:
		return "backward-shift"
	case Vacate:
		return "vacate"
	default:
		return fmt.Sprintf("EraseMode(%d)", int(m))
	}
}

type eraseModeOption[T comparable] struct {
	mode EraseMode
}

func (op eraseModeOption[T]) apply(s *Set[T]) {
	s.eraseMode = op.mode
}

// WithEraseMode is an option to specify the EraseMode of a Set. The default is
// BackwardShift.
func WithEraseMode[T comparable](mode EraseMode) option[T] {
	return eraseModeOption[T]{mode}
}

// Allocator specifies an interface for allocating and releasing the slots
// used by a Set. The default allocator utilizes Go's builtin make() and
// allows the GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slots be
// freed then Set.Close must be called in order to ensure Free is called.
type Allocator[T any] interface {
	// Alloc should return a slice equivalent to make([]T, n). The Set fills
	// the returned slots with its sentinel.
	Alloc(n int) []T

	// Free can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by Alloc.
	Free(v []T)
}

type defaultAllocator[T any] struct{}

func (defaultAllocator[T]) Alloc(n int) []T {
	return make([]T, n)
}

func (defaultAllocator[T]) Free(v []T) {
}

type allocatorOption[T comparable] struct {
	allocator Allocator[T]
}

func (op allocatorOption[T]) apply(s *Set[T]) {
	s.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Set.
func WithAllocator[T comparable](allocator Allocator[T]) option[T] {
	return allocatorOption[T]{allocator}
}

type loggerOption[T comparable] struct {
	logger *zap.Logger
}

func (op loggerOption[T]) apply(s *Set[T]) {
	if op.logger != nil {
		s.logger = op.logger
	}
}

// WithLogger is an option to specify the logger a Set reports rebalances and
// table-full conditions to at debug level. The default discards everything.
func WithLogger[T comparable](logger *zap.Logger) option[T] {
	return loggerOption[T]{logger}
}
