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

	"github.com/cespare/xxhash/v2"
)

// Hasher computes the hash of a value. A Set reduces the hash modulo its
// capacity to obtain the home slot of the value. Hash must be deterministic
// and pure.
type Hasher[T any] interface {
	Hash(v T) uint64
}

// HashFunc adapts an ordinary function to the Hasher interface.
type HashFunc[T any] func(v T) uint64

// Hash calls f(v).
func (f HashFunc[T]) Hash(v T) uint64 {
	return f(v)
}

// Integer is the set of types ModHasher accepts.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// ModHasher hashes an integer by reducing it modulo a fixed size. Negative
// values are converted to uint64 first, so -1 hashes to (2^64-1) % size.
// When size matches the capacity of the set the hash is the home slot itself,
// which makes collisions easy to construct.
type ModHasher[T Integer] struct {
	size uint64
}

// NewModHasher returns a ModHasher reducing modulo size.
func NewModHasher[T Integer](size int) ModHasher[T] {
	if size <= 0 {
		panic(fmt.Sprintf("oaset: invalid ModHasher size %d", size))
	}
	return ModHasher[T]{size: uint64(size)}
}

// Hash implements Hasher.
func (h ModHasher[T]) Hash(v T) uint64 {
	return uint64(v) % h.size
}

// Size returns the modulus.
func (h ModHasher[T]) Size() int {
	return int(h.size)
}

// StringHasher returns a Hasher for string-like values based on xxHash64.
func StringHasher[T ~string]() Hasher[T] {
	return HashFunc[T](func(v T) uint64 {
		return xxhash.Sum64String(string(v))
	})
}
