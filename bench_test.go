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
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func BenchmarkSetIter(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int", benchSizes(benchmarkRuntimeMapIter[int64], genKeys[int64]))
	})
	b.Run("impl=oaset", func(b *testing.B) {
		b.Run("t=Int", benchSizes(benchmarkSetIter[int64], genKeys[int64]))
	})
}

func BenchmarkSetFindHit(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapFindHit[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapFindHit[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapFindHit[string], genKeys[string]))
	})
	b.Run("impl=oaset", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkSetFindHit[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkSetFindHit[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkSetFindHit[string], genKeys[string]))
	})
}

func BenchmarkSetFindMiss(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapFindMiss[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapFindMiss[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapFindMiss[string], genKeys[string]))
	})
	b.Run("impl=oaset", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkSetFindMiss[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkSetFindMiss[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkSetFindMiss[string], genKeys[string]))
	})
}

func BenchmarkSetEmplacePreAllocate(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapEmplacePreAllocate[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapEmplacePreAllocate[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapEmplacePreAllocate[string], genKeys[string]))
	})
	b.Run("impl=oaset", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkSetEmplacePreAllocate[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkSetEmplacePreAllocate[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkSetEmplacePreAllocate[string], genKeys[string]))
	})
}

func BenchmarkSetEmplaceErase(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapEmplaceErase[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapEmplaceErase[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapEmplaceErase[string], genKeys[string]))
	})
	for _, mode := range []EraseMode{BackwardShift, Vacate} {
		b.Run("impl=oaset/mode="+mode.String(), func(b *testing.B) {
			b.Run("t=Int64", benchSizes(benchmarkSetEmplaceErase[int64](mode), genKeys[int64]))
			b.Run("t=Int32", benchSizes(benchmarkSetEmplaceErase[int32](mode), genKeys[int32]))
			b.Run("t=String", benchSizes(benchmarkSetEmplaceErase[string](mode), genKeys[string]))
		})
	}
}

func BenchmarkSetRebalance(b *testing.B) {
	b.Run("t=Int64", benchSizes(benchmarkSetRebalance[int64], genKeys[int64]))
}

type benchTypes interface {
	int32 | int64 | string
}

func benchSizes[T benchTypes](
	f func(b *testing.B, n int, genKeys func(start, end int) []T), genKeys func(start, end int) []T,
) func(*testing.B) {
	var cases = []int{
		6, 12, 18, 24, 30,
		64,
		128,
		256,
		512,
		1024,
		2048,
		4096,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n, genKeys) })
		}
	}
}

// genKeys returns the keys [start, end). Callers keep 0 out of the range as
// it is the sentinel for the integer types.
func genKeys[T benchTypes](start, end int) []T {
	var t T
	switch any(t).(type) {
	case int32:
		keys := make([]int32, end-start)
		for i := range keys {
			keys[i] = int32(start + i)
		}
		return any(keys).([]T)
	case int64:
		keys := make([]int64, end-start)
		for i := range keys {
			keys[i] = int64(start + i)
		}
		return any(keys).([]T)
	case string:
		keys := make([]string, end-start)
		for i := range keys {
			keys[i] = strconv.Itoa(start + i)
		}
		return any(keys).([]T)
	default:
		panic("not reached")
	}
}

func benchHasher[T benchTypes]() Hasher[T] {
	var t T
	switch any(t).(type) {
	case int32:
		return any(mixHasher[int32]()).(Hasher[T])
	case int64:
		return any(mixHasher[int64]()).(Hasher[T])
	case string:
		return any(StringHasher[string]()).(Hasher[T])
	default:
		panic("not reached")
	}
}

// benchCapacity keeps the load factor at 50%.
func benchCapacity(n int) int {
	return 2 * n
}

func benchmarkRuntimeMapIter[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := make(map[T]struct{}, n)
	keys := genKeys(1, n+1)
	for _, k := range keys {
		m[k] = struct{}{}
	}
	b.ResetTimer()
	perfbench.Open(b)
	var tmp T
	for i := 0; i < b.N; i++ {
		for k := range m {
			tmp += k
		}
	}
}

func benchmarkSetIter[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	s := New[T](benchCapacity(n), benchHasher[T]())
	keys := genKeys(1, n+1)
	for _, k := range keys {
		_, _ = s.Emplace(k)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var tmp T
	for i := 0; i < b.N; i++ {
		s.All(func(v T) bool {
			tmp += v
			return true
		})
	}
}

func benchmarkRuntimeMapFindMiss[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	m := make(map[T]struct{})
	keys := genKeys(1, n+1)
	miss := genKeys(-n, 0)
	for _, k := range keys {
		m[k] = struct{}{}
	}
	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[miss[i%len(miss)]]
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkSetFindMiss[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	s := New[T](benchCapacity(n), benchHasher[T]())
	keys := genKeys(1, n+1)
	miss := genKeys(-n, 0)
	for j := range keys {
		_, _ = s.Emplace(keys[j])
	}
	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		ok = s.Contains(miss[i%len(miss)])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapFindHit[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	m := make(map[T]struct{}, n)
	keys := genKeys(1, n+1)
	for _, k := range keys {
		m[k] = struct{}{}
	}

	// Go's builtin map has an optimization to avoid string comparisons if
	// there is pointer equality. Defeat this optimization to get a better
	// apples-to-apples comparison.
	keys = genKeys(1, n+1)

	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[keys[i%n]]
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkSetFindHit[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	s := New[T](benchCapacity(n), benchHasher[T]())
	keys := genKeys(1, n+1)
	for _, k := range keys {
		_, _ = s.Emplace(k)
	}
	keys = genKeys(1, n+1)
	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		ok = s.Contains(keys[i%n])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapEmplacePreAllocate[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	keys := genKeys(1, n+1)
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		m := make(map[T]struct{}, n)
		for _, k := range keys {
			m[k] = struct{}{}
		}
	}
}

func benchmarkSetEmplacePreAllocate[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	keys := genKeys(1, n+1)
	hasher := benchHasher[T]()
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		s := New[T](benchCapacity(n), hasher)
		for _, k := range keys {
			if _, err := s.Emplace(k); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func benchmarkRuntimeMapEmplaceErase[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	m := make(map[T]struct{}, n)
	keys := genKeys(1, n+1)
	for _, k := range keys {
		m[k] = struct{}{}
	}
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		j := i % n
		delete(m, keys[j])
		m[keys[j]] = struct{}{}
	}
}

func benchmarkSetEmplaceErase[T benchTypes](
	mode EraseMode,
) func(b *testing.B, n int, genKeys func(start, end int) []T) {
	return func(b *testing.B, n int, genKeys func(start, end int) []T) {
		s := New[T](benchCapacity(n), benchHasher[T](), WithEraseMode[T](mode))
		keys := genKeys(1, n+1)
		for _, k := range keys {
			_, _ = s.Emplace(k)
		}
		b.ResetTimer()
		perfbench.Open(b)
		for i := 0; i < b.N; i++ {
			j := i % n
			s.Erase(keys[j])
			if _, err := s.Emplace(keys[j]); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func benchmarkSetRebalance[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	s := New[T](benchCapacity(n), benchHasher[T]())
	keys := genKeys(1, n+1)
	for _, k := range keys {
		_, _ = s.Emplace(k)
	}
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		// Alternate between two capacities so every iteration moves elements.
		capacity := benchCapacity(n)
		if i%2 == 0 {
			capacity++
		}
		if err := s.Rebalance(capacity); err != nil {
			b.Fatal(err)
		}
	}
}
