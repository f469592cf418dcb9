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

// Package counting provides a position that counts up or down, for walking
// index ranges without materializing them.
package counting

// Counter is a position in a sequence of uint32 indices. Incrementing past
// math.MaxUint32 wraps to zero.
type Counter struct {
	pos uint32
}

// At returns a Counter positioned at pos.
func At(pos uint32) Counter {
	return Counter{pos: pos}
}

// Value returns the current position.
func (c Counter) Value() uint32 {
	return c.pos
}

// Next returns the counter advanced by one.
func (c Counter) Next() Counter {
	return Counter{pos: c.pos + 1}
}

// Prev returns the counter moved back by one.
func (c Counter) Prev() Counter {
	return Counter{pos: c.pos - 1}
}

// Add returns the counter advanced by n.
func (c Counter) Add(n uint32) Counter {
	return Counter{pos: c.pos + n}
}

// Sub returns the counter moved back by n.
func (c Counter) Sub(n uint32) Counter {
	return Counter{pos: c.pos - n}
}

// Distance returns the number of steps from c to other. It is negative when
// other precedes c.
func (c Counter) Distance(other Counter) int64 {
	return int64(other.pos) - int64(c.pos)
}

// Less reports whether c precedes other.
func (c Counter) Less(other Counter) bool {
	return c.pos < other.pos
}

// Indices calls yield for every index in [first, last) in ascending order,
// stopping early if yield returns false. An empty or inverted range yields
// nothing.
func Indices(first, last uint32, yield func(i uint32) bool) {
	for c, end := At(first), At(last); c.Less(end); c = c.Next() {
		if !yield(c.Value()) {
			return
		}
	}
}
