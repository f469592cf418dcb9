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

// Package workload compares the lookup performance of an oaset.Set against the
// builtin map on a random population of uint32 values.
package workload

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/cockroachdb/oaset"
	"github.com/cockroachdb/oaset/internal/counting"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.uber.org/zap"
)

// Config describes a workload.
type Config struct {
	// Values are drawn uniformly from [Lower, Upper]. Lower must be
	// positive because zero is the sentinel of oaset.Set[uint32].
	Lower, Upper uint32
	// Pool is the number of random values generated.
	Pool int
	// Stored is the number of pool values inserted into each container,
	// and also the number of random lookups performed.
	Stored int
	// Capacity is the capacity of the oaset.Set and the modulus of its
	// hasher.
	Capacity int
	// Seed seeds the random source.
	Seed int64
}

// DefaultConfig returns the default workload: 100k of 1M values in
// [1e9, 4e9] stored in a set with 400009 slots.
func DefaultConfig() Config {
	return Config{
		Lower:    1_000_000_000,
		Upper:    4_000_000_000,
		Pool:     1_000_000,
		Stored:   100_000,
		Capacity: 400_009,
		Seed:     1,
	}
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	switch {
	case c.Lower == 0:
		return errors.New("workload: lower bound must be positive")
	case c.Lower > c.Upper:
		return fmt.Errorf("workload: lower bound %d exceeds upper bound %d", c.Lower, c.Upper)
	case c.Pool <= 0 || uint64(c.Pool) > math.MaxUint32:
		return fmt.Errorf("workload: pool size %d must be in [1, %d]", c.Pool, uint64(math.MaxUint32))
	case c.Stored < 0 || c.Stored > c.Pool:
		return fmt.Errorf("workload: stored count %d must be in [0, %d]", c.Stored, c.Pool)
	case c.Capacity <= 0:
		return fmt.Errorf("workload: invalid capacity %d", c.Capacity)
	}
	return nil
}

// Result holds the measurements for one container implementation.
type Result struct {
	Impl string
	// Len is the number of distinct values held after the build phase.
	Len    int
	Build  time.Duration
	Search time.Duration
	// Found is the number of lookups that hit.
	Found int
}

// Report is the outcome of Run.
type Report struct {
	Config  Config
	Results []Result
}

// Generate returns count values drawn uniformly from [lower, upper]. It
// panics if count does not fit in a uint32.
func Generate(rng *rand.Rand, count int, lower, upper uint32) []uint32 {
	if count <= 0 {
		return nil
	}
	if uint64(count) > math.MaxUint32 {
		panic(fmt.Sprintf("workload: count %d exceeds %d", count, uint64(math.MaxUint32)))
	}
	span := int64(upper) - int64(lower) + 1
	values := make([]uint32, count)
	counting.Indices(0, uint32(count), func(i uint32) bool {
		values[i] = lower + uint32(rng.Int63n(span))
		return true
	})
	return values
}

// Timed returns how long fn took to run.
func Timed(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}

// Run generates the workload described by cfg, builds a builtin map and an
// oaset.Set from the first cfg.Stored pool values and then looks up
// cfg.Stored randomly chosen pool values in each. If the set runs out of
// slots the error wraps oaset.ErrTableFull.
func Run(cfg Config, log *zap.Logger) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	pool := Generate(rng, cfg.Pool, cfg.Lower, cfg.Upper)
	indexes := Generate(rng, cfg.Stored, 0, uint32(cfg.Pool-1))
	stored := pool[:cfg.Stored]
	log.Debug("workload generated",
		zap.Int("pool", len(pool)), zap.Int("stored", len(stored)), zap.Int64("seed", cfg.Seed))

	report := Report{Config: cfg}

	var m map[uint32]struct{}
	mapResult := Result{Impl: "builtin map"}
	mapResult.Build = Timed(func() {
		m = make(map[uint32]struct{}, cfg.Capacity)
		for _, v := range stored {
			m[v] = struct{}{}
		}
	})
	mapResult.Len = len(m)
	mapResult.Search = Timed(func() {
		for _, i := range indexes {
			if _, ok := m[pool[i]]; ok {
				mapResult.Found++
			}
		}
	})
	report.Results = append(report.Results, mapResult)

	var s *oaset.Set[uint32]
	var err error
	setResult := Result{Impl: "oaset"}
	setResult.Build = Timed(func() {
		s = oaset.New[uint32](cfg.Capacity, oaset.NewModHasher[uint32](cfg.Capacity),
			oaset.WithLogger[uint32](log))
		for _, v := range stored {
			if _, err = s.Emplace(v); err != nil {
				err = fmt.Errorf("workload: emplace %d: %w", v, err)
				return
			}
		}
	})
	if err != nil {
		return Report{}, err
	}
	defer s.Close()
	setResult.Len = s.Len()
	setResult.Search = Timed(func() {
		for _, i := range indexes {
			if s.Contains(pool[i]) {
				setResult.Found++
			}
		}
	})
	report.Results = append(report.Results, setResult)

	for _, r := range report.Results {
		log.Info("workload finished",
			zap.String("impl", r.Impl),
			zap.Int("len", r.Len),
			zap.Duration("build", r.Build),
			zap.Duration("search", r.Search),
			zap.Int("found", r.Found))
	}
	return report, nil
}

// Render writes the configuration on one line followed by the results as a
// table.
func (r Report) Render(w io.Writer) {
	fmt.Fprintf(w, "range [%d, %d]  pool %d  stored %d  capacity %d  seed %d\n",
		r.Config.Lower, r.Config.Upper, r.Config.Pool, r.Config.Stored, r.Config.Capacity, r.Config.Seed)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"impl", "len", "build", "search", "found"})
	for _, res := range r.Results {
		tw.AppendRow(table.Row{res.Impl, res.Len, res.Build, res.Search, res.Found})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	tw.Render()
}
