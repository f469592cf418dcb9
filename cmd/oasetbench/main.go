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

// Command oasetbench compares an oaset.Set against the builtin map on a
// random uint32 workload and prints the timings as a table.
//
// Every flag can also be set through an environment variable prefixed with
// OASETBENCH_, e.g. OASETBENCH_CAPACITY=800011.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/burdiyan/go/mainutil"
	"github.com/cockroachdb/oaset/internal/logging"
	"github.com/cockroachdb/oaset/internal/workload"
	"github.com/peterbourgon/ff/v4"
	"go.uber.org/zap"
)

const envVarPrefix = "OASETBENCH"

type options struct {
	workload workload.Config
	logLevel string
}

// parseFlags parses args, falling back to OASETBENCH_* environment variables
// for flags not given on the command line. ff.ErrHelp is returned as is.
func parseFlags(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("oasetbench", flag.ContinueOnError)
	fs.SetOutput(output)

	def := workload.DefaultConfig()
	lower := fs.Uint64("lower", uint64(def.Lower), "smallest generated value (must be positive)")
	upper := fs.Uint64("upper", uint64(def.Upper), "largest generated value")
	pool := fs.Int("pool", def.Pool, "number of random values generated")
	stored := fs.Int("stored", def.Stored, "number of values inserted and looked up")
	capacity := fs.Int("capacity", def.Capacity, "capacity of the open-addressing set")
	seed := fs.Int64("seed", def.Seed, "random seed")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(envVarPrefix)); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fs.Usage()
		}
		return options{}, err
	}

	if *lower > math.MaxUint32 || *upper > math.MaxUint32 {
		return options{}, fmt.Errorf("range [%d, %d] does not fit in uint32", *lower, *upper)
	}

	return options{
		workload: workload.Config{
			Lower:    uint32(*lower),
			Upper:    uint32(*upper),
			Pool:     *pool,
			Stored:   *stored,
			Capacity: *capacity,
			Seed:     *seed,
		},
		logLevel: *logLevel,
	}, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, ff.ErrHelp) {
			return nil
		}

		return err
	}

	log, err := logging.New("oasetbench", opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Debug("starting workload", zap.Any("config", opts.workload))

	report, err := workload.Run(opts.workload, log)
	if err != nil {
		return err
	}
	report.Render(stdout)
	return nil
}

func main() {
	mainutil.Run(func() error {
		return run(slices.Clone(os.Args[1:]), os.Stdout, os.Stderr)
	})
}
