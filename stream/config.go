// elstream: a parallel streaming toolkit for VCF and SAM files.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elstream/blob/master/LICENSE.txt>.

package stream

import (
	"log"
	"runtime"
	"time"

	"github.com/ygrebnov/errorc"
)

const (
	// MaxDefaultWorkers caps the default number of workers.
	MaxDefaultWorkers = 8

	// ReservedProcs is the number of logical processors left to the
	// ordered writer and the aggregator when choosing a default number
	// of workers.
	ReservedProcs = 2

	// OutputCapacityFactor times the number of workers is the default
	// capacity of the output channel.
	OutputCapacityFactor = 20

	// DefaultAnalysisCapacity is the default capacity of the analysis channel.
	DefaultAnalysisCapacity = 200

	// DefaultProgressStep is the default number of records between
	// two progress reports.
	DefaultProgressStep = 10000

	// DefaultShutdownTimeout is long enough to be effectively
	// unbounded for interactive use, but still finite.
	DefaultShutdownTimeout = 24 * time.Hour
)

// Config holds the tunable parameters of an Engine. Zero values are
// replaced by defaults.
type Config struct {
	Workers          int
	OutputCapacity   int
	AnalysisCapacity int
	ProgressStep     uint64
	ShutdownTimeout  time.Duration
	Logger           *log.Logger

	// Begin is called with the fresh report of a run, before the
	// sink header is written. Only RunID and Workers are set.
	Begin func(*Report) error

	// End is called with the final report of a successful run,
	// before the sink footer is written.
	End func(*Report) error
}

// DefaultWorkers returns the number of workers used when none is
// configured explicitly: the available parallelism minus
// ReservedProcs, clamped to [1, MaxDefaultWorkers].
func DefaultWorkers() int {
	return clampWorkers(runtime.GOMAXPROCS(0) - ReservedProcs)
}

func clampWorkers(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxDefaultWorkers:
		return MaxDefaultWorkers
	default:
		return n
	}
}

func (cfg *Config) setDefaults() {
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.OutputCapacity == 0 {
		cfg.OutputCapacity = OutputCapacityFactor * cfg.Workers
	}
	if cfg.AnalysisCapacity == 0 {
		cfg.AnalysisCapacity = DefaultAnalysisCapacity
	}
	if cfg.ProgressStep == 0 {
		cfg.ProgressStep = DefaultProgressStep
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
}

// An Option configures an Engine.
type Option func(*Config) error

// WithWorkers overrides the number of workers. n must be > 0.
func WithWorkers(n int) Option {
	return func(cfg *Config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("workers", "must be > 0"))
		}
		cfg.Workers = n
		return nil
	}
}

// WithOutputCapacity overrides the capacity of the output channel. n must be > 0.
func WithOutputCapacity(n int) Option {
	return func(cfg *Config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("output capacity", "must be > 0"))
		}
		cfg.OutputCapacity = n
		return nil
	}
}

// WithAnalysisCapacity overrides the capacity of the analysis channel. n must be > 0.
func WithAnalysisCapacity(n int) Option {
	return func(cfg *Config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("analysis capacity", "must be > 0"))
		}
		cfg.AnalysisCapacity = n
		return nil
	}
}

// WithProgressStep sets the number of records between two progress reports.
func WithProgressStep(step uint64) Option {
	return func(cfg *Config) error {
		if step == 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("progress step", "must be > 0"))
		}
		cfg.ProgressStep = step
		return nil
	}
}

// WithShutdownTimeout bounds the time Run waits for the workers and
// the ordered writer to terminate.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(cfg *Config) error {
		if timeout <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("shutdown timeout", "must be > 0"))
		}
		cfg.ShutdownTimeout = timeout
		return nil
	}
}

// WithLogger sets the logger for progress and summary messages.
func WithLogger(logger *log.Logger) Option {
	return func(cfg *Config) error {
		if logger == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("logger", "must not be nil"))
		}
		cfg.Logger = logger
		return nil
	}
}

// WithBegin sets a hook that runs before the sink header is written,
// for example to add the run ID to the header.
func WithBegin(begin func(*Report) error) Option {
	return func(cfg *Config) error {
		cfg.Begin = begin
		return nil
	}
}

// WithEnd sets a hook that receives the report of a successful run,
// before the sink footer is written.
func WithEnd(end func(*Report) error) Option {
	return func(cfg *Config) error {
		cfg.End = end
		return nil
	}
}
