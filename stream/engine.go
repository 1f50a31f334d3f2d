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
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/exascience/pargo/parallel"
	"github.com/google/uuid"

	"github.com/exascience/elstream/internal"
)

// State is the lifecycle state of a run.
type State int32

// The states of a run. A successful run goes through Idle,
// SourceOpen, Streaming, Draining, and ends in Finalized. Any failure
// leads to Aborted.
const (
	Idle State = iota
	SourceOpen
	Streaming
	Draining
	Finalized
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SourceOpen:
		return "source open"
	case Streaming:
		return "streaming"
	case Draining:
		return "draining"
	case Finalized:
		return "finalized"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// A Report describes the outcome of a run.
type Report struct {
	RunID    uuid.UUID
	Workers  int
	Records  uint64 // records written in order, including dropped ones
	Lines    uint64 // lines written to the sink
	Analyses uint64 // analysis values folded into the accumulator
	Pending  int    // outputs left in the reorder window
	Elapsed  time.Duration
	State    State
	Err      error
}

// Complete is true if the run wrote all records in order and folded
// all analysis values.
func (r *Report) Complete() bool {
	return r.State == Finalized && r.Err == nil
}

func (r *Report) String() string {
	if r.Complete() {
		return fmt.Sprintf("run %v complete: %v records, %v lines, %v analysis values, %v workers, elapsed time %v",
			r.RunID, r.Records, r.Lines, r.Analyses, r.Workers, r.Elapsed.Round(time.Millisecond))
	}
	return fmt.Sprintf("run %v aborted after %v records, output is incomplete: %v", r.RunID, r.Records, r.Err)
}

// An Engine runs a Processor over all records of a RecordReader,
// writing the results in input order to a Sink and folding analysis
// values into an Accumulator.
//
// An Engine can be run several times, but not concurrently.
type Engine[R, A any] struct {
	config      Config
	processor   Processor[R, A]
	sink        Sink
	accumulator Accumulator[A]
	state       int32
}

// New creates an Engine. The accumulator may be nil if the processor
// never produces analysis values.
func New[R, A any](processor Processor[R, A], sink Sink, accumulator Accumulator[A], options ...Option) (*Engine[R, A], error) {
	if processor == nil {
		return nil, fmt.Errorf("%w: missing processor", ErrInvalidConfig)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: missing sink", ErrInvalidConfig)
	}
	var cfg Config
	for _, option := range options {
		if option == nil {
			continue
		}
		if err := option(&cfg); err != nil {
			return nil, err
		}
	}
	cfg.setDefaults()
	return &Engine[R, A]{
		config:      cfg,
		processor:   processor,
		sink:        sink,
		accumulator: accumulator,
	}, nil
}

// Config returns the effective configuration of the engine.
func (e *Engine[R, A]) Config() Config {
	return e.config
}

// State returns the current lifecycle state of the engine.
func (e *Engine[R, A]) State() State {
	return State(atomic.LoadInt32(&e.state))
}

func (e *Engine[R, A]) setState(s State) {
	atomic.StoreInt32(&e.state, int32(s))
}

// Run processes all records of reader. It returns once the output is
// complete and all analysis values have been folded into the
// accumulator, or as soon as the run failed.
//
// The returned report is never nil. On failure, the report's state is
// Aborted and the sink footer is not written.
func (e *Engine[R, A]) Run(ctx context.Context, reader RecordReader[R]) (report *Report, err error) {
	cfg := &e.config
	report = &Report{RunID: uuid.New(), Workers: cfg.Workers}
	start := time.Now()
	defer func() {
		report.Elapsed = time.Since(start)
		if err != nil {
			report.State = Aborted
			report.Err = err
			e.setState(Aborted)
			cfg.Logger.Println(report)
		}
	}()

	source := NewSource(reader)
	e.setState(SourceOpen)
	report.State = SourceOpen

	if cfg.Begin != nil {
		if err = cfg.Begin(report); err != nil {
			return report, fmt.Errorf("%w, in begin hook", err)
		}
	}
	if err = e.sink.WriteHeader(); err != nil {
		return report, fmt.Errorf("%w, while writing header", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	failed := &failure{cancel: cancel}

	agg := newAggregator(e.accumulator, cfg.AnalysisCapacity)
	go agg.run(ctx)

	outputs := make(chan Output, cfg.OutputCapacity)
	writerDone := make(chan struct{})
	writer := newOrderedWriter(e.sink, cfg.Logger, cfg.ProgressStep)

	// one task for the ordered writer, plus one per worker
	tasks := make([]func(), 0, cfg.Workers+1)
	tasks = append(tasks, func() {
		defer close(writerDone)
		defer func() {
			if x := recover(); x != nil {
				failed.fail(fmt.Errorf("ordered writer panicked: %v", x))
			}
		}()
		failed.fail(writer.run(ctx, outputs))
	})
	for i := 0; i < cfg.Workers; i++ {
		w := &worker[R, A]{
			source:     source,
			processor:  e.processor,
			outputs:    outputs,
			analyses:   agg.values,
			writerDone: writerDone,
		}
		tasks = append(tasks, func() { failed.fail(w.run(ctx)) })
	}

	e.setState(Streaming)
	report.State = Streaming
	terminated := make(chan struct{})
	go func() {
		defer close(terminated)
		parallel.Do(tasks...)
	}()

	timer := time.NewTimer(cfg.ShutdownTimeout)
	defer timer.Stop()
	select {
	case <-terminated:
		report.Records = writer.records
		report.Lines = writer.lines
	case <-timer.C:
		// Tasks are not interrupted mid-record. Cancelling the context
		// lets them stop at their next suspension point. The writer
		// only blocks on outputs and the sink, so waiting for it keeps
		// the sink exclusively owned until Run returns.
		failed.fail(fmt.Errorf("%w after %v", ErrShutdownTimeout, cfg.ShutdownTimeout))
		<-writerDone
		report.Records = writer.records
		report.Lines = writer.lines
		return report, failed.Err()
	}
	if err = failed.Err(); err != nil {
		return report, err
	}

	e.setState(Draining)
	report.State = Draining
	close(agg.values)
	<-agg.done
	if err = ctx.Err(); err != nil {
		return report, err
	}
	report.Analyses = agg.count
	report.Pending = writer.pending()
	if internal.PedanticMode && report.Pending > 0 {
		return report, fmt.Errorf("%v outputs left in the reorder window", report.Pending)
	}

	report.Elapsed = time.Since(start)
	report.State = Finalized
	if cfg.End != nil {
		if err = cfg.End(report); err != nil {
			return report, fmt.Errorf("%w, in end hook", err)
		}
	}
	if err = e.sink.WriteFooter(); err != nil {
		return report, fmt.Errorf("%w, while writing footer", err)
	}
	e.setState(Finalized)
	cfg.Logger.Println(report)
	return report, nil
}
