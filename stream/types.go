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

type (
	// A RecordReader produces the records of a sequential input, one
	// per call, in physical order. Read returns io.EOF once the input
	// is exhausted. Any other error is fatal for the run.
	//
	// A RecordReader does not need to be safe for concurrent use; the
	// Source serializes all calls.
	RecordReader[R any] interface {
		Read() (R, error)
	}

	// An Item is one numbered record handed out by a Source, or an end
	// marker if End is true.
	Item[R any] struct {
		Sequence uint64
		Record   R
		End      bool
	}

	// An Output is the result of processing the Item with the same
	// sequence number. Lines may be empty if the record was dropped.
	Output struct {
		Sequence uint64
		Lines    []string
		End      bool
	}

	// A Result is what a Processor returns for a single record. If
	// HasAnalysis is true, Analysis is sent to the Accumulator of the
	// run.
	Result[A any] struct {
		Lines       []string
		Analysis    A
		HasAnalysis bool
	}

	// A Processor transforms a single record into zero or more output
	// lines and an optional analysis value.
	//
	// Process is called concurrently from several workers, in no
	// particular order, so it must only depend on its argument and on
	// read-only state. An error (or a panic) aborts the run.
	Processor[R, A any] interface {
		Process(record R) (Result[A], error)
	}

	// ProcessorFunc adapts an ordinary function to the Processor interface.
	ProcessorFunc[R, A any] func(record R) (Result[A], error)

	// An Accumulator folds analysis values into run-wide statistics.
	//
	// Add is only ever called from a single goroutine, but in no
	// guaranteed order, so accumulation must be commutative.
	Accumulator[A any] interface {
		Add(value A)
	}

	// AccumulatorFunc adapts an ordinary function to the Accumulator interface.
	AccumulatorFunc[A any] func(value A)

	// A Sink receives the output of a run. WriteHeader is called once
	// before any lines are written, and WriteFooter once after the run
	// completed successfully. WriteLines is only called from the
	// ordered writer, in input order.
	Sink interface {
		WriteHeader() error
		WriteLines(lines []string) error
		WriteFooter() error
	}
)

// Process implements the Processor interface.
func (f ProcessorFunc[R, A]) Process(record R) (Result[A], error) {
	return f(record)
}

// Add implements the Accumulator interface.
func (f AccumulatorFunc[A]) Add(value A) {
	f(value)
}

// Lines returns a Result that only carries output lines.
func Lines[A any](lines ...string) Result[A] {
	return Result[A]{Lines: lines}
}

// Analyzed returns a Result with both output lines and an analysis value.
func Analyzed[A any](analysis A, lines ...string) Result[A] {
	return Result[A]{Lines: lines, Analysis: analysis, HasAnalysis: true}
}
