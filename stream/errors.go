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
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidConfig is returned by New for invalid options.
	ErrInvalidConfig = errors.New("stream: invalid configuration")

	// ErrShutdownTimeout is returned by Run when the workers and the
	// ordered writer did not terminate within the shutdown timeout.
	ErrShutdownTimeout = errors.New("stream: shutdown timeout exceeded")

	// ErrDuplicateSequence is returned by Run when the ordered writer
	// receives two outputs for the same record.
	ErrDuplicateSequence = errors.New("stream: duplicate sequence number")

	// ErrProcessorPanicked is wrapped by a ProcessError when a Processor panics.
	ErrProcessorPanicked = errors.New("stream: processor panicked")
)

// A ProcessError reports the record for which a Processor failed.
type ProcessError struct {
	Sequence uint64
	Record   interface{}
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%v, while processing record %v: %v", e.Err, e.Sequence, e.Record)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// failure records the first error of a run and cancels the run's context.
type failure struct {
	mu     sync.Mutex
	err    error
	cancel context.CancelFunc
}

func (f *failure) fail(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
		f.cancel()
	}
}

func (f *failure) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
