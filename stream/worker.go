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
)

type worker[R, A any] struct {
	source    *Source[R]
	processor Processor[R, A]
	outputs   chan<- Output
	analyses  chan<- A

	// closed when the ordered writer has terminated
	writerDone <-chan struct{}
}

// run pulls records until it sees an end marker. Each worker has to
// see its own end marker; workers do not signal each other.
func (w *worker[R, A]) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, err := w.source.Next()
		if err != nil {
			return err
		}
		if item.End {
			// The writer may already have terminated on another
			// worker's end marker, in which case nobody receives this one.
			select {
			case w.outputs <- Output{Sequence: item.Sequence, End: true}:
			case <-w.writerDone:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}
		result, err := w.process(item)
		if err != nil {
			return err
		}
		select {
		case w.outputs <- Output{Sequence: item.Sequence, Lines: result.Lines}:
		case <-ctx.Done():
			return ctx.Err()
		}
		if result.HasAnalysis {
			select {
			case w.analyses <- result.Analysis:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (w *worker[R, A]) process(item Item[R]) (result Result[A], err error) {
	defer func() {
		if x := recover(); x != nil {
			err = &ProcessError{
				Sequence: item.Sequence,
				Record:   item.Record,
				Err:      fmt.Errorf("%w: %v", ErrProcessorPanicked, x),
			}
		}
	}()
	if result, err = w.processor.Process(item.Record); err != nil {
		return result, &ProcessError{Sequence: item.Sequence, Record: item.Record, Err: err}
	}
	return result, nil
}
