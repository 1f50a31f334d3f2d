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
	"log"
	"time"

	"github.com/gammazero/deque"

	"github.com/exascience/elstream/internal"
)

/*
orderedWriter restores input order for the outputs produced by the
workers.

The reorder window holds one slot per sequence number, starting at
expected. A nil slot is an output that has not arrived yet. Outputs
only leave the window from the front, so an output is only written
once all outputs with smaller sequence numbers have been written.

All end markers carry the same sequence number, one past the last
record. The first one that reaches the front of the window
terminates the writer. Later end markers are recognized and ignored.
*/
type orderedWriter struct {
	ctx      context.Context // writing stops once it is done
	sink     Sink
	logger   *log.Logger
	step     uint64
	expected uint64
	window   deque.Deque[*Output]
	end      uint64 // sequence number of the end markers, 0 if none seen yet
	records  uint64
	lines    uint64
	start    time.Time
	finished bool
}

func newOrderedWriter(sink Sink, logger *log.Logger, step uint64) *orderedWriter {
	return &orderedWriter{
		ctx:      context.Background(),
		sink:     sink,
		logger:   logger,
		step:     step,
		expected: 1,
	}
}

// receive adds a single output to the reorder window and writes the
// contiguous prefix of the window. It returns true once the end
// marker has been reached.
func (w *orderedWriter) receive(output Output) (bool, error) {
	if output.End {
		if w.end == 0 {
			w.end = output.Sequence
		} else if w.end != output.Sequence {
			return false, fmt.Errorf("%w: end markers at %v and %v", ErrDuplicateSequence, w.end, output.Sequence)
		} else {
			return w.finished, nil
		}
	}
	if output.Sequence < w.expected {
		return false, fmt.Errorf("%w: %v already written", ErrDuplicateSequence, output.Sequence)
	}
	offset := int(output.Sequence - w.expected)
	for w.window.Len() <= offset {
		w.window.PushBack(nil)
	}
	if w.window.At(offset) != nil {
		return false, fmt.Errorf("%w: %v received twice", ErrDuplicateSequence, output.Sequence)
	}
	w.window.Set(offset, &output)
	return w.flush()
}

func (w *orderedWriter) flush() (bool, error) {
	for w.window.Len() > 0 && w.window.Front() != nil {
		next := w.window.PopFront()
		if next.End {
			w.finished = true
			if internal.PedanticMode && w.window.Len() > 0 {
				return true, fmt.Errorf("%v outputs after the end marker at %v", w.window.Len(), next.Sequence)
			}
			return true, nil
		}
		if len(next.Lines) > 0 {
			if err := w.ctx.Err(); err != nil {
				return false, err
			}
			if err := w.sink.WriteLines(next.Lines); err != nil {
				return false, fmt.Errorf("%w, while writing record %v", err, next.Sequence)
			}
		}
		w.expected++
		w.records++
		w.lines += uint64(len(next.Lines))
		if w.records%w.step == 0 {
			w.progress()
		}
	}
	return false, nil
}

func (w *orderedWriter) progress() {
	elapsed := time.Since(w.start)
	rate := float64(w.records) / elapsed.Seconds()
	w.logger.Printf("%v records written in %v (%.0f records/s)", w.records, elapsed.Round(time.Millisecond), rate)
}

// pending returns the number of outputs that are still held in the
// reorder window.
func (w *orderedWriter) pending() (n int) {
	for i := 0; i < w.window.Len(); i++ {
		if w.window.At(i) != nil {
			n++
		}
	}
	return n
}

// run receives outputs until the end marker has been written, or
// until ctx is done. No lines are written to the sink after ctx is
// done. It does not drain the outputs channel after the
// end marker; the remaining outputs can only be further end markers.
func (w *orderedWriter) run(ctx context.Context, outputs <-chan Output) error {
	w.ctx = ctx
	w.start = time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case output := <-outputs:
			done, err := w.receive(output)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}
