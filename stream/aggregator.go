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

import "context"

/*
aggregator owns the Accumulator of a run. All mutations of the
Accumulator go through the single goroutine that executes run, so the
Accumulator needs no locking.

Closing the values channel is the end-of-stream signal. Once all
values have been folded, run closes done.
*/
type aggregator[A any] struct {
	values      chan A
	accumulator Accumulator[A]
	count       uint64
	done        chan struct{}
}

func newAggregator[A any](accumulator Accumulator[A], capacity int) *aggregator[A] {
	return &aggregator[A]{
		values:      make(chan A, capacity),
		accumulator: accumulator,
		done:        make(chan struct{}),
	}
}

func (a *aggregator[A]) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case value, ok := <-a.values:
			if !ok {
				return
			}
			if a.accumulator != nil {
				a.accumulator.Add(value)
			}
			a.count++
		}
	}
}
