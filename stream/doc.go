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

/*
Package stream implements an ordered parallel map with a side
aggregation channel, for arbitrarily large sequential inputs.

An Engine reads records from a RecordReader through a Source that
numbers them in input order. A fixed number of workers pull records
from the Source, apply a Processor to each of them, and publish the
resulting lines, tagged with their sequence numbers, on a bounded
output channel. A single ordered writer restores the original input
order using a reorder window and writes the lines to a Sink. Per-record
analysis values go through a second bounded channel to a single
aggregator goroutine that folds them into an Accumulator, so that the
Accumulator itself never needs any locking.

Any error in the source, a processor, or the sink aborts the whole
run. There are no retries and no partial-success mode: either a run
reaches the Finalized state, or it is Aborted.
*/
package stream
