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
	"fmt"
	"io"
	"sync"
)

// A Source numbers the records of a RecordReader in input order. It
// is safe for concurrent use by multiple workers.
type Source[R any] struct {
	mu       sync.Mutex
	reader   RecordReader[R]
	sequence uint64
	done     bool
	err      error
}

// NewSource returns a Source for the given reader.
func NewSource[R any](reader RecordReader[R]) *Source[R] {
	return &Source[R]{reader: reader}
}

// Next returns the next record, numbered from 1 upwards. Once the
// reader is exhausted, Next returns an end marker on every call. All
// end markers carry the same sequence number, one past the last
// record. A read error is returned to the caller that encountered it,
// and to all subsequent callers.
func (s *Source[R]) Next() (item Item[R], err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return item, s.err
	}
	if s.done {
		return Item[R]{Sequence: s.sequence + 1, End: true}, nil
	}
	record, err := s.reader.Read()
	switch {
	case err == io.EOF:
		s.done = true
		return Item[R]{Sequence: s.sequence + 1, End: true}, nil
	case err != nil:
		s.err = fmt.Errorf("%w, while reading record %v", err, s.sequence+1)
		return item, s.err
	}
	s.sequence++
	return Item[R]{Sequence: s.sequence, Record: record}, nil
}

// Count returns the number of records read so far.
func (s *Source[R]) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence
}

// SliceReader is a RecordReader over an in-memory slice of records.
type SliceReader[R any] struct {
	records []R
	index   int
}

// NewSliceReader returns a RecordReader that produces the given records.
func NewSliceReader[R any](records []R) *SliceReader[R] {
	return &SliceReader[R]{records: records}
}

// Read implements the RecordReader interface.
func (r *SliceReader[R]) Read() (record R, err error) {
	if r.index >= len(r.records) {
		return record, io.EOF
	}
	record = r.records[r.index]
	r.index++
	return record, nil
}
