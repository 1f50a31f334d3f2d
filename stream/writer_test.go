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
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type memorySink struct {
	mu      sync.Mutex
	header  bool
	footer  bool
	lines   []string
	events  []string
	failErr error
	gate    chan struct{} // if non-nil, WriteLines waits for it to be closed
}

func (s *memorySink) WriteHeader() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = true
	s.events = append(s.events, "header")
	return nil
}

func (s *memorySink) WriteLines(lines []string) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.lines = append(s.lines, lines...)
	return nil
}

func (s *memorySink) WriteFooter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.footer = true
	s.events = append(s.events, "footer")
	return nil
}

func (s *memorySink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func out(seq uint64, lines ...string) Output {
	return Output{Sequence: seq, Lines: lines}
}

func end(seq uint64) Output {
	return Output{Sequence: seq, End: true}
}

func receiveAll(t *testing.T, w *orderedWriter, outputs ...Output) bool {
	t.Helper()
	for i, o := range outputs {
		done, err := w.receive(o)
		require.NoError(t, err)
		if done {
			require.Equal(t, len(outputs)-1, i, "writer terminated before the last output")
			return true
		}
	}
	return false
}

func TestOrderedWriterInOrder(t *testing.T) {
	sink := &memorySink{}
	w := newOrderedWriter(sink, discardLogger(), DefaultProgressStep)
	require.True(t, receiveAll(t, w, out(1, "a"), out(2, "b"), end(3)))
	require.Equal(t, []string{"a", "b"}, sink.Lines())
	require.Equal(t, uint64(2), w.records)
	require.Zero(t, w.pending())
}

func TestOrderedWriterReordersEarlyArrivals(t *testing.T) {
	sink := &memorySink{}
	w := newOrderedWriter(sink, discardLogger(), DefaultProgressStep)

	require.False(t, receiveAll(t, w, out(3, "c"), out(2, "b1", "b2"), end(5), out(4)))
	require.Empty(t, sink.Lines(), "nothing can be written before the first record arrives")
	require.Equal(t, 4, w.pending())

	require.True(t, receiveAll(t, w, out(1, "a")))
	require.Equal(t, []string{"a", "b1", "b2", "c"}, sink.Lines())
	require.Equal(t, uint64(4), w.records)
	require.Equal(t, uint64(4), w.lines)
	require.Zero(t, w.pending())
}

func TestOrderedWriterIgnoresDuplicateEndMarkers(t *testing.T) {
	sink := &memorySink{}
	w := newOrderedWriter(sink, discardLogger(), DefaultProgressStep)

	require.False(t, receiveAll(t, w, end(3), end(3), out(2, "b"), end(3)))
	require.True(t, receiveAll(t, w, out(1, "a")))
	require.Equal(t, []string{"a", "b"}, sink.Lines())
	require.Zero(t, w.pending())
}

func TestOrderedWriterRejectsDuplicateSequences(t *testing.T) {
	w := newOrderedWriter(&memorySink{}, discardLogger(), DefaultProgressStep)
	_, err := w.receive(out(2, "b"))
	require.NoError(t, err)
	_, err = w.receive(out(2, "b"))
	require.ErrorIs(t, err, ErrDuplicateSequence)

	w = newOrderedWriter(&memorySink{}, discardLogger(), DefaultProgressStep)
	_, err = w.receive(out(1, "a"))
	require.NoError(t, err)
	_, err = w.receive(out(1, "a"))
	require.ErrorIs(t, err, ErrDuplicateSequence)
}

func TestOrderedWriterRejectsMismatchedEndMarkers(t *testing.T) {
	w := newOrderedWriter(&memorySink{}, discardLogger(), DefaultProgressStep)
	_, err := w.receive(end(3))
	require.NoError(t, err)
	_, err = w.receive(end(4))
	require.ErrorIs(t, err, ErrDuplicateSequence)
}

func TestOrderedWriterSinkError(t *testing.T) {
	errFull := errors.New("disk full")
	w := newOrderedWriter(&memorySink{failErr: errFull}, discardLogger(), DefaultProgressStep)
	_, err := w.receive(out(1, "a"))
	require.ErrorIs(t, err, errFull)
}

func TestOrderedWriterStopsWritingWhenCancelled(t *testing.T) {
	sink := &memorySink{}
	w := newOrderedWriter(sink, discardLogger(), DefaultProgressStep)
	ctx, cancel := context.WithCancel(context.Background())
	w.ctx = ctx
	require.False(t, receiveAll(t, w, out(1, "a"), out(3, "c")))
	cancel()
	_, err := w.receive(out(2, "b"))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"a"}, sink.Lines())
	require.Equal(t, uint64(1), w.records)
}

func TestOrderedWriterReportsProgress(t *testing.T) {
	var buf bytes.Buffer
	w := newOrderedWriter(&memorySink{}, log.New(&buf, "", 0), 10)
	outputs := make([]Output, 0, 26)
	for i := uint64(1); i <= 25; i++ {
		outputs = append(outputs, out(i, strconv.FormatUint(i, 10)))
	}
	outputs = append(outputs, end(26))
	require.True(t, receiveAll(t, w, outputs...))
	require.Contains(t, buf.String(), "10 records written")
	require.Contains(t, buf.String(), "20 records written")
	require.NotContains(t, buf.String(), "25 records written")
}

// Any interleaving of outputs and end markers that workers can produce
// yields the lines in sequence order, and leaves the window empty.
func TestOrderedWriterAnyArrivalOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(t, "n")
		ends := rapid.IntRange(1, 8).Draw(t, "ends")

		arrivals := make([]Output, 0, n+ends)
		for i := 1; i <= n; i++ {
			arrivals = append(arrivals, out(uint64(i), strconv.Itoa(i)))
		}
		for i := 0; i < ends; i++ {
			arrivals = append(arrivals, end(uint64(n+1)))
		}
		arrivals = rapid.Permutation(arrivals).Draw(t, "arrivals")

		sink := &memorySink{}
		w := newOrderedWriter(sink, discardLogger(), DefaultProgressStep)
		done := false
		for _, o := range arrivals {
			var err error
			if done, err = w.receive(o); err != nil {
				t.Fatal(err)
			}
			if done {
				break
			}
		}
		if !done {
			t.Fatal("writer did not terminate")
		}
		lines := sink.Lines()
		if len(lines) != n {
			t.Fatalf("%v lines written, expected %v", len(lines), n)
		}
		for i, line := range lines {
			if line != strconv.Itoa(i+1) {
				t.Fatalf("line %v is %v", i, line)
			}
		}
		if p := w.pending(); p != 0 {
			t.Fatalf("%v outputs left in the reorder window", p)
		}
	})
}
