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

package intervals

import (
	"bufio"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/exascience/elstream/bed"
	"github.com/exascience/elstream/utils"
)

func makeLargeIntervalsSlice() (result []Interval) {
	result = make([]Interval, 0x30000)
	result[0].Start = 0
	result[0].End = 3
	for i := 1; i < len(result); i++ {
		if rand.Intn(100) < 20 {
			result[i].Start = result[i-1].End - 1
		} else {
			result[i].Start = result[i-1].End + 1
		}
		result[i].End = result[i].Start + 3
	}
	return result
}

func checkFlattened(t *testing.T, intervals []Interval) {
	t.Helper()
	for i, interval := range intervals {
		require.Less(t, interval.Start, interval.End)
		if i > 0 {
			require.Greater(t, interval.Start, intervals[i-1].End)
		}
	}
}

func testFlatten(t *testing.T, flatten func([]Interval) []Interval) {
	require.Empty(t, flatten(nil))
	require.Equal(t, []Interval{{2, 4}}, flatten([]Interval{{2, 3}, {3, 4}}))
	require.Equal(t, []Interval{{2, 3}, {4, 5}}, flatten([]Interval{{2, 3}, {4, 5}}))
	require.Equal(t, []Interval{{2, 6}}, flatten([]Interval{{2, 4}, {3, 5}, {4, 6}}))
	require.Equal(t, []Interval{{2, 6}, {7, 9}}, flatten([]Interval{{2, 4}, {3, 5}, {4, 6}, {7, 9}}))
	require.Equal(t, []Interval{{2, 4}, {5, 7}}, flatten([]Interval{{2, 3}, {3, 4}, {5, 6}, {6, 7}}))
	require.Equal(t, []Interval{{2, 7}}, flatten([]Interval{{2, 3}, {2, 5}, {2, 4}, {2, 3}, {2, 6}, {2, 7}}))
	checkFlattened(t, flatten(makeLargeIntervalsSlice()))
}

func TestFlatten(t *testing.T) {
	testFlatten(t, Flatten)
}

func TestParallelFlatten(t *testing.T) {
	testFlatten(t, ParallelFlatten)
}

func TestParallelFlattenMatchesFlatten(t *testing.T) {
	large := makeLargeIntervalsSlice()
	expected := Flatten(append([]Interval(nil), large...))
	require.Equal(t, expected, ParallelFlatten(large))
}

func TestParallelSortByStart(t *testing.T) {
	intervals := makeLargeIntervalsSlice()
	rand.Shuffle(len(intervals), func(i, j int) { intervals[i], intervals[j] = intervals[j], intervals[i] })
	ParallelSortByStart(intervals)
	for i := 1; i < len(intervals); i++ {
		require.LessOrEqual(t, intervals[i-1].Start, intervals[i].Start)
	}
}

func BenchmarkFlatten(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		intervals := makeLargeIntervalsSlice()
		b.StartTimer()
		_ = Flatten(intervals)
	}
}

func BenchmarkParallelFlatten(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		intervals := makeLargeIntervalsSlice()
		b.StartTimer()
		_ = ParallelFlatten(intervals)
	}
}

func TestOverlap(t *testing.T) {
	ivals := []Interval{{2, 4}, {6, 8}}
	require.False(t, Overlap(nil, 2, 3))
	require.False(t, Overlap([]Interval{{1, 3}, {7, 8}}, 4, 6))
	require.True(t, Overlap(ivals, 1, 3))
	require.True(t, Overlap(ivals, 2, 3))
	require.False(t, Overlap(ivals, 4, 6), "end positions are exclusive")
	require.False(t, Overlap(ivals, 0, 2))
	require.False(t, Overlap(ivals, 8, 9))
	require.True(t, Overlap(ivals, 3, 7))
	require.True(t, Overlap(ivals, 5, 7))
	require.True(t, Overlap(ivals, 7, 8))
	require.True(t, Overlap(ivals, 1, 10))
}

func TestIntersect(t *testing.T) {
	ivals := []Interval{{2, 4}, {6, 8}}
	require.Empty(t, Intersect(nil, 2, 3))
	require.Empty(t, Intersect([]Interval{{1, 3}, {7, 8}}, 4, 6))
	require.Empty(t, Intersect(ivals, 4, 6))
	require.Empty(t, Intersect(ivals, 1, 2))
	require.Equal(t, []Interval{{2, 4}}, Intersect(ivals, 1, 3))
	require.Equal(t, []Interval{{2, 4}}, Intersect(ivals, 3, 6))
	require.Equal(t, []Interval{{2, 4}, {6, 8}}, Intersect(ivals, 3, 7))
	require.Equal(t, []Interval{{6, 8}}, Intersect(ivals, 5, 7))
	require.Equal(t, []Interval{{2, 4}, {6, 8}}, Intersect(ivals, 1, 10))
}

// Overlap and Intersect agree with a position-by-position check.
func TestOverlapMatchesPositions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		ivals := make([]Interval, n)
		for i := range ivals {
			start := rapid.Int32Range(0, 200).Draw(t, "start")
			ivals[i] = Interval{Start: start, End: start + rapid.Int32Range(1, 20).Draw(t, "length")}
		}
		SortByStart(ivals)
		ivals = Flatten(ivals)

		covered := make(map[int32]bool)
		for _, ival := range ivals {
			for pos := ival.Start; pos < ival.End; pos++ {
				covered[pos] = true
			}
		}
		start := rapid.Int32Range(0, 230).Draw(t, "queryStart")
		end := start + rapid.Int32Range(1, 20).Draw(t, "queryLength")
		expected := false
		for pos := start; pos < end; pos++ {
			expected = expected || covered[pos]
		}
		if Overlap(ivals, start, end) != expected {
			t.Fatalf("Overlap(%v, %v, %v) != %v", ivals, start, end, expected)
		}
		if (len(Intersect(ivals, start, end)) > 0) != expected {
			t.Fatalf("Intersect(%v, %v, %v) disagrees with %v", ivals, start, end, expected)
		}
	})
}

func TestFromBed(t *testing.T) {
	b, err := bed.Parse(bufio.NewReader(strings.NewReader(
		"chr1\t100\t200\nchr1\t150\t250\nchr1\t300\t300\nchr1\t10\t20\nchr2\t5\t5\n")))
	require.NoError(t, err)
	regions := FromBed(b)
	require.Equal(t, []Interval{{10, 20}, {100, 250}}, regions[utils.Intern("chr1")])
	require.NotContains(t, regions, utils.Intern("chr2"))
	require.Equal(t, 2, regions.Len())
	require.True(t, regions.Overlap(utils.Intern("chr1"), 249, 260))
	require.False(t, regions.Overlap(utils.Intern("chr1"), 250, 260))
	require.False(t, regions.Overlap(utils.Intern("chr3"), 0, 1000))
}
