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

// Package intervals provides sorted, non-overlapping genomic
// intervals for fast region lookups.
package intervals

import (
	"sort"

	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"

	"github.com/exascience/elstream/bed"
	"github.com/exascience/elstream/utils"
)

// Interval is a 0-based range of positions. End is exclusive.
type Interval struct {
	Start, End int32
}

// SortByStart sorts a slice of Interval by Start position.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

type stableIntervalSorter []Interval

func (s stableIntervalSorter) SequentialSort(i, j int) {
	SortByStart(s[i:j])
}

func (s stableIntervalSorter) NewTemp() psort.StableSorter {
	return stableIntervalSorter(make([]Interval, len(s)))
}

func (s stableIntervalSorter) Len() int {
	return len(s)
}

func (s stableIntervalSorter) Less(i, j int) bool {
	return s[i].Start < s[j].Start
}

func (s stableIntervalSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(stableIntervalSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelSortByStart sorts a slice of Interval by Start position
// using a parallel stable sort.
func ParallelSortByStart(intervals []Interval) {
	psort.StableSort(stableIntervalSorter(intervals))
}

// Extend grows interval to also cover other if the two overlap or
// touch, and reports whether they did. other.Start must not be smaller
// than interval.Start.
func (interval *Interval) Extend(other Interval) bool {
	if other.Start > interval.End {
		return false
	}
	if other.End > interval.End {
		interval.End = other.End
	}
	return true
}

// Flatten merges overlapping and adjacent intervals. intervals must be
// sorted by Start. The result is sorted by Start, contains no two
// intervals that overlap or touch, and shares memory with intervals.
func Flatten(intervals []Interval) []Interval {
	for i, n := 0, len(intervals)-1; i < n; i++ {
		if intervals[i].Extend(intervals[i+1]) {
			n++
			for j := i + 1; j < n; j++ {
				if !intervals[i].Extend(intervals[j]) {
					i++
					intervals[i] = intervals[j]
				}
			}
			return intervals[:i+1]
		}
	}
	return intervals
}

const parallelFlattenGrainSize = 0x1000

// ParallelFlatten is Flatten with a parallel divide-and-conquer
// algorithm.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < parallelFlattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) >> 1
	left, right := intervals[:half], intervals[half:]
	parallel.Do(
		func() { left = ParallelFlatten(left) },
		func() { right = ParallelFlatten(right) },
	)
	for len(right) > 0 && left[len(left)-1].Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// Overlap determines whether the range from start to end (exclusive)
// shares at least one position with any of the given intervals, which
// must be flattened.
func Overlap(intervals []Interval, start, end int32) bool {
	for left, right := 0, len(intervals)-1; left <= right; {
		mid := (left + right) / 2
		switch {
		case intervals[mid].Start >= end:
			right = mid - 1
		case intervals[mid].End <= start:
			left = mid + 1
		default:
			return true
		}
	}
	return false
}

// Intersect returns the intervals that share at least one position
// with the range from start to end (exclusive). intervals must be
// flattened. The result shares memory with intervals.
func Intersect(intervals []Interval, start, end int32) []Interval {
	n := len(intervals)
	from := sort.Search(n, func(i int) bool { return intervals[i].End > start })
	to := sort.Search(n, func(i int) bool { return intervals[i].Start >= end })
	if to < from {
		to = from
	}
	return intervals[from:to]
}

// Regions maps chromosomes to flattened intervals.
type Regions map[utils.Symbol][]Interval

// Overlap determines whether the range from start to end (exclusive)
// on chrom overlaps with any of the regions.
func (regions Regions) Overlap(chrom utils.Symbol, start, end int32) bool {
	return Overlap(regions[chrom], start, end)
}

// Len returns the number of intervals in all chromosomes.
func (regions Regions) Len() (n int) {
	for _, intervals := range regions {
		n += len(intervals)
	}
	return n
}

// FromBed returns the flattened intervals of the BED regions. Empty
// regions are skipped.
func FromBed(b *bed.Bed) Regions {
	regions := make(Regions, len(b.RegionMap))
	for chrom, entries := range b.RegionMap {
		intervals := make([]Interval, 0, len(entries))
		for _, entry := range entries {
			if entry.End > entry.Start {
				intervals = append(intervals, Interval{Start: entry.Start, End: entry.End})
			}
		}
		if len(intervals) == 0 {
			continue
		}
		ParallelSortByStart(intervals)
		regions[chrom] = ParallelFlatten(intervals)
	}
	return regions
}

// FromBedFile returns the flattened intervals of a BED file.
func FromBedFile(filename string) (Regions, error) {
	b, err := bed.ParseBed(filename)
	if err != nil {
		return nil, err
	}
	return FromBed(b), nil
}
