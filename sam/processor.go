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

package sam

import (
	"fmt"

	"github.com/exascience/elstream/internal"
	"github.com/exascience/elstream/stream"
)

// A Tally is the analysis value of a single input alignment.
type Tally struct {
	Unmapped  bool
	Duplicate bool
	Kept      bool
	MAPQ      byte
}

// A Processor applies a sequence of filters to each alignment. It
// implements stream.Processor.
type Processor struct {
	filters []AlignmentFilter
}

// NewProcessor instantiates the given filters for the header. The
// filters may modify the header, so the header must only be written
// afterwards.
func NewProcessor(header *Header, filters ...Filter) *Processor {
	p := &Processor{}
	for _, f := range filters {
		if f == nil {
			continue
		}
		if af := f(header); af != nil {
			p.filters = append(p.filters, af)
		}
	}
	return p
}

// Process implements the corresponding method of stream.Processor.
func (p *Processor) Process(aln *Alignment) (stream.Result[Tally], error) {
	tally := Tally{Unmapped: aln.IsUnmapped(), Duplicate: aln.IsDuplicate(), MAPQ: aln.MAPQ}
	for _, f := range p.filters {
		if !f(aln) {
			return stream.Analyzed(tally), nil
		}
	}
	tally.Kept = true
	return stream.Analyzed(tally, internal.FormatString(aln.Format)), nil
}

// Stats summarizes the alignments of a run. It implements
// stream.Accumulator.
type Stats struct {
	Reads, Kept, Unmapped, Duplicates uint64

	// MAPQSum is the sum of the available MAPQ values of mapped reads.
	MAPQSum, MAPQCount uint64
}

// Add implements the corresponding method of stream.Accumulator.
func (s *Stats) Add(tally Tally) {
	s.Reads++
	if tally.Kept {
		s.Kept++
	}
	if tally.Duplicate {
		s.Duplicates++
	}
	if tally.Unmapped {
		s.Unmapped++
	} else if tally.MAPQ != 255 {
		s.MAPQSum += uint64(tally.MAPQ)
		s.MAPQCount++
	}
}

// MeanMAPQ returns the mean mapping quality of the mapped reads.
func (s *Stats) MeanMAPQ() float64 {
	if s.MAPQCount == 0 {
		return 0
	}
	return float64(s.MAPQSum) / float64(s.MAPQCount)
}

func (s *Stats) String() string {
	return fmt.Sprintf("%v reads read, %v written, %v unmapped, %v duplicates, mean MAPQ %.2f",
		s.Reads, s.Kept, s.Unmapped, s.Duplicates, s.MeanMAPQ())
}
