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

package vcf

import (
	"fmt"
	"strings"

	"github.com/exascience/elstream/internal"
	"github.com/exascience/elstream/stream"
)

// A Tally is the analysis value of a single input variant.
type Tally struct {
	Type VariantType
	Pass bool
	Kept bool
}

// A Processor applies a sequence of filters to each variant. It
// implements stream.Processor.
type Processor struct {
	filters []VariantFilter
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
		if vf := f(header); vf != nil {
			p.filters = append(p.filters, vf)
		}
	}
	return p
}

// Process implements the corresponding method of stream.Processor.
func (p *Processor) Process(variant *Variant) (stream.Result[Tally], error) {
	tally := Tally{Type: Classify(variant), Pass: variant.IsPass()}
	for _, f := range p.filters {
		if !f(variant) {
			return stream.Analyzed(tally), nil
		}
	}
	tally.Kept = true
	line := internal.FormatString(variant.Format)
	return stream.Analyzed(tally, line), nil
}

// Stats summarizes the variants of a run. It implements
// stream.Accumulator.
type Stats struct {
	Input, Output, Pass uint64
	Types               [numVariantTypes]uint64
}

// Add implements the corresponding method of stream.Accumulator.
func (s *Stats) Add(tally Tally) {
	s.Input++
	if tally.Kept {
		s.Output++
	}
	if tally.Pass {
		s.Pass++
	}
	s.Types[tally.Type]++
}

func (s *Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v variants read, %v written, %v PASS", s.Input, s.Output, s.Pass)
	for t := Reference; t < numVariantTypes; t++ {
		fmt.Fprintf(&b, ", %v %v", s.Types[t], t)
	}
	return b.String()
}
