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
	"strconv"

	"github.com/willf/bitset"

	"github.com/exascience/elstream/intervals"
	"github.com/exascience/elstream/utils"
)

type (
	// An AlignmentFilter receives an Alignment which it can modify. It
	// returns true if the alignment should be kept, and false if the
	// alignment should be removed.
	AlignmentFilter func(*Alignment) bool

	// A Filter receives a Header, which it can modify, and returns an
	// AlignmentFilter or nil.
	Filter func(*Header) AlignmentFilter
)

/*
A filter for removing unmapped sam-alignment instances, based on FLAG.
*/
func FilterUnmappedReads(_ *Header) AlignmentFilter {
	return func(aln *Alignment) bool { return !aln.IsUnmapped() }
}

/*
A filter for removing duplicate sam-alignment instances, based on
FLAG.
*/
func FilterDuplicateReads(_ *Header) AlignmentFilter {
	return func(aln *Alignment) bool { return !aln.IsDuplicate() }
}

/*
A filter for removing secondary and supplementary alignments, so that
each read is represented by its primary alignment only.
*/
func FilterSecondaryReads(_ *Header) AlignmentFilter {
	return func(aln *Alignment) bool { return !aln.IsSecondary() && !aln.IsSupplementary() }
}

/*
FilterMappingQuality returns a filter for removing alignments with a
MAPQ below the given minimum. A MAPQ of 255 means the mapping quality
is not available, and such alignments are removed as well.
*/
func FilterMappingQuality(minimum byte) Filter {
	return func(_ *Header) AlignmentFilter {
		return func(aln *Alignment) bool { return aln.MAPQ != 255 && aln.MAPQ >= minimum }
	}
}

/*
KeepReferences returns a filter that only keeps alignments on the
given reference sequences. Names that are not in the @SQ dictionary
are ignored. Alignments without reference sequence are removed.
*/
func KeepReferences(names ...string) Filter {
	return func(header *Header) AlignmentFilter {
		index := header.ReferenceIndex()
		keep := bitset.New(uint(len(header.SQ)))
		for _, name := range utils.InternAll(names...) {
			if i, found := index[name]; found {
				keep.Set(uint(i))
			}
		}
		return func(aln *Alignment) bool {
			i, found := index[aln.RNAME]
			return found && keep.Test(uint(i))
		}
	}
}

/*
KeepRegions returns a filter that only keeps alignments whose
reference span overlaps with at least one of the given regions.
Alignments without reference position are removed.
*/
func KeepRegions(regions intervals.Regions) Filter {
	return func(_ *Header) AlignmentFilter {
		return func(aln *Alignment) bool {
			if aln.RNAME == Star || aln.POS < 1 {
				return false
			}
			start := aln.POS - 1
			return regions.Overlap(aln.RNAME, start, start+aln.ReferenceLength())
		}
	}
}

/*
AddPGLine returns a filter for adding a @PG line to a Header, as the
last entry in the program chain. If the ID is already taken, a
numeric suffix is added.
*/
func AddPGLine(newPG utils.StringMap) Filter {
	return func(header *Header) AlignmentFilter {
		id := newPG["ID"]
		for n := 1; utils.Find(header.PG, func(entry utils.StringMap) bool { return entry["ID"] == id }) >= 0; n++ {
			id = newPG["ID"] + "." + strconv.Itoa(n)
		}
		newPG["ID"] = id
		for _, pg := range header.PG {
			previousID := pg["ID"]
			if utils.Find(header.PG, func(entry utils.StringMap) bool { return entry["PP"] == previousID }) < 0 {
				newPG["PP"] = previousID
				break
			}
		}
		header.PG = append(header.PG, newPG)
		return nil
	}
}
