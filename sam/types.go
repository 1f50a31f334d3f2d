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
	"strings"

	"github.com/exascience/elstream/utils"
)

// FileFormatVersion is the SAM version written in new @HD lines.
const FileFormatVersion = "1.6"

// Flags in the FLAG field of an Alignment.
const (
	Multiple      = 0x1
	Proper        = 0x2
	Unmapped      = 0x4
	NextUnmapped  = 0x8
	Reversed      = 0x10
	NextReversed  = 0x20
	First         = 0x40
	Last          = 0x80
	Secondary     = 0x100
	QCFailed      = 0x200
	Duplicate     = 0x400
	Supplementary = 0x800
)

// Star is the RNAME of alignments without reference sequence.
var Star = utils.Intern("*")

// Header of a SAM file.
type Header struct {
	HD         utils.StringMap
	SQ, RG, PG []utils.StringMap
	CO         []string
	Other      []string // lines with user-defined record types, unparsed
}

// NewHeader creates an empty instance.
func NewHeader() *Header { return &Header{} }

// EnsureHD returns the @HD record, creating it if necessary.
func (hdr *Header) EnsureHD() utils.StringMap {
	if hdr.HD == nil {
		hdr.HD = utils.StringMap{"VN": FileFormatVersion}
	}
	return hdr.HD
}

// HD_SO returns the sorting order, or "unknown".
func (hdr *Header) HD_SO() string {
	if sortingOrder, found := hdr.HD["SO"]; found {
		return sortingOrder
	}
	return "unknown"
}

// SQ_LN returns the length of a reference sequence.
func SQ_LN(record utils.StringMap) (int32, error) {
	ln, err := strconv.ParseInt(record["LN"], 10, 32)
	return int32(ln), err
}

// ReferenceIndex maps reference sequence names to their index in the
// @SQ dictionary.
func (hdr *Header) ReferenceIndex() map[utils.Symbol]int {
	index := make(map[utils.Symbol]int, len(hdr.SQ))
	for i, sq := range hdr.SQ {
		index[utils.Intern(sq["SN"])] = i
	}
	return index
}

// Alignment is a single SAM record.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME utils.Symbol
	POS   int32
	MAPQ  byte
	Rest  string // CIGAR up to and including the optional fields
}

// IsUnmapped checks the Unmapped flag.
func (aln *Alignment) IsUnmapped() bool { return (aln.FLAG & Unmapped) != 0 }

// IsDuplicate checks the Duplicate flag.
func (aln *Alignment) IsDuplicate() bool { return (aln.FLAG & Duplicate) != 0 }

// IsSecondary checks the Secondary flag.
func (aln *Alignment) IsSecondary() bool { return (aln.FLAG & Secondary) != 0 }

// IsSupplementary checks the Supplementary flag.
func (aln *Alignment) IsSupplementary() bool { return (aln.FLAG & Supplementary) != 0 }

// CIGAR returns the CIGAR string of the alignment.
func (aln *Alignment) CIGAR() string {
	if i := strings.IndexByte(aln.Rest, '\t'); i >= 0 {
		return aln.Rest[:i]
	}
	return aln.Rest
}

/*
ReferenceLength returns the number of reference positions covered by
the alignment, based on the M, D, N, = and X operations of its CIGAR
string. Alignments without (valid) CIGAR string cover one position.
*/
func (aln *Alignment) ReferenceLength() int32 {
	var length, n int32
	for _, c := range []byte(aln.CIGAR()) {
		switch {
		case c >= '0' && c <= '9':
			n = n*10 + int32(c-'0')
		case c == 'M' || c == 'D' || c == 'N' || c == '=' || c == 'X':
			length += n
			n = 0
		default:
			n = 0
		}
	}
	if length == 0 {
		return 1
	}
	return length
}
