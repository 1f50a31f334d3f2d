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
	"github.com/exascience/elstream/intervals"
	"github.com/exascience/elstream/utils"
)

type (
	// A VariantFilter receives a Variant which it can modify. It
	// returns true if the variant should be kept, and false if the
	// variant should be removed.
	VariantFilter func(*Variant) bool

	// A Filter receives a Header, which it can modify, and returns a
	// VariantFilter or nil.
	Filter func(*Header) VariantFilter
)

// VariantType classifies a variant by its alternative alleles.
type VariantType int

// The variant types.
const (
	Reference VariantType = iota // no alternative allele
	SNV
	MNP
	Indel
	Mixed
	Symbolic
	numVariantTypes
)

func (t VariantType) String() string {
	switch t {
	case Reference:
		return "REF"
	case SNV:
		return "SNV"
	case MNP:
		return "MNP"
	case Indel:
		return "INDEL"
	case Mixed:
		return "MIXED"
	case Symbolic:
		return "SYMBOLIC"
	default:
		return "UNKNOWN"
	}
}

func isSymbolic(alt string) bool {
	if alt == "*" || alt == "." || alt == "" {
		return true
	}
	for i := 0; i < len(alt); i++ {
		switch alt[i] {
		case '<', '[', ']':
			return true
		}
	}
	return false
}

// Classify determines the VariantType of a variant.
func Classify(variant *Variant) VariantType {
	result := Reference
	for _, alt := range variant.Alt {
		var t VariantType
		switch {
		case isSymbolic(alt):
			t = Symbolic
		case len(alt) != len(variant.Ref):
			t = Indel
		case len(alt) == 1:
			t = SNV
		default:
			t = MNP
		}
		if result == Reference {
			result = t
		} else if result != t {
			return Mixed
		}
	}
	return result
}

/*
PassOnly is a filter for removing variants that did not pass all
filters, including variants with a missing FILTER column.
*/
func PassOnly(_ *Header) VariantFilter {
	return (*Variant).IsPass
}

/*
MinQuality returns a filter for removing variants with a QUAL value
below the given minimum, or without QUAL value.
*/
func MinQuality(minimum float64) Filter {
	return func(_ *Header) VariantFilter {
		return func(variant *Variant) bool {
			qual, ok := variant.Qual.(float64)
			return ok && qual >= minimum
		}
	}
}

/*
KeepChromosomes returns a filter that only keeps variants on the given
chromosomes. It also removes the ##contig lines for other chromosomes
from the header.
*/
func KeepChromosomes(chroms ...string) Filter {
	return func(header *Header) VariantFilter {
		keep := make(map[utils.Symbol]bool, len(chroms))
		for _, chrom := range utils.InternAll(chroms...) {
			keep[chrom] = true
		}
		meta := header.Meta[:0]
		for _, line := range header.Meta {
			if fields := contigFields(line); fields != nil && !keep[utils.Intern(fields["ID"])] {
				continue
			}
			meta = append(meta, line)
		}
		header.Meta = meta
		return func(variant *Variant) bool { return keep[variant.Chrom] }
	}
}

/*
KeepRegions returns a filter that only keeps variants whose reference
allele overlaps with at least one of the given regions.
*/
func KeepRegions(regions intervals.Regions) Filter {
	return func(_ *Header) VariantFilter {
		return func(variant *Variant) bool {
			start := variant.Pos - 1
			length := int32(len(variant.Ref))
			if length == 0 {
				length = 1
			}
			return regions.Overlap(variant.Chrom, start, start+length)
		}
	}
}

func contigFields(line string) utils.StringMap {
	const prefix = "contig=<"
	if len(line) <= len(prefix) || line[:len(prefix)] != prefix {
		return nil
	}
	fields, err := parseMetaFields(line[len(prefix):])
	if err != nil {
		return nil
	}
	return fields
}

/*
RemoveIndels is a filter for removing variants with at least one
insertion or deletion allele.
*/
func RemoveIndels(_ *Header) VariantFilter {
	return func(variant *Variant) bool {
		for _, alt := range variant.Alt {
			if !isSymbolic(alt) && len(alt) != len(variant.Ref) {
				return false
			}
		}
		return true
	}
}

/*
RemoveMultiAllelic is a filter for removing variants with more than
one alternative allele.
*/
func RemoveMultiAllelic(_ *Header) VariantFilter {
	return func(variant *Variant) bool { return len(variant.Alt) <= 1 }
}

// VariantTypeKey is the INFO key added by AnnotateVariantType.
const VariantTypeKey = "VARTYPE"

/*
AnnotateVariantType is a filter that adds the VariantType of each
variant as VARTYPE entry to its INFO column. It never removes
variants.
*/
func AnnotateVariantType(header *Header) VariantFilter {
	if header.FindMeta("INFO", VariantTypeKey) == nil {
		header.AddStructuredMeta("INFO", utils.StringMap{
			"ID":          VariantTypeKey,
			"Number":      "1",
			"Type":        "String",
			"Description": "\"Variant type: REF, SNV, MNP, INDEL, MIXED, or SYMBOLIC\"",
		})
	}
	return func(variant *Variant) bool {
		variant.SetInfo(VariantTypeKey, Classify(variant).String())
		return true
	}
}
