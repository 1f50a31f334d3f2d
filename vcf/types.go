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
	"strings"

	"github.com/exascience/elstream/utils"
)

// The supported VCF file format versions.
const (
	FileFormatVersionLine       = "##fileformat=VCFv4.3"
	fileFormatVersionLinePrefix = "##fileformat=VCFv4."
)

// DefaultHeaderColumns for VCF files.
var DefaultHeaderColumns = []string{"CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// PASS is the filter value of variants that passed all filters.
var PASS = utils.Intern("PASS")

type (
	// Header section of a VCF file.
	Header struct {
		FileFormat string   // the complete ##fileformat line
		Meta       []string // meta-information lines without the leading ##
		Columns    []string
	}

	// Variant line in a VCF file.
	Variant struct {
		Chrom     utils.Symbol
		Pos       int32    // < 0 if unknown
		ID        []string // nil if missing
		Ref       string
		Alt       []string       // nil if missing
		Qual      interface{}    // float64, or nil if missing
		Filter    []utils.Symbol // nil if missing
		Info      []string       // KEY or KEY=VALUE entries, nil if missing
		Genotypes string         // FORMAT and sample columns, "" if absent
	}
)

// NewHeader creates an empty instance.
func NewHeader() *Header {
	return &Header{
		FileFormat: FileFormatVersionLine,
		Columns:    DefaultHeaderColumns,
	}
}

// AddMeta appends a meta-information line, given without the leading ##.
func (hdr *Header) AddMeta(line string) {
	hdr.Meta = append(hdr.Meta, line)
}

// AddStructuredMeta appends a meta-information line of the form
// key=<fields>. ID comes first, followed by Number, Type, and
// Description if present, followed by all other fields.
func (hdr *Header) AddStructuredMeta(key string, fields utils.StringMap) {
	hdr.AddMeta(key + "=<" + fields.Format(",", "=", "ID", "Number", "Type", "Description") + ">")
}

// FindMeta returns the fields of the first structured meta-information
// line with the given key and ID, or nil.
func (hdr *Header) FindMeta(key, id string) utils.StringMap {
	prefix := key + "=<"
	for _, line := range hdr.Meta {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		if fields, err := parseMetaFields(line[len(prefix):]); err == nil && fields["ID"] == id {
			return fields
		}
	}
	return nil
}

// Samples returns the sample names from the column line.
func (hdr *Header) Samples() []string {
	if len(hdr.Columns) <= 9 {
		return nil
	}
	return hdr.Columns[9:]
}

// IsPass is true if the variant passed all filters.
func (variant *Variant) IsPass() bool {
	return len(variant.Filter) == 1 && variant.Filter[0] == PASS
}

// GetInfo returns the value of the given INFO key. Flags have the
// empty string as value.
func (variant *Variant) GetInfo(key string) (value string, found bool) {
	for _, entry := range variant.Info {
		if entry == key {
			return "", true
		}
		if strings.HasPrefix(entry, key) && len(entry) > len(key) && entry[len(key)] == '=' {
			return entry[len(key)+1:], true
		}
	}
	return "", false
}

// SetInfo sets the value of the given INFO key, replacing an existing
// entry in place.
func (variant *Variant) SetInfo(key, value string) {
	entry := key + "=" + value
	for i, e := range variant.Info {
		if e == key || strings.HasPrefix(e, key+"=") {
			variant.Info[i] = entry
			return
		}
	}
	variant.Info = append(variant.Info, entry)
}
