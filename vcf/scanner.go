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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/exascience/elstream/utils"
)

var errMissingTab = errors.New("missing tabulator in VCF data line")

// A StringScanner can be used to scan/parse strings representing
// lines in VCF files.
//
// The zero StringScanner is valid and empty.
type StringScanner struct {
	index int
	data  string
	err   error
}

// Reset resets the scanner, and initializes it with the given string.
func (sc *StringScanner) Reset(s string) {
	sc.index = 0
	sc.data = s
	sc.err = nil
}

// Len returns the number of ASCII characters that still need to be
// scanned/parsed.
func (sc *StringScanner) Len() int {
	return len(sc.data) - sc.index
}

// Err returns the first error encountered while scanning.
func (sc *StringScanner) Err() error {
	return sc.err
}

func (sc *StringScanner) setErr(err error) {
	if sc.err == nil {
		sc.err = err
	}
}

func (sc *StringScanner) readUntilByte(c byte) (s string, found bool) {
	start := sc.index
	if i := strings.IndexByte(sc.data[start:], c); i >= 0 {
		sc.index = start + i + 1
		return sc.data[start : start+i], true
	}
	sc.index = len(sc.data)
	return sc.data[start:], false
}

// doField reads a tab-terminated column.
func (sc *StringScanner) doField() string {
	value, ok := sc.readUntilByte('\t')
	if !ok {
		sc.setErr(errMissingTab)
	}
	return value
}

func (sc *StringScanner) doInt32() int32 {
	value := sc.doField()
	if value == "." {
		return -1
	}
	i, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		sc.setErr(err)
	}
	return int32(i)
}

func (sc *StringScanner) doFloat() interface{} {
	value := sc.doField()
	if value == "." {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		sc.setErr(err)
		return nil
	}
	return f
}

func (sc *StringScanner) doStringList(separator string) []string {
	value := sc.doField()
	if value == "." {
		return nil
	}
	return strings.Split(value, separator)
}

func (sc *StringScanner) doFilter() []utils.Symbol {
	value := sc.doField()
	switch value {
	case ".":
		return nil
	case "PASS":
		return []utils.Symbol{PASS}
	}
	names := strings.Split(value, ";")
	return utils.InternAll(names...)
}

// doInfo reads the INFO column, which may be the last column.
func (sc *StringScanner) doInfo() []string {
	value, _ := sc.readUntilByte('\t')
	if value == "." || value == "" {
		return nil
	}
	return strings.Split(value, ";")
}

func (sc *StringScanner) rest() string {
	return sc.data[sc.index:]
}

// ParseVariant parses a single variant line, without line terminator.
func ParseVariant(line string) (*Variant, error) {
	var sc StringScanner
	sc.Reset(line)
	variant := &Variant{
		Chrom: utils.Intern(sc.doField()),
		Pos:   sc.doInt32(),
		ID:    sc.doStringList(";"),
		Ref:   sc.doField(),
		Alt:   sc.doStringList(","),
		Qual:  sc.doFloat(),
	}
	variant.Filter = sc.doFilter()
	variant.Info = sc.doInfo()
	variant.Genotypes = sc.rest()
	if sc.err != nil {
		return nil, sc.err
	}
	if variant.Ref == "" {
		return nil, errors.New("empty REF column in VCF data line")
	}
	return variant, nil
}

// parseMetaFields parses the fields of a structured meta-information
// line, after the opening <. Values may be quoted, in which case they
// can contain commas, and the quotes are kept.
func parseMetaFields(s string) (utils.StringMap, error) {
	fields := make(utils.StringMap)
	var sc StringScanner
	sc.Reset(s)
	for sc.Len() > 0 {
		key, found := sc.readUntilByte('=')
		if !found {
			return nil, fmt.Errorf("invalid meta-information field %q", key)
		}
		var value string
		if sc.Len() > 0 && sc.data[sc.index] == '"' {
			end := sc.index + 1
			for ; end < len(sc.data); end++ {
				if sc.data[end] == '\\' {
					end++
				} else if sc.data[end] == '"' {
					break
				}
			}
			if end >= len(sc.data) {
				return nil, fmt.Errorf("unterminated quoted value for %v", key)
			}
			value = sc.data[sc.index : end+1]
			sc.index = end + 1
			if sc.Len() > 0 {
				sc.index++ // , or >
			}
		} else {
			start := sc.index
			end := strings.IndexAny(sc.data[start:], ",>")
			if end < 0 {
				return nil, fmt.Errorf("unterminated meta-information line at %v", key)
			}
			value = sc.data[start : start+end]
			sc.index = start + end + 1
		}
		if !fields.SetUniqueEntry(key, value) {
			return nil, fmt.Errorf("duplicate meta-information field %v", key)
		}
	}
	return fields, nil
}
