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

package utils

import (
	"sort"
	"strings"
)

// A StringMap holds the key/value fields of a structured header line,
// for example ID=DP,Number=1 in a VCF meta line or SN:chr1 in a SAM
// @SQ line.
type StringMap map[string]string

// Find returns the first index in a slice of StringMap where the
// predicate returns true, or -1 if predicate never returns true.
func Find(dict []StringMap, predicate func(record StringMap) bool) int {
	for index, record := range dict {
		if predicate(record) {
			return index
		}
	}
	return -1
}

// SetUniqueEntry adds the given key/value pair, unless the key is
// already present. It reports whether the entry was added.
func (record StringMap) SetUniqueEntry(key, value string) bool {
	if _, found := record[key]; found {
		return false
	}
	record[key] = value
	return true
}

// Format joins the fields of the StringMap. Keys in order come first,
// in that order, followed by the remaining keys sorted alphabetically.
func (record StringMap) Format(sep, assign string, order ...string) string {
	var b strings.Builder
	seen := make(map[string]bool, len(order))
	write := func(key string) {
		value, ok := record[key]
		if !ok || seen[key] {
			return
		}
		seen[key] = true
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(key)
		b.WriteString(assign)
		b.WriteString(value)
	}
	for _, key := range order {
		write(key)
	}
	rest := make([]string, 0, len(record))
	for key := range record {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		write(key)
	}
	return b.String()
}
