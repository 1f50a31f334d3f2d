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
	"github.com/exascience/pargo/sync"

	"github.com/exascience/elstream/internal"
)

// A Symbol is a unique pointer to a string. Symbols are used for
// values that repeat across many records, like chromosome names, so
// that records share a single copy and compare by pointer.
type Symbol *string

type symbolName string

func (s symbolName) Hash() uint64 {
	return internal.StringHash(string(s))
}

var symbolTable = sync.NewMap(0)

/*
Intern returns the Symbol for the given string. For two strings s1 and
s2, Intern(s1) == Intern(s2) if and only if s1 == s2, and *Intern(s)
== s always holds.

Intern is safe for concurrent use by the workers of a run.
*/
func Intern(s string) Symbol {
	entry, _ := symbolTable.LoadOrStore(symbolName(s), Symbol(&s))
	return entry.(Symbol)
}

// InternAll interns each of the given strings.
func InternAll(strings ...string) []Symbol {
	symbols := make([]Symbol, len(strings))
	for i, s := range strings {
		symbols[i] = Intern(s)
	}
	return symbols
}
