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
	"fmt"
	"runtime"
	"strings"

	"github.com/exascience/elstream/internal"
)

const (
	// ProgramName is "elstream"
	ProgramName = "elstream"

	// ProgramVersion is the version of the elstream binary
	ProgramVersion = "1.0.0"

	// ProgramURL is the repository for the elstream source code
	ProgramURL = "http://github.com/exascience/elstream"
)

// ProgramMessage returns the banner printed by every command.
func ProgramMessage() string {
	return fmt.Sprintf("%v version %v compiled with %v %v- see %v for more information.\n",
		ProgramName, ProgramVersion, runtime.Version(), internal.PedanticMessage, ProgramURL)
}

// CommandLine reconstructs a command line for provenance headers.
func CommandLine(args []string) string {
	return strings.Join(args, " ")
}
