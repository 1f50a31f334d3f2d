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

// elstream is a tool for filtering and annotating .vcf and .sam files
// in parallel, while keeping the records in their original order.
//
// Please see https://github.com/exascience/elstream for a
// documentation of the tool. The parallel engine itself is in the
// stream package, and can be used for other record formats as well.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/elstream/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: vcf-filter, sam-filter")
	fmt.Fprint(os.Stderr, "\n", cmd.VcfFilterHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.SamFilterHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "vcf-filter":
		err = cmd.VcfFilter()
	case "sam-filter":
		err = cmd.SamFilter()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Println("Unknown command:", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
