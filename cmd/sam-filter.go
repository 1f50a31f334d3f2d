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

package cmd

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/exascience/elstream/sam"
	"github.com/exascience/elstream/intervals"
	"github.com/exascience/elstream/stream"
	"github.com/exascience/elstream/utils"
)

// SamFilterHelp is the help string for this command.
const SamFilterHelp = "\nsam-filter parameters:\n" +
	"elstream sam-filter sam-file sam-output-file\n" +
	"[--filter-unmapped-reads]\n" +
	"[--filter-mapping-quality mapping-quality]\n" +
	"[--filter-secondary-reads]\n" +
	"[--remove-duplicates]\n" +
	"[--keep-references list]\n" +
	"[--keep-regions bed-file]\n" +
	StreamHelp

// SamFilter implements the elstream sam-filter command.
func SamFilter() (err error) {
	var (
		filterUnmappedReads  bool
		filterMappingQuality int
		filterSecondaryReads bool
		removeDuplicates     bool
		keepReferences       string
		keepRegions          string
		sf                   streamFlags
	)

	var flags flag.FlagSet

	flags.BoolVar(&filterUnmappedReads, "filter-unmapped-reads", false, "remove all unmapped alignments")
	flags.IntVar(&filterMappingQuality, "filter-mapping-quality", 0, "output only reads that equal or exceed given mapping quality")
	flags.BoolVar(&filterSecondaryReads, "filter-secondary-reads", false, "remove secondary and supplementary alignments")
	flags.BoolVar(&removeDuplicates, "remove-duplicates", false, "remove alignments flagged as duplicates")
	flags.StringVar(&keepReferences, "keep-references", "", "output only reads on the given comma-separated reference sequences")
	flags.StringVar(&keepRegions, "keep-regions", "", "output only reads that overlap with the regions in a BED file")
	sf.register(&flags)

	parseFlags(&flags, 4, SamFilterHelp)

	input := getFilename(os.Args[2], SamFilterHelp)
	output := getFilename(os.Args[3], SamFilterHelp)

	setLogOutput(sf.logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if filterMappingQuality < 0 || filterMappingQuality > 254 {
		sanityChecksFailed = true
		log.Println("Error: Invalid filter-mapping-quality: ", filterMappingQuality)
	}
	if keepRegions != "" && !checkExist("--keep-regions", keepRegions) {
		sanityChecksFailed = true
	}
	if !sf.check() {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, SamFilterHelp)
		os.Exit(1)
	}

	// building filters and output command line

	var command strings.Builder
	fmt.Fprint(&command, os.Args[0], " sam-filter ", input, " ", output)

	var filters []sam.Filter

	if filterUnmappedReads {
		filters = append(filters, sam.FilterUnmappedReads)
		fmt.Fprint(&command, " --filter-unmapped-reads")
	}
	if filterMappingQuality > 0 {
		filters = append(filters, sam.FilterMappingQuality(byte(filterMappingQuality)))
		fmt.Fprint(&command, " --filter-mapping-quality ", filterMappingQuality)
	}
	if filterSecondaryReads {
		filters = append(filters, sam.FilterSecondaryReads)
		fmt.Fprint(&command, " --filter-secondary-reads")
	}
	if removeDuplicates {
		filters = append(filters, sam.FilterDuplicateReads)
		fmt.Fprint(&command, " --remove-duplicates")
	}
	if keepReferences != "" {
		filters = append(filters, sam.KeepReferences(strings.Split(keepReferences, ",")...))
		fmt.Fprint(&command, " --keep-references ", keepReferences)
	}
	if keepRegions != "" {
		regions, err := intervals.FromBedFile(keepRegions)
		if err != nil {
			return err
		}
		log.Printf("Loaded %v regions from %v", regions.Len(), keepRegions)
		filters = append(filters, sam.KeepRegions(regions))
		fmt.Fprint(&command, " --keep-regions ", keepRegions)
	}
	sf.appendTo(&command)

	commandString := command.String()

	// executing command

	log.Println("Executing command:\n", commandString)

	in, err := sam.Open(input)
	if err != nil {
		return err
	}
	defer closeOnExit(in, &err)

	out, err := utils.CreateOutput(output)
	if err != nil {
		return err
	}
	defer closeOnExit(out, &err)

	processor := sam.NewProcessor(in.Header, filters...)
	stats := &sam.Stats{}

	printSummary := func(report *stream.Report) error {
		log.Println(stats)
		return nil
	}

	return runStream[*sam.Alignment, sam.Tally](&sf, processor, in, sam.NewSink(out.Writer, in.Header), stats,
		stream.WithBegin(samProvenance(in.Header, commandString)), stream.WithEnd(printSummary))
}

func samProvenance(header *sam.Header, commandLine string) func(*stream.Report) error {
	return func(report *stream.Report) error {
		sam.AddPGLine(utils.StringMap{
			"ID": utils.ProgramName,
			"PN": utils.ProgramName,
			"VN": utils.ProgramVersion,
			"DS": "run " + report.RunID.String(),
			"CL": commandLine,
		})(header)
		return nil
	}
}
