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
	"strconv"
	"strings"

	"github.com/exascience/elstream/intervals"
	"github.com/exascience/elstream/stream"
	"github.com/exascience/elstream/utils"
	"github.com/exascience/elstream/vcf"
)

// VcfFilterHelp is the help string for this command.
const VcfFilterHelp = "\nvcf-filter parameters:\n" +
	"elstream vcf-filter vcf-file vcf-output-file\n" +
	"[--pass-only]\n" +
	"[--min-quality qual]\n" +
	"[--keep-chromosomes list]\n" +
	"[--keep-regions bed-file]\n" +
	"[--remove-indels]\n" +
	"[--remove-multi-allelic]\n" +
	"[--annotate-variant-type]\n" +
	StreamHelp

// VcfFilter implements the elstream vcf-filter command.
func VcfFilter() (err error) {
	var (
		passOnly            bool
		minQuality          float64
		keepChromosomes     string
		keepRegions         string
		removeIndels        bool
		removeMultiAllelic  bool
		annotateVariantType bool
		sf                  streamFlags
	)

	var flags flag.FlagSet

	flags.BoolVar(&passOnly, "pass-only", false, "output only variants that passed all filters")
	flags.Float64Var(&minQuality, "min-quality", 0, "output only variants with at least the given QUAL value")
	flags.StringVar(&keepChromosomes, "keep-chromosomes", "", "output only variants on the given comma-separated chromosomes")
	flags.StringVar(&keepRegions, "keep-regions", "", "output only variants that overlap with the regions in a BED file")
	flags.BoolVar(&removeIndels, "remove-indels", false, "remove variants with insertion or deletion alleles")
	flags.BoolVar(&removeMultiAllelic, "remove-multi-allelic", false, "remove variants with more than one alternative allele")
	flags.BoolVar(&annotateVariantType, "annotate-variant-type", false, "add the variant type as VARTYPE to the INFO column")
	sf.register(&flags)

	parseFlags(&flags, 4, VcfFilterHelp)

	input := getFilename(os.Args[2], VcfFilterHelp)
	output := getFilename(os.Args[3], VcfFilterHelp)

	setLogOutput(sf.logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if minQuality < 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid min-quality: ", minQuality)
	}
	if keepRegions != "" && !checkExist("--keep-regions", keepRegions) {
		sanityChecksFailed = true
	}
	if !sf.check() {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, VcfFilterHelp)
		os.Exit(1)
	}

	// building filters and output command line

	var command strings.Builder
	fmt.Fprint(&command, os.Args[0], " vcf-filter ", input, " ", output)

	var filters []vcf.Filter

	if passOnly {
		filters = append(filters, vcf.PassOnly)
		fmt.Fprint(&command, " --pass-only")
	}
	if minQuality > 0 {
		filters = append(filters, vcf.MinQuality(minQuality))
		fmt.Fprint(&command, " --min-quality ", strconv.FormatFloat(minQuality, 'f', -1, 64))
	}
	if keepChromosomes != "" {
		filters = append(filters, vcf.KeepChromosomes(strings.Split(keepChromosomes, ",")...))
		fmt.Fprint(&command, " --keep-chromosomes ", keepChromosomes)
	}
	if keepRegions != "" {
		regions, err := intervals.FromBedFile(keepRegions)
		if err != nil {
			return err
		}
		log.Printf("Loaded %v regions from %v", regions.Len(), keepRegions)
		filters = append(filters, vcf.KeepRegions(regions))
		fmt.Fprint(&command, " --keep-regions ", keepRegions)
	}
	if removeIndels {
		filters = append(filters, vcf.RemoveIndels)
		fmt.Fprint(&command, " --remove-indels")
	}
	if removeMultiAllelic {
		filters = append(filters, vcf.RemoveMultiAllelic)
		fmt.Fprint(&command, " --remove-multi-allelic")
	}
	if annotateVariantType {
		filters = append(filters, vcf.AnnotateVariantType)
		fmt.Fprint(&command, " --annotate-variant-type")
	}
	sf.appendTo(&command)

	commandString := command.String()

	// executing command

	log.Println("Executing command:\n", commandString)

	in, err := vcf.Open(input)
	if err != nil {
		return err
	}
	defer closeOnExit(in, &err)

	out, err := utils.CreateOutput(output)
	if err != nil {
		return err
	}
	defer closeOnExit(out, &err)

	processor := vcf.NewProcessor(in.Header, filters...)
	stats := &vcf.Stats{}

	printSummary := func(report *stream.Report) error {
		log.Println(stats)
		return nil
	}

	return runStream[*vcf.Variant, vcf.Tally](&sf, processor, in, vcf.NewSink(out.Writer, in.Header), stats,
		stream.WithBegin(vcfProvenance(in.Header, commandString)), stream.WithEnd(printSummary))
}

// vcfProvenance returns a begin hook that records the command line and
// the run ID in the header.
func vcfProvenance(header *vcf.Header, commandLine string) func(*stream.Report) error {
	return func(report *stream.Report) error {
		header.AddStructuredMeta(utils.ProgramName+"Command", utils.StringMap{
			"ID":          "vcf-filter",
			"Version":     utils.ProgramVersion,
			"RunID":       report.RunID.String(),
			"CommandLine": strconv.Quote(commandLine),
		})
		return nil
	}
}
