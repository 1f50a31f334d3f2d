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
	"bufio"
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elstream/sam"
	"github.com/exascience/elstream/stream"
	"github.com/exascience/elstream/vcf"
)

func quietLogger() stream.Option {
	return stream.WithLogger(log.New(io.Discard, "", 0))
}

func TestStreamFlagsCheck(t *testing.T) {
	sf := streamFlags{shutdownTimeout: stream.DefaultShutdownTimeout}
	assert.True(t, sf.check())

	sf.nrOfThreads = -1
	assert.False(t, sf.check())

	sf = streamFlags{}
	assert.False(t, sf.check(), "shutdown timeout must be positive")

	sf = streamFlags{shutdownTimeout: time.Second, profile: filepath.Join(t.TempDir(), "prof", "run")}
	assert.True(t, sf.check())
}

func TestStreamFlagsAppendTo(t *testing.T) {
	var command strings.Builder
	sf := streamFlags{shutdownTimeout: stream.DefaultShutdownTimeout}
	sf.appendTo(&command)
	assert.Empty(t, command.String())

	sf = streamFlags{nrOfThreads: 4, shutdownTimeout: time.Minute, timed: true, logPath: "logs"}
	sf.appendTo(&command)
	assert.Equal(t, " --nr-of-threads 4 --shutdown-timeout 1m0s --timed --log-path logs", command.String())
}

func TestStreamFlagsOptions(t *testing.T) {
	sf := streamFlags{nrOfThreads: 3, shutdownTimeout: time.Minute}
	engine, err := stream.New[int, int](stream.ProcessorFunc[int, int](func(int) (stream.Result[int], error) {
		return stream.Result[int]{}, nil
	}), vcf.NewSink(bufio.NewWriter(io.Discard), vcf.NewHeader()), nil, sf.options()...)
	require.NoError(t, err)
	assert.Equal(t, 3, engine.Config().Workers)
	assert.Equal(t, time.Minute, engine.Config().ShutdownTimeout)
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "in.vcf")
	require.NoError(t, os.WriteFile(existing, []byte("##fileformat=VCFv4.2\n"), 0600))

	assert.True(t, checkExist("", existing))
	assert.True(t, checkExist("", "-"))
	assert.False(t, checkExist("", filepath.Join(dir, "missing.vcf")))
	assert.False(t, checkExist("--keep-regions", ""))

	nested := filepath.Join(dir, "out", "sub", "out.vcf")
	assert.True(t, checkCreate("", nested))
	assert.DirExists(t, filepath.Dir(nested))
	assert.True(t, checkCreate("", "/dev/stdout"))
}

const vcfInput = `##fileformat=VCFv4.2
##contig=<ID=chr1,length=248956422>
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
chr1	100	rs1	A	G	50	PASS	DP=10
chr1	200	.	AT	A	12.5	LowQual	DP=3
`

func TestVcfProvenance(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader(vcfInput))
	header, _, err := vcf.ParseHeader(reader)
	require.NoError(t, err)
	var variants []*vcf.Variant
	for _, line := range strings.Split(strings.TrimSpace(vcfInput), "\n")[3:] {
		variant, err := vcf.ParseVariant(line)
		require.NoError(t, err)
		variants = append(variants, variant)
	}

	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	sf := streamFlags{shutdownTimeout: stream.DefaultShutdownTimeout}
	var runID string
	err = runStream[*vcf.Variant, vcf.Tally](&sf, vcf.NewProcessor(header, vcf.PassOnly),
		stream.NewSliceReader(variants), vcf.NewSink(out, header), &vcf.Stats{},
		stream.WithBegin(vcfProvenance(header, "elstream vcf-filter in.vcf out.vcf --pass-only")),
		stream.WithEnd(func(report *stream.Report) error {
			runID = report.RunID.String()
			return nil
		}),
		quietLogger())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "##fileformat=VCFv4.2", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "##elstreamCommand=<ID=vcf-filter,"), lines[2])
	assert.Contains(t, lines[2], `CommandLine="elstream vcf-filter in.vcf out.vcf --pass-only"`)
	assert.Contains(t, lines[2], "RunID="+runID)
	assert.True(t, strings.HasPrefix(lines[3], "#CHROM"))
	assert.True(t, strings.HasPrefix(lines[4], "chr1\t100\trs1"))
}

const samInput = "@HD\tVN:1.6\tSO:coordinate\n" +
	"@SQ\tSN:chr1\tLN:248956422\n" +
	"@PG\tID:bwa\tPN:bwa\n" +
	"r1\t0\tchr1\t100\t60\t4M\t*\t0\t0\tACGT\tIIII\n" +
	"r2\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII\n"

func TestSamProvenance(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader(samInput))
	header, _, err := sam.ParseHeader(reader)
	require.NoError(t, err)
	var alignments []*sam.Alignment
	for _, line := range strings.Split(strings.TrimSpace(samInput), "\n")[3:] {
		aln, err := sam.ParseAlignment(line)
		require.NoError(t, err)
		alignments = append(alignments, aln)
	}

	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	sf := streamFlags{shutdownTimeout: stream.DefaultShutdownTimeout}
	err = runStream[*sam.Alignment, sam.Tally](&sf, sam.NewProcessor(header, sam.FilterUnmappedReads),
		stream.NewSliceReader(alignments), sam.NewSink(out, header), &sam.Stats{},
		stream.WithBegin(samProvenance(header, "elstream sam-filter in.sam out.sam")),
		quietLogger())
	require.NoError(t, err)

	require.Len(t, header.PG, 2)
	assert.Equal(t, "elstream", header.PG[1]["ID"])
	assert.Equal(t, "bwa", header.PG[1]["PP"])
	assert.True(t, strings.HasPrefix(header.PG[1]["DS"], "run "))
	assert.Contains(t, buf.String(), "\tCL:elstream sam-filter in.sam out.sam")
	assert.Contains(t, buf.String(), "r1\t0\tchr1\t100")
	assert.NotContains(t, buf.String(), "r2\t")
}
