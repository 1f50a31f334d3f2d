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

package bed

import (
	"bufio"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exascience/elstream/utils"
)

const testBed = `# regions of interest
track name=roi
browser position chr1:1-100
chr2	50	60
chr1	300	400	exon2	900	-
chr1	100	200	exon1	.	+
chr2	10	20
`

func TestParse(t *testing.T) {
	bed, err := Parse(bufio.NewReader(strings.NewReader(testBed)))
	require.NoError(t, err)
	require.Equal(t, 4, bed.Len())

	chr1 := bed.RegionMap[utils.Intern("chr1")]
	require.Len(t, chr1, 2)
	require.Equal(t, Region{Chrom: utils.Intern("chr1"), Start: 100, End: 200, Name: "exon1", Score: -1, Strand: SF}, chr1[0])
	require.Equal(t, Region{Chrom: utils.Intern("chr1"), Start: 300, End: 400, Name: "exon2", Score: 900, Strand: SR}, chr1[1])

	chr2 := bed.RegionMap[utils.Intern("chr2")]
	require.Len(t, chr2, 2)
	require.Equal(t, int32(10), chr2[0].Start)
	require.Equal(t, int32(50), chr2[1].Start)
	require.Nil(t, chr2[0].Strand)
}

func TestParseWithoutFinalNewline(t *testing.T) {
	bed, err := Parse(bufio.NewReader(strings.NewReader("chr1\t1\t2\r\nchr1\t5\t9")))
	require.NoError(t, err)
	require.Equal(t, 2, bed.Len())
	require.Equal(t, int32(9), bed.RegionMap[utils.Intern("chr1")][1].End)
}

func TestParseRegionErrors(t *testing.T) {
	for _, line := range []string{
		"chr1\t100",
		"\t1\t2",
		"chr1\tx\t2",
		"chr1\t1\ty",
		"chr1\t20\t10",
		"chr1\t-1\t10",
		"chr1\t1\t2\tname\t1001",
		"chr1\t1\t2\tname\t0\t?",
	} {
		_, err := ParseRegion(line)
		require.ErrorIs(t, err, ErrInvalidRegion, line)
	}
}

func TestParseReportsLineNumber(t *testing.T) {
	_, err := Parse(bufio.NewReader(strings.NewReader("chr1\t1\t2\nchr1\t2\n")))
	require.ErrorIs(t, err, ErrInvalidRegion)
	require.Contains(t, err.Error(), "line 2")
}

func TestParseBedCompressed(t *testing.T) {
	name := filepath.Join(t.TempDir(), "regions.bed.gz")
	file, err := os.Create(name)
	require.NoError(t, err)
	zw := gzip.NewWriter(file)
	_, err = zw.Write([]byte(testBed))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, file.Close())

	bed, err := ParseBed(name)
	require.NoError(t, err)
	require.Equal(t, 4, bed.Len())
}

func TestParseBedMissingFile(t *testing.T) {
	_, err := ParseBed(filepath.Join(t.TempDir(), "missing.bed"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
