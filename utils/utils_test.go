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
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntern(t *testing.T) {
	var wg sync.WaitGroup
	symbols := make([][]Symbol, 8)
	for g := range symbols {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				symbols[g] = append(symbols[g], Intern("chr"+strconv.Itoa(i)))
			}
		}(g)
	}
	wg.Wait()
	for g := range symbols {
		for i, s := range symbols[g] {
			assert.Same(t, symbols[0][i], s)
			assert.Equal(t, "chr"+strconv.Itoa(i), *s)
		}
	}
	assert.NotSame(t, Intern("chr1"), Intern("chr2"))
}

func TestStringMapFormat(t *testing.T) {
	record := StringMap{"SN": "chr1", "LN": "1000", "M5": "abc", "AS": "hg38"}
	assert.Equal(t, "SN:chr1\tLN:1000\tAS:hg38\tM5:abc", record.Format("\t", ":", "SN", "LN"))
	assert.Equal(t, "AS=hg38,LN=1000,M5=abc,SN=chr1", record.Format(",", "="))
	assert.Equal(t, "SN:chr1", StringMap{"SN": "chr1"}.Format("\t", ":", "SN", "SN", "LN"))

	assert.True(t, record.SetUniqueEntry("UR", "file:ref.fa"))
	assert.False(t, record.SetUniqueEntry("SN", "chr2"))
	assert.Equal(t, "chr1", record["SN"])

	dict := []StringMap{{"SN": "chr1"}, {"SN": "chr2"}}
	assert.Equal(t, 1, Find(dict, func(r StringMap) bool { return r["SN"] == "chr2" }))
	assert.Equal(t, -1, Find(dict, func(r StringMap) bool { return r["SN"] == "chrM" }))
}

func TestDetectCompression(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, _ = w.Write([]byte("plain gzip"))
	require.NoError(t, w.Close())

	for expected, data := range map[Compression][]byte{
		Plain: []byte("##fileformat=VCFv4.3\n"),
		Gzip:  gz.Bytes(),
		Zstd:  {0x28, 0xb5, 0x2f, 0xfd, 0x00},
	} {
		compression, err := DetectCompression(bufio.NewReader(bytes.NewReader(data)))
		require.NoError(t, err)
		assert.Equal(t, expected, compression, expected.String())
	}

	compression, err := DetectCompression(bufio.NewReader(bytes.NewReader(nil)))
	require.NoError(t, err)
	assert.Equal(t, Plain, compression)
}

func TestOutputCompression(t *testing.T) {
	assert.Equal(t, BGZF, OutputCompression("out.vcf.gz"))
	assert.Equal(t, Zstd, OutputCompression("out.sam.zst"))
	assert.Equal(t, Plain, OutputCompression("out.sam"))
	assert.Equal(t, Plain, OutputCompression("/dev/stdout"))
}

func TestCompressedRoundTrip(t *testing.T) {
	var contents bytes.Buffer
	for i := 0; i < 20000; i++ {
		contents.WriteString("chr1\t" + strconv.Itoa(i) + "\t.\tA\tG\t50\tPASS\t.\n")
	}
	dir := t.TempDir()
	for _, name := range []string{"out.txt", "out.txt.gz", "out.txt.zst"} {
		path := filepath.Join(dir, name)
		output, err := CreateOutput(path)
		require.NoError(t, err)
		_, err = output.Write(contents.Bytes())
		require.NoError(t, err)
		require.NoError(t, output.Close())

		input, err := OpenInput(path)
		require.NoError(t, err)
		assert.Equal(t, OutputCompression(name), input.Compression, name)
		actual, err := io.ReadAll(input)
		require.NoError(t, err)
		require.NoError(t, input.Close())
		assert.Equal(t, contents.Bytes(), actual, name)
	}
}

func TestPlainGzipInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte("not blocked\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	input, err := OpenInput(path)
	require.NoError(t, err)
	assert.Equal(t, Gzip, input.Compression)
	line, err := input.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "not blocked\n", line)
	require.NoError(t, input.Close())
}

func TestOpenMissingInput(t *testing.T) {
	_, err := OpenInput(filepath.Join(t.TempDir(), "missing.vcf"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
