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
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"github.com/DataDog/zstd"

	"github.com/exascience/elstream/internal"
	"github.com/exascience/elstream/utils/bgzf"
)

// Compression identifies the encoding of an input or output file.
type Compression int

// The supported encodings.
const (
	Plain Compression = iota
	Gzip
	BGZF
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case BGZF:
		return "bgzf"
	case Zstd:
		return "zstd"
	default:
		return "plain"
	}
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// DetectCompression determines the encoding of the given input from
// its first bytes, without consuming them.
func DetectCompression(buf *bufio.Reader) (Compression, error) {
	magic, err := buf.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return Plain, err
	}
	switch {
	case len(magic) >= 4 && string(magic) == string(zstdMagic):
		return Zstd, nil
	case len(magic) >= 4 && magic[0] == 0x1f && magic[1] == 0x8b:
		if magic[3]&4 == 0 {
			return Gzip, nil
		}
		// FEXTRA is set; BGZF has a BC subfield first.
		header, err := buf.Peek(16)
		if err != nil && err != io.EOF {
			return Plain, err
		}
		if len(header) >= 14 && header[12] == 'B' && header[13] == 'C' {
			return BGZF, nil
		}
		return Gzip, nil
	default:
		return Plain, nil
	}
}

// OutputCompression determines the encoding of an output file from its
// extension.
func OutputCompression(name string) Compression {
	switch filepath.Ext(name) {
	case ".gz", ".bgz", ".bgzf":
		return BGZF
	case ".zst":
		return Zstd
	default:
		return Plain
	}
}

// An InputFile is a buffered, possibly decompressed, input.
type InputFile struct {
	*bufio.Reader
	Compression Compression
	closers     []io.Closer
}

// OpenInput opens the named file, or standard input for "/dev/stdin"
// or "-", and decompresses it according to its contents.
func OpenInput(name string) (*InputFile, error) {
	var file io.ReadCloser
	if name == "/dev/stdin" || name == "-" {
		file = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		file = f
	}
	buf := bufio.NewReader(file)
	compression, err := DetectCompression(buf)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	input := &InputFile{Compression: compression}
	switch compression {
	case BGZF:
		r := bgzf.NewReader(buf)
		input.Reader = bufio.NewReader(r)
		input.closers = []io.Closer{r, file}
	case Gzip:
		r, err := gzip.NewReader(buf)
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		input.Reader = bufio.NewReader(r)
		input.closers = []io.Closer{r, file}
	case Zstd:
		r := zstd.NewReader(buf)
		input.Reader = bufio.NewReader(r)
		input.closers = []io.Closer{r, file}
	default:
		input.Reader = buf
		input.closers = []io.Closer{file}
	}
	return input, nil
}

// Close closes the decompressor and the underlying file.
func (input *InputFile) Close() error {
	return internal.CloseAll(input.closers...)
}

// An OutputFile is a buffered, possibly compressed, output.
type OutputFile struct {
	*bufio.Writer
	Compression Compression
	closers     []io.Closer
}

type stdout struct{ io.Writer }

func (stdout) Close() error { return nil }

// CreateOutput creates the named file, or writes to standard output for
// "/dev/stdout" or "-". The output is compressed according to the
// extension of the name.
func CreateOutput(name string) (*OutputFile, error) {
	var file io.WriteCloser
	if name == "/dev/stdout" || name == "-" {
		file = stdout{os.Stdout}
	} else {
		f, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		file = f
	}
	output := &OutputFile{Compression: OutputCompression(name)}
	switch output.Compression {
	case BGZF:
		w, err := bgzf.NewWriter(file, gzip.DefaultCompression)
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		output.Writer = bufio.NewWriter(w)
		output.closers = []io.Closer{w, file}
	case Zstd:
		w := zstd.NewWriterLevel(file, zstd.DefaultCompression)
		output.Writer = bufio.NewWriter(w)
		output.closers = []io.Closer{w, file}
	default:
		output.Writer = bufio.NewWriter(file)
		output.closers = []io.Closer{file}
	}
	return output, nil
}

// Close flushes the buffer, then closes the compressor and the
// underlying file.
func (output *OutputFile) Close() error {
	flushErr := output.Flush()
	if err := internal.CloseAll(output.closers...); err != nil {
		return err
	}
	return flushErr
}
