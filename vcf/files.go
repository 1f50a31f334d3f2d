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

package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/exascience/elstream/utils"
)

func getLine(reader *bufio.Reader) (line string, err error) {
	line, err = reader.ReadString('\n')
	switch {
	case err == nil:
		line = strings.TrimSuffix(line[:len(line)-1], "\r")
	case err == io.EOF && line != "":
		line = strings.TrimSuffix(line, "\r")
		err = nil
	}
	return
}

// ParseHeader parses a VCF header, up to and including the column line.
func ParseHeader(reader *bufio.Reader) (hdr *Header, lines int, err error) {
	line, err := getLine(reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w, while reading VCF header", err)
	}
	lines++
	if !strings.HasPrefix(line, fileFormatVersionLinePrefix) {
		return nil, 0, errors.New("invalid first line in a VCF file")
	}
	hdr = NewHeader()
	hdr.FileFormat = line
	for {
		line, err = getLine(reader)
		if err == io.EOF {
			return nil, 0, errors.New("unexpected end of VCF header")
		} else if err != nil {
			return nil, 0, err
		}
		lines++
		switch {
		case strings.HasPrefix(line, "##"):
			if strings.HasPrefix(line, "##fileformat=") {
				return nil, 0, errors.New("multiple file format meta-information lines in a VCF file")
			}
			hdr.AddMeta(line[2:])
		case strings.HasPrefix(line, "#"):
			hdr.Columns = strings.Split(line[1:], "\t")
			if len(hdr.Columns) < len(DefaultHeaderColumns) {
				return nil, 0, fmt.Errorf("VCF column line has %v columns, expected at least %v", len(hdr.Columns), len(DefaultHeaderColumns))
			}
			return hdr, lines, nil
		default:
			return nil, 0, errors.New("missing column line in VCF header")
		}
	}
}

// Format writes the header, including the column line.
func (hdr *Header) Format(out *bufio.Writer) error {
	if _, err := out.WriteString(hdr.FileFormat); err != nil {
		return err
	}
	if err := out.WriteByte('\n'); err != nil {
		return err
	}
	for _, line := range hdr.Meta {
		if _, err := fmt.Fprintf(out, "##%v\n", line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "#%v\n", strings.Join(hdr.Columns, "\t"))
	return err
}

func formatList(out []byte, list []string, separator byte) []byte {
	if len(list) == 0 {
		return append(out, '.')
	}
	out = append(out, list[0]...)
	for _, s := range list[1:] {
		out = append(out, separator)
		out = append(out, s...)
	}
	return out
}

// Format appends the variant line, without line terminator.
func (variant *Variant) Format(out []byte) []byte {
	out = append(out, *variant.Chrom...)
	out = append(out, '\t')
	if variant.Pos < 0 {
		out = append(out, '.')
	} else {
		out = strconv.AppendInt(out, int64(variant.Pos), 10)
	}
	out = append(out, '\t')
	out = formatList(out, variant.ID, ';')
	out = append(out, '\t')
	out = append(out, variant.Ref...)
	out = append(out, '\t')
	out = formatList(out, variant.Alt, ',')
	out = append(out, '\t')
	if qual, ok := variant.Qual.(float64); ok {
		out = strconv.AppendFloat(out, qual, 'f', -1, 64)
	} else {
		out = append(out, '.')
	}
	out = append(out, '\t')
	if len(variant.Filter) == 0 {
		out = append(out, '.')
	} else {
		for i, f := range variant.Filter {
			if i > 0 {
				out = append(out, ';')
			}
			out = append(out, *f...)
		}
	}
	out = append(out, '\t')
	out = formatList(out, variant.Info, ';')
	if variant.Genotypes != "" {
		out = append(out, '\t')
		out = append(out, variant.Genotypes...)
	}
	return out
}

// An InputFile reads variants from a possibly compressed VCF file.
// It implements stream.RecordReader.
type InputFile struct {
	*utils.InputFile
	Header *Header
	line   int
}

// Open opens the named VCF file and parses its header.
func Open(name string) (*InputFile, error) {
	input, err := utils.OpenInput(name)
	if err != nil {
		return nil, err
	}
	hdr, lines, err := ParseHeader(input.Reader)
	if err != nil {
		_ = input.Close()
		return nil, fmt.Errorf("%w, in file %v", err, name)
	}
	return &InputFile{InputFile: input, Header: hdr, line: lines}, nil
}

// Read returns the next variant, or io.EOF. Empty lines are skipped.
func (input *InputFile) Read() (*Variant, error) {
	for {
		line, err := getLine(input.Reader)
		if err != nil {
			return nil, err
		}
		input.line++
		if line == "" {
			continue
		}
		variant, err := ParseVariant(line)
		if err != nil {
			return nil, fmt.Errorf("%w, in line %v", err, input.line)
		}
		return variant, nil
	}
}

// A Sink writes VCF output. It implements stream.Sink.
type Sink struct {
	out    *bufio.Writer
	header *Header
}

// NewSink returns a Sink that writes the given header, followed by
// variant lines.
func NewSink(out *bufio.Writer, header *Header) *Sink {
	return &Sink{out: out, header: header}
}

// WriteHeader implements the corresponding method of stream.Sink.
func (sink *Sink) WriteHeader() error {
	return sink.header.Format(sink.out)
}

// WriteLines implements the corresponding method of stream.Sink.
func (sink *Sink) WriteLines(lines []string) error {
	for _, line := range lines {
		if _, err := sink.out.WriteString(line); err != nil {
			return err
		}
		if err := sink.out.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// WriteFooter implements the corresponding method of stream.Sink.
// VCF has no footer, so it only flushes the output.
func (sink *Sink) WriteFooter() error {
	return sink.out.Flush()
}
