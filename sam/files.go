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

package sam

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/exascience/elstream/utils"
)

func parseHeaderLine(fields string) (utils.StringMap, error) {
	record := make(utils.StringMap)
	for _, field := range strings.Split(fields, "\t") {
		if len(field) < 3 || field[2] != ':' {
			return nil, fmt.Errorf("invalid field tag %v in a SAM header line", field)
		}
		if !record.SetUniqueEntry(field[:2], field[3:]) {
			return nil, fmt.Errorf("duplicate field tag %v in a SAM header line", field[:2])
		}
	}
	return record, nil
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	switch {
	case err == nil:
		line = line[:len(line)-1]
	case err == io.EOF && line != "":
		err = nil
	}
	return strings.TrimSuffix(line, "\r"), err
}

// ParseHeader parses the header lines at the beginning of a SAM file.
func ParseHeader(reader *bufio.Reader) (hdr *Header, lines int, err error) {
	hdr = NewHeader()
	for {
		switch data, err := reader.Peek(1); {
		case err == io.EOF:
			return hdr, lines, nil
		case err != nil:
			return nil, lines, err
		case data[0] != '@':
			return hdr, lines, nil
		}
		line, err := readLine(reader)
		if err != nil {
			return nil, lines, err
		}
		lines++
		if len(line) < 3 {
			return nil, lines, fmt.Errorf("invalid SAM header line %q", line)
		}
		code, rest := line[:3], ""
		if len(line) > 3 {
			if line[3] != '\t' {
				return nil, lines, fmt.Errorf("header code %v not followed by a tab", code)
			}
			rest = line[4:]
		}
		var record utils.StringMap
		switch code {
		case "@HD", "@SQ", "@RG", "@PG":
			if record, err = parseHeaderLine(rest); err != nil {
				return nil, lines, fmt.Errorf("%w, in header line %v", err, lines)
			}
		}
		switch code {
		case "@HD":
			if lines != 1 {
				return nil, lines, errors.New("@HD line not in first line when parsing a SAM header")
			}
			hdr.HD = record
		case "@SQ":
			hdr.SQ = append(hdr.SQ, record)
		case "@RG":
			hdr.RG = append(hdr.RG, record)
		case "@PG":
			hdr.PG = append(hdr.PG, record)
		case "@CO":
			hdr.CO = append(hdr.CO, rest)
		default:
			hdr.Other = append(hdr.Other, line)
		}
	}
}

func formatHeaderLine(out *bufio.Writer, code string, record utils.StringMap, order ...string) error {
	_, err := fmt.Fprintf(out, "%v\t%v\n", code, record.Format("\t", ":", order...))
	return err
}

// Format writes the header. Known fields come first in each line, in
// the order of the SAM specification.
func (hdr *Header) Format(out *bufio.Writer) error {
	if hdr.HD != nil {
		if err := formatHeaderLine(out, "@HD", hdr.HD, "VN", "SO", "GO", "SS"); err != nil {
			return err
		}
	}
	for _, sq := range hdr.SQ {
		if err := formatHeaderLine(out, "@SQ", sq, "SN", "LN"); err != nil {
			return err
		}
	}
	for _, rg := range hdr.RG {
		if err := formatHeaderLine(out, "@RG", rg, "ID"); err != nil {
			return err
		}
	}
	for _, pg := range hdr.PG {
		if err := formatHeaderLine(out, "@PG", pg, "ID", "PN", "PP", "VN", "DS", "CL"); err != nil {
			return err
		}
	}
	for _, co := range hdr.CO {
		if _, err := fmt.Fprintf(out, "@CO\t%v\n", co); err != nil {
			return err
		}
	}
	for _, line := range hdr.Other {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

// ParseAlignment parses a single alignment line, without line terminator.
func ParseAlignment(line string) (*Alignment, error) {
	fields := strings.SplitN(line, "\t", 6)
	if len(fields) < 6 || strings.Count(fields[5], "\t") < 5 {
		return nil, errors.New("missing mandatory fields in SAM alignment line")
	}
	flag, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w, in FLAG", err)
	}
	pos, err := strconv.ParseInt(fields[3], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w, in POS", err)
	}
	mapq, err := strconv.ParseUint(fields[4], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w, in MAPQ", err)
	}
	return &Alignment{
		QNAME: fields[0],
		FLAG:  uint16(flag),
		RNAME: utils.Intern(fields[2]),
		POS:   int32(pos),
		MAPQ:  byte(mapq),
		Rest:  fields[5],
	}, nil
}

// Format appends the alignment line, without line terminator.
func (aln *Alignment) Format(out []byte) []byte {
	out = append(out, aln.QNAME...)
	out = append(out, '\t')
	out = strconv.AppendUint(out, uint64(aln.FLAG), 10)
	out = append(out, '\t')
	out = append(out, *aln.RNAME...)
	out = append(out, '\t')
	out = strconv.AppendInt(out, int64(aln.POS), 10)
	out = append(out, '\t')
	out = strconv.AppendUint(out, uint64(aln.MAPQ), 10)
	out = append(out, '\t')
	return append(out, aln.Rest...)
}

// An InputFile reads alignments from a possibly compressed SAM file.
// It implements stream.RecordReader.
type InputFile struct {
	*utils.InputFile
	Header *Header
	line   int
}

// Open opens the named SAM file and parses its header.
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

// Read returns the next alignment, or io.EOF. Empty lines are skipped.
func (input *InputFile) Read() (*Alignment, error) {
	for {
		line, err := readLine(input.Reader)
		if err != nil {
			return nil, err
		}
		input.line++
		if line == "" {
			continue
		}
		aln, err := ParseAlignment(line)
		if err != nil {
			return nil, fmt.Errorf("%w, in line %v", err, input.line)
		}
		return aln, nil
	}
}

// A Sink writes SAM output. It implements stream.Sink.
type Sink struct {
	out    *bufio.Writer
	header *Header
}

// NewSink returns a Sink that writes the given header, followed by
// alignment lines.
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
// SAM has no footer, so it only flushes the output.
func (sink *Sink) WriteFooter() error {
	return sink.out.Flush()
}
