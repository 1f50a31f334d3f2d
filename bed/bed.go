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

// Package bed reads the region lines of BED files. See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1
package bed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/elstream/utils"
)

// ErrInvalidRegion is returned for BED lines that cannot be parsed.
var ErrInvalidRegion = errors.New("invalid BED region")

// Symbols for the optional strand field of a Region.
var (
	// Strand forward.
	SF = utils.Intern("+")
	// Strand reverse.
	SR = utils.Intern("-")
)

/*
A Region is a single BED line. Start and End are 0-based, and End is
exclusive. Of the optional fields, only name, score and strand are
retained.
*/
type Region struct {
	Chrom  utils.Symbol
	Start  int32
	End    int32
	Name   string
	Score  int          // -1 if absent
	Strand utils.Symbol // nil if absent or "."
}

// A Bed maps chromosomes to their regions, sorted by Start.
type Bed struct {
	RegionMap map[utils.Symbol][]Region
}

// NewBed allocates and initializes an empty Bed.
func NewBed() *Bed {
	return &Bed{RegionMap: make(map[utils.Symbol][]Region)}
}

// AddRegion adds a region to the bed region map.
func (bed *Bed) AddRegion(region Region) {
	bed.RegionMap[region.Chrom] = append(bed.RegionMap[region.Chrom], region)
}

// Len returns the total number of regions.
func (bed *Bed) Len() (n int) {
	for _, regions := range bed.RegionMap {
		n += len(regions)
	}
	return n
}

func (bed *Bed) sortRegions() {
	for _, regions := range bed.RegionMap {
		sort.SliceStable(regions, func(i, j int) bool {
			return regions[i].Start < regions[j].Start
		})
	}
}

func isComment(line string) bool {
	return line == "" ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "track") ||
		strings.HasPrefix(line, "browser")
}

// ParseRegion parses a single BED line.
func ParseRegion(line string) (region Region, err error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return region, fmt.Errorf("%w: %v fields, at least 3 expected", ErrInvalidRegion, len(fields))
	}
	if fields[0] == "" {
		return region, fmt.Errorf("%w: empty chromosome name", ErrInvalidRegion)
	}
	region.Chrom = utils.Intern(fields[0])
	start, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return region, fmt.Errorf("%w: start %v", ErrInvalidRegion, err)
	}
	end, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return region, fmt.Errorf("%w: end %v", ErrInvalidRegion, err)
	}
	if start < 0 || end < start {
		return region, fmt.Errorf("%w: range %v-%v", ErrInvalidRegion, start, end)
	}
	region.Start, region.End = int32(start), int32(end)
	region.Score = -1
	if len(fields) > 3 {
		region.Name = fields[3]
	}
	if len(fields) > 4 && fields[4] != "." {
		score, err := strconv.Atoi(fields[4])
		if err != nil || score < 0 || score > 1000 {
			return region, fmt.Errorf("%w: score %v", ErrInvalidRegion, fields[4])
		}
		region.Score = score
	}
	if len(fields) > 5 {
		switch fields[5] {
		case "+":
			region.Strand = SF
		case "-":
			region.Strand = SR
		case ".":
		default:
			return region, fmt.Errorf("%w: strand %v", ErrInvalidRegion, fields[5])
		}
	}
	return region, nil
}

// Parse reads all regions from a BED stream. Comment, track and
// browser lines are skipped.
func Parse(reader *bufio.Reader) (*Bed, error) {
	bed := NewBed()
	for lineNumber := 1; ; lineNumber++ {
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if !isComment(line) {
			region, perr := ParseRegion(line)
			if perr != nil {
				return nil, fmt.Errorf("%w, in line %v", perr, lineNumber)
			}
			bed.AddRegion(region)
		}
		if err == io.EOF {
			break
		}
	}
	bed.sortRegions()
	return bed, nil
}

// ParseBed parses a BED file, which may be compressed.
func ParseBed(filename string) (bed *Bed, err error) {
	input, err := utils.OpenInput(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := input.Close(); err == nil {
			err = nerr
		}
	}()
	if bed, err = Parse(input.Reader); err != nil {
		return nil, fmt.Errorf("%w, while reading BED file %v", err, filename)
	}
	return bed, nil
}
