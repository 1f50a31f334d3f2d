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

// Package bgzf reads and writes blocked gzip files in parallel.
//
// A BGZF file is a series of gzip members of at most 64 KiB each, with
// the compressed size of each member stored in a BC extra subfield,
// followed by an empty member as end-of-file marker. Any gzip decoder
// can read BGZF files, but knowing the block boundaries in advance
// allows inflating and deflating the blocks concurrently.
package bgzf

import (
	"errors"
	"sync"
)

// MaxBlockSize is the maximum size of a single compressed block.
const MaxBlockSize = 65536

const (
	// maxPayload is the amount of uncompressed data per written block.
	// It leaves room for incompressible input plus framing.
	maxPayload = 0xff00

	fixedHeaderSize = 12
	trailerSize     = 8
)

var (
	// ErrInvalidHeader is returned for blocks that are not BGZF members.
	ErrInvalidHeader = errors.New("bgzf: invalid block header")

	// ErrChecksum is returned when a block does not match its CRC-32.
	ErrChecksum = errors.New("bgzf: invalid CRC-32 value for a data block")

	// ErrMissingEOF is returned when the input ends without an end-of-file marker.
	ErrMissingEOF = errors.New("bgzf: does not end in proper EOF marker")

	// ErrClosed is returned when writing to a closed Writer.
	ErrClosed = errors.New("bgzf: write to closed writer")
)

var eofMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x1b, 0x00,
	0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// header of a written block, with BSIZE at offset 16 filled in later
var blockHeader = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x00, 0x00,
}

type block struct {
	data []byte
	crc  uint32
	size uint32 // uncompressed size, as stored in the trailer
}

var blockPool = sync.Pool{New: func() interface{} {
	return &block{data: make([]byte, 0, MaxBlockSize)}
}}

func getBlock(n int) *block {
	b := blockPool.Get().(*block)
	if cap(b.data) < n {
		b.data = make([]byte, n)
	}
	b.data = b.data[:n]
	b.crc, b.size = 0, 0
	return b
}

func putBlock(b *block) {
	if b != nil {
		blockPool.Put(b)
	}
}
