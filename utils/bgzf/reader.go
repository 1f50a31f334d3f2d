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

package bgzf

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/exascience/pargo/pipeline"
)

// blockSource splits the raw input into compressed blocks. It is the
// sequential source stage of a Reader's pipeline.
type blockSource struct {
	ctx       context.Context
	r         io.Reader
	err       error
	data      *block
	lastEmpty bool
}

func (s *blockSource) readBlock() (*block, error) {
	var fixed [fixedHeaderSize]byte
	if _, err := io.ReadFull(s.r, fixed[:]); err != nil {
		return nil, err
	}
	if fixed[0] != 0x1f || fixed[1] != 0x8b || fixed[2] != 8 || fixed[3]&4 == 0 {
		return nil, ErrInvalidHeader
	}
	xlen := int(binary.LittleEndian.Uint16(fixed[10:12]))
	extra := make([]byte, xlen)
	if _, err := io.ReadFull(s.r, extra); err != nil {
		return nil, unexpected(err)
	}
	bsize := -1
	for i := 0; i+4 <= xlen; {
		slen := int(binary.LittleEndian.Uint16(extra[i+2 : i+4]))
		if extra[i] == 'B' && extra[i+1] == 'C' && slen == 2 && i+6 <= xlen {
			bsize = int(binary.LittleEndian.Uint16(extra[i+4 : i+6]))
		}
		i += 4 + slen
	}
	if bsize < 0 {
		return nil, fmt.Errorf("%w: missing BC extra subfield", ErrInvalidHeader)
	}
	n := bsize - xlen - 19
	if n < 0 {
		return nil, fmt.Errorf("%w: block size %v too small", ErrInvalidHeader, bsize+1)
	}
	b := getBlock(n)
	if _, err := io.ReadFull(s.r, b.data); err != nil {
		putBlock(b)
		return nil, unexpected(err)
	}
	var trailer [trailerSize]byte
	if _, err := io.ReadFull(s.r, trailer[:]); err != nil {
		putBlock(b)
		return nil, unexpected(err)
	}
	b.crc = binary.LittleEndian.Uint32(trailer[0:4])
	b.size = binary.LittleEndian.Uint32(trailer[4:8])
	return b, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Err implements the corresponding method of pipeline.Source.
func (s *blockSource) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// Prepare implements the corresponding method of pipeline.Source.
func (s *blockSource) Prepare(_ context.Context) (size int) {
	return -1
}

// Fetch implements the corresponding method of pipeline.Source.
// Empty blocks are skipped, but the input must end in one.
func (s *blockSource) Fetch(_ int) (fetched int) {
	for s.err == nil && s.ctx.Err() == nil {
		b, err := s.readBlock()
		if err != nil {
			if err == io.EOF && !s.lastEmpty {
				err = ErrMissingEOF
			}
			s.err = err
			break
		}
		s.lastEmpty = b.size == 0
		if s.lastEmpty {
			putBlock(b)
			continue
		}
		s.data = b
		return 1
	}
	s.data = nil
	return 0
}

// Data implements the corresponding method of pipeline.Source.
func (s *blockSource) Data() interface{} {
	return s.data
}

var flateReaderPool sync.Pool

func inflate(compressed *block) (*block, error) {
	defer putBlock(compressed)
	src := bytes.NewReader(compressed.data)
	var fr io.ReadCloser
	if pooled := flateReaderPool.Get(); pooled != nil {
		fr = pooled.(io.ReadCloser)
		if err := fr.(flate.Resetter).Reset(src, nil); err != nil {
			fr = flate.NewReader(src)
		}
	} else {
		fr = flate.NewReader(src)
	}
	defer flateReaderPool.Put(fr)
	b := getBlock(int(compressed.size))
	if _, err := io.ReadFull(fr, b.data); err != nil {
		putBlock(b)
		return nil, unexpected(err)
	}
	if crc32.ChecksumIEEE(b.data) != compressed.crc {
		putBlock(b)
		return nil, ErrChecksum
	}
	return b, fr.Close()
}

// Reader reads a BGZF file, inflating blocks in parallel.
type Reader struct {
	p       pipeline.Pipeline
	src     *blockSource
	blocks  chan *block
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	current *block
	offset  int
}

// NewReader returns a Reader for the given io.Reader. The pipeline
// starts immediately and reads ahead of the consumer.
func NewReader(r io.Reader) *Reader {
	ctx, cancel := context.WithCancel(context.Background())
	bgzf := &Reader{
		blocks:  make(chan *block, 1),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	bgzf.src = &blockSource{ctx: ctx, r: r}
	bgzf.p.Source(bgzf.src)
	bgzf.p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			b, err := inflate(data.(*block))
			if err != nil {
				bgzf.p.SetErr(err)
				return nil
			}
			return b
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			b, _ := data.(*block)
			if b == nil {
				return nil
			}
			select {
			case <-bgzf.ctx.Done():
				putBlock(b)
			case bgzf.blocks <- b:
			}
			return nil
		})),
	)
	go func() {
		defer close(bgzf.stopped)
		defer close(bgzf.blocks)
		bgzf.p.Run()
	}()
	return bgzf
}

// Read implements the corresponding method of io.Reader.
func (bgzf *Reader) Read(p []byte) (n int, err error) {
	for bgzf.current == nil || bgzf.offset == len(bgzf.current.data) {
		putBlock(bgzf.current)
		bgzf.current = nil
		b, ok := <-bgzf.blocks
		if !ok {
			<-bgzf.stopped
			if err = bgzf.err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		bgzf.current, bgzf.offset = b, 0
	}
	n = copy(p, bgzf.current.data[bgzf.offset:])
	bgzf.offset += n
	return n, nil
}

// Close stops the pipeline and reports the first error it encountered.
func (bgzf *Reader) Close() error {
	bgzf.cancel()
	for b := range bgzf.blocks {
		putBlock(b)
	}
	<-bgzf.stopped
	putBlock(bgzf.current)
	bgzf.current = nil
	return bgzf.err()
}

// err must only be called once the pipeline has stopped.
func (bgzf *Reader) err() error {
	if err := bgzf.p.Err(); err != nil {
		return err
	}
	return bgzf.src.Err()
}
