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
	"hash/crc32"
	"io"
	"sync"

	"github.com/exascience/pargo/pipeline"
)

// blockQueue hands the blocks filled by Write to the pipeline.
type blockQueue struct {
	ctx    context.Context
	blocks <-chan *block
	data   *block
}

// Err implements the corresponding method of pipeline.Source.
func (*blockQueue) Err() error {
	return nil
}

// Prepare implements the corresponding method of pipeline.Source.
func (*blockQueue) Prepare(_ context.Context) (size int) {
	return -1
}

// Fetch implements the corresponding method of pipeline.Source.
func (q *blockQueue) Fetch(_ int) (fetched int) {
	select {
	case b, ok := <-q.blocks:
		if ok {
			q.data = b
			return 1
		}
	case <-q.ctx.Done():
	}
	q.data = nil
	return 0
}

// Data implements the corresponding method of pipeline.Source.
func (q *blockQueue) Data() interface{} {
	return q.data
}

// Writer writes a BGZF file, deflating blocks in parallel.
type Writer struct {
	w       io.Writer
	level   int
	p       pipeline.Pipeline
	blocks  chan *block
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	current *block
	closed  bool

	flateWriters sync.Pool
}

/*
NewWriter returns a Writer for the given io.Writer.

Levels follow compress/flate: 1 (BestSpeed) to 9 (BestCompression), 0
for no compression, -1 for the default compression level, and -2 for
Huffman-only compression.
*/
func NewWriter(w io.Writer, level int) (*Writer, error) {
	if _, err := flate.NewWriter(io.Discard, level); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	bgzf := &Writer{
		w:       w,
		level:   level,
		blocks:  make(chan *block, 1),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		current: getBlock(0),
	}
	bgzf.p.Source(&blockQueue{ctx: ctx, blocks: bgzf.blocks})
	bgzf.p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			b, err := bgzf.deflate(data.(*block))
			if err != nil {
				bgzf.fail(err)
				return nil
			}
			return b
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			b, _ := data.(*block)
			if b == nil {
				return nil
			}
			defer putBlock(b)
			if _, err := bgzf.w.Write(b.data); err != nil {
				bgzf.fail(err)
			}
			return nil
		})),
	)
	go func() {
		defer close(bgzf.stopped)
		bgzf.p.Run()
	}()
	return bgzf, nil
}

func (bgzf *Writer) fail(err error) {
	bgzf.p.SetErr(err)
	bgzf.cancel()
}

func (bgzf *Writer) deflate(payload *block) (*block, error) {
	defer putBlock(payload)
	out := getBlock(0)
	buf := bytes.NewBuffer(out.data)
	buf.Write(blockHeader)
	var fw *flate.Writer
	if pooled := bgzf.flateWriters.Get(); pooled != nil {
		fw = pooled.(*flate.Writer)
		fw.Reset(buf)
	} else {
		fw, _ = flate.NewWriter(buf, bgzf.level)
	}
	defer bgzf.flateWriters.Put(fw)
	if _, err := fw.Write(payload.data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint32(trailer[0:4], crc32.ChecksumIEEE(payload.data))
	binary.LittleEndian.PutUint32(trailer[4:8], uint32(len(payload.data)))
	buf.Write(trailer[:])
	out.data = buf.Bytes()
	binary.LittleEndian.PutUint16(out.data[16:18], uint16(len(out.data)-1))
	return out, nil
}

func (bgzf *Writer) send() error {
	select {
	case bgzf.blocks <- bgzf.current:
		bgzf.current = getBlock(0)
		return nil
	case <-bgzf.ctx.Done():
		<-bgzf.stopped
		return bgzf.p.Err()
	}
}

// Write implements the corresponding method of io.Writer.
func (bgzf *Writer) Write(p []byte) (n int, err error) {
	if bgzf.closed {
		return 0, ErrClosed
	}
	for len(p) > 0 {
		room := maxPayload - len(bgzf.current.data)
		k := len(p)
		if k > room {
			k = room
		}
		bgzf.current.data = append(bgzf.current.data, p[:k]...)
		p = p[k:]
		n += k
		if len(bgzf.current.data) == maxPayload {
			if err = bgzf.send(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// Close flushes the remaining data, waits for all blocks to be
// written, and appends the end-of-file marker. It does not close the
// underlying io.Writer.
func (bgzf *Writer) Close() error {
	if bgzf.closed {
		return nil
	}
	bgzf.closed = true
	if len(bgzf.current.data) > 0 {
		if err := bgzf.send(); err != nil {
			return err
		}
	}
	close(bgzf.blocks)
	<-bgzf.stopped
	bgzf.cancel()
	if err := bgzf.p.Err(); err != nil {
		return err
	}
	_, err := bgzf.w.Write(eofMarker)
	return err
}
