/*
Copyright 2013 The Camlistore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sector

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/fluffyx/fmptools/pkg/hbamerr"
)

// MmapThreshold is the file size, in bytes, at or above which Open
// memory-maps the file instead of streaming it through buffered reads.
const MmapThreshold = 100 << 20 // 100 MiB

// Loader provides random-access retrieval of decoded sectors. It is the
// File's sole owner of the backing stream or mapping.
type Loader struct {
	header Header

	f       *os.File
	mapping mmap.MMap // nil unless mapped
	buf     []byte    // backing bytes: either mapping or a fully-read buffer
	mapped  bool

	size int
}

// Option configures a Loader at construction time.
type Option func(*options)

type options struct {
	mmapThreshold int64
}

func defaultOptions() *options {
	return &options{mmapThreshold: MmapThreshold}
}

// WithMmapThreshold overrides the file-size threshold above which Open
// memory-maps the file.
func WithMmapThreshold(n int64) Option {
	return func(o *options) { o.mmapThreshold = n }
}

// Open opens path for read. Files at or above the configured mmap
// threshold are memory-mapped read-only; smaller files are read fully
// into memory (the "buffered reads" path — random access into an
// in-memory buffer needs no further I/O per sector).
func Open(path string, opts ...Option) (*Loader, error) {
	const op = "sector.Open"
	cfg := defaultOptions()
	for _, o := range opts {
		o(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, hbamerr.New(op, hbamerr.Open, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, hbamerr.New(op, hbamerr.Seek, err)
	}

	l := &Loader{f: f, size: int(fi.Size())}
	if fi.Size() >= cfg.mmapThreshold {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, hbamerr.New(op, hbamerr.NoMemoryMapAvailable, err)
		}
		l.mapping = m
		l.buf = []byte(m)
		l.mapped = true
	} else {
		buf := make([]byte, fi.Size())
		if _, err := io.ReadFull(f, buf); err != nil {
			f.Close()
			return nil, hbamerr.New(op, hbamerr.Read, err)
		}
		l.buf = buf
	}

	if err := l.parseHeader(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// OpenBuffer opens an in-memory copy of a file's bytes. It never maps
// and owns no OS resources beyond the buffer itself.
func OpenBuffer(buf []byte) (*Loader, error) {
	l := &Loader{buf: buf, size: len(buf)}
	if err := l.parseHeader(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) parseHeader() error {
	const op = "sector.parseHeader"
	if l.size == 0 {
		return hbamerr.New(op, hbamerr.BadSectorCount, nil)
	}
	if len(l.buf) < 1024 {
		return hbamerr.New(op, hbamerr.BadSector, nil)
	}
	h, err := ParseHeader(l.buf)
	if err != nil {
		return err
	}
	l.header = h

	shift := 0
	if h.Version < 7 {
		shift = 1
	}
	if l.size%h.SectorSize != 0 {
		return hbamerr.New(op, hbamerr.BadSectorCount, nil)
	}
	numFileSectors := l.size / h.SectorSize
	if numFileSectors < 1+shift {
		return hbamerr.New(op, hbamerr.BadSectorCount, nil)
	}
	return l.validateChainCount()
}

// validateChainCount cross-checks the file's actual size against the
// block count the chain itself declares, per fmp.c's fmp_file_from_stream:
// the first data block's next-id field does not point at another
// block — it holds the total number of blocks in the chain — and a
// sector-aligned file whose declared total doesn't match what's
// actually present (a truncated or inflated final block) is corrupt.
func (l *Loader) validateChainCount() error {
	const op = "sector.parseHeader"
	shift := 0
	if l.header.Version < 7 {
		shift = 1
	}
	raw, err := l.GetSector(1 + shift)
	if err != nil {
		return hbamerr.New(op, hbamerr.BadSectorCount, nil)
	}
	if l.header.NextOff+4 > len(raw) {
		return hbamerr.New(op, hbamerr.BadSectorCount, nil)
	}
	declaredTotal := binary.BigEndian.Uint32(raw[l.header.NextOff : l.header.NextOff+4])
	if l.header.ShiftIDs {
		declaredTotal >>= 1
	}
	if declaredTotal == 0 || (int(declaredTotal)+1+shift)*l.header.SectorSize != l.size {
		return hbamerr.New(op, hbamerr.BadSectorCount, nil)
	}
	return nil
}

// Header returns the parsed header.
func (l *Loader) Header() Header { return l.header }

// NumSectors returns the number of data blocks the file holds (the
// header sector, and for v<=6 the throwaway sector 1, are excluded).
func (l *Loader) NumSectors() int {
	shift := 0
	if l.header.Version < 7 {
		shift = 1
	}
	return l.size/l.header.SectorSize - 1 - shift
}

// IsMapped reports whether the loader backs onto a memory mapping
// (rather than a fully-buffered in-memory copy).
func (l *Loader) IsMapped() bool { return l.mapped }

// GetSector returns the raw bytes of the 1-based sector at index. The
// returned slice is a zero-copy view into the mapping or buffer; it
// must not be retained past the current operation, and it must not be
// mutated.
func (l *Loader) GetSector(index int) ([]byte, error) {
	const op = "sector.GetSector"
	start := index * l.header.SectorSize
	end := start + l.header.SectorSize
	if index < 0 || end > len(l.buf) {
		return nil, hbamerr.New(op, hbamerr.BadSector, nil)
	}
	return l.buf[start:end], nil
}

// Close releases the mapping/stream. It is safe to call more than
// once.
func (l *Loader) Close() error {
	var err error
	if l.mapping != nil {
		err = l.mapping.Unmap()
		l.mapping = nil
	}
	if l.f != nil {
		if cerr := l.f.Close(); err == nil {
			err = cerr
		}
		l.f = nil
	}
	l.buf = nil
	return err
}

