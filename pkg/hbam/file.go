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

// Package hbam is the public entry point to the FileMaker Pro decoder:
// opening a file, discovering its tables and columns, and streaming its
// row values through callbacks. Everything below it (sector, block,
// chunk, pathval, legacytext) is assembled here into the File type and
// the two semantic passes described by the design (metadata discovery,
// row-value extraction).
package hbam

import (
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/fluffyx/fmptools/pkg/block"
	"github.com/fluffyx/fmptools/pkg/hbamerr"
	"github.com/fluffyx/fmptools/pkg/pathval"
	"github.com/fluffyx/fmptools/pkg/sector"
)

// logger receives the diagnostic warnings spec.md §7 requires (loop
// detected, table skipped for zero columns, ...). It never influences a
// call's return value. Hosts may redirect it with SetLogOutput, mirroring
// the teacher's own pattern of a package-level logger that callers can
// re-point at a buffer in tests.
var logger = log.New(log.Writer(), "hbam: ", log.LstdFlags)

// SetLogOutput redirects the package's diagnostic logger.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

// File is an open decoding session: the sector loader, the parsed
// header, the live path stack used by whichever traversal is currently
// running, and a block cache. It is immutable after the header
// parse except for that traversal state.
type File struct {
	loader *sector.Loader
	header sector.Header
	name   string // basename without extension, used to synthesize the v<=6 table name

	stack *pathval.Stack
	cache *blockCache

	maxTraversalFactor   int
	pendingMmapThreshold *int64
}

// Option configures a File at Open/OpenBuffer time.
type Option func(*File)

// WithMmapThreshold overrides the file-size threshold above which Open
// memory-maps the backing file instead of reading it fully into memory.
func WithMmapThreshold(n int64) Option {
	return func(f *File) { f.pendingMmapThreshold = &n }
}

// WithBlockCachePrefix overrides how many low-numbered blocks stay
// pinned in the cache regardless of LRU pressure (default 100, per the
// format's documented tolerance for limited back-reference).
func WithBlockCachePrefix(n int) Option {
	return func(f *File) { f.cache.prefix = n }
}

// WithMaxTraversalFactor overrides the traversal's safety cap,
// expressed as a multiple of the block count (default 2, per spec).
func WithMaxTraversalFactor(n int) Option {
	return func(f *File) { f.maxTraversalFactor = n }
}

// Open opens path for read and parses its header. Files at or above the
// mmap threshold are memory-mapped; smaller files are read fully into
// memory. See sector.Open for the exact policy.
func Open(path string, opts ...Option) (*File, error) {
	f := newFile()
	f.name = baseNameNoExt(path)

	for _, o := range opts {
		o(f)
	}

	var sopts []sector.Option
	if f.pendingMmapThreshold != nil {
		sopts = append(sopts, sector.WithMmapThreshold(*f.pendingMmapThreshold))
	}
	loader, err := sector.Open(path, sopts...)
	if err != nil {
		return nil, err
	}
	f.loader = loader
	f.header = loader.Header()
	return f, nil
}

// OpenBuffer opens an in-memory copy of a file's bytes.
func OpenBuffer(buf []byte, opts ...Option) (*File, error) {
	f := newFile()
	for _, o := range opts {
		o(f)
	}
	loader, err := sector.OpenBuffer(buf)
	if err != nil {
		return nil, err
	}
	f.loader = loader
	f.header = loader.Header()
	return f, nil
}

func newFile() *File {
	return &File{
		stack:              &pathval.Stack{},
		cache:              newBlockCache(defaultCachePrefix),
		maxTraversalFactor: 2,
	}
}

func baseNameNoExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Close releases the File's loader and cached blocks.
func (f *File) Close() error {
	f.cache.clear()
	if f.loader == nil {
		return nil
	}
	return f.loader.Close()
}

// Version returns the decoded format version (3, 5, 6, 7, or 12).
func (f *File) Version() int { return f.header.Version }

// getBlock returns the decoded block at id, consulting the cache first.
func (f *File) getBlock(id uint32) (*block.Block, error) {
	const op = "hbam.getBlock"
	if b, ok := f.cache.get(id); ok {
		return b, nil
	}
	raw, err := f.loader.GetSector(int(id))
	if err != nil {
		return nil, hbamerr.New(op, hbamerr.BadSector, err)
	}
	b, err := block.Decode(raw, f.header, id)
	if err != nil {
		return nil, err
	}
	f.cache.put(id, b, f.loader.IsMapped())
	return b, nil
}
