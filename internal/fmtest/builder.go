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

// Package fmtest builds synthetic FileMaker Pro byte images for tests,
// so the decoder's test suite never has to commit real .fp7/.fmp12
// binaries to the tree.
package fmtest

import (
	"encoding/binary"

	"github.com/fluffyx/fmptools/pkg/sector"
)

// Builder assembles a minimal but bit-exact file image: a header
// sector followed by caller-supplied data sectors.
type Builder struct {
	dialect    string
	sectorSize int
	xorMask    byte
	shiftIDs   bool
	v12        bool

	blocks [][]byte // one already-encoded sector per data block, in file order
}

// NewHBAM3Builder returns a Builder for a v3 file (1024-byte sectors,
// no XOR mask, shifted sector ids, an unused throwaway sector 1).
func NewHBAM3Builder() *Builder {
	return &Builder{dialect: "HBAM3", sectorSize: 1024, xorMask: 0x00, shiftIDs: true}
}

// NewHBAM5Builder returns a Builder for a v5/v6 file.
func NewHBAM5Builder() *Builder {
	return &Builder{dialect: "HBAM5", sectorSize: 1024, xorMask: 0x00, shiftIDs: true}
}

// NewHBAM7Builder returns a Builder for a v7 file (4096-byte sectors,
// 0x5A XOR mask).
func NewHBAM7Builder() *Builder {
	return &Builder{dialect: "HBAM7", sectorSize: 4096, xorMask: 0x5A}
}

// NewV12Builder returns a Builder for a v12 file: same wire geometry
// as v7, but with the byte-521 selector set so ParseHeader reports
// version 12.
func NewV12Builder() *Builder {
	return &Builder{dialect: "HBAM7", sectorSize: 4096, xorMask: 0x5A, v12: true}
}

// XORMask exposes the dialect's text XOR mask, so callers can mask
// cell bytes the way the real format does before appending them to a
// chunk payload.
func (b *Builder) XORMask() byte { return b.xorMask }

// AddBlock appends a data sector encoding prev/next links and payload
// under the Builder's dialect geometry. Block ids are implied by
// position: the first AddBlock call becomes the file's first
// addressable block.
func (b *Builder) AddBlock(prevID, nextID uint32, payload []byte) {
	raw := make([]byte, b.sectorSize)
	prev, next := prevID, nextID
	if b.shiftIDs {
		prev <<= 1
		next <<= 1
	}
	binary.BigEndian.PutUint32(raw[4:8], prev)
	binary.BigEndian.PutUint32(raw[8:12], next)

	if b.dialect != "HBAM7" {
		binary.BigEndian.PutUint32(raw[12:16], uint32(len(payload)))
		copy(raw[14:], payload)
	} else {
		copy(raw[20:], payload)
	}
	b.blocks = append(b.blocks, raw)
}

// Bytes assembles the full file image: header sector, a throwaway
// sector 1 for v<=6 dialects, then every added block in order.
//
// The first data block's next-id field is stamped with the chain's
// declared block count (see fmp.c's fmp_file_from_stream), overriding
// whatever nextID its own AddBlock call passed — that field is never a
// real chain pointer for block 1, only the declared total the loader's
// chain-count check cross-validates against the file size.
func (b *Builder) Bytes() []byte {
	var out []byte
	out = append(out, b.headerSector()...)
	if b.dialect != "HBAM7" {
		out = append(out, make([]byte, b.sectorSize)...)
	}
	if len(b.blocks) > 0 {
		total := uint32(len(b.blocks))
		if b.shiftIDs {
			total <<= 1
		}
		binary.BigEndian.PutUint32(b.blocks[0][8:12], total)
	}
	for _, blk := range b.blocks {
		out = append(out, blk...)
	}
	return out
}

func (b *Builder) headerSector() []byte {
	raw := make([]byte, b.sectorSize)
	copy(raw, sector.Magic)
	copy(raw[15:20], []byte(b.dialect))
	if b.v12 {
		raw[521] = 0x1E
	}
	versionDate := "2024"
	copy(raw[531:531+len(versionDate)], versionDate)
	versionStr := "12.0"
	raw[541] = byte(len(versionStr))
	copy(raw[542:], versionStr)
	return raw
}

// Tag bytes, mirroring pkg/chunk's private tag constants so fixture
// payloads are built against the same wire encoding the parser reads.
const (
	tagPathPush1      = 0x01
	tagPathPush2      = 0x02
	tagPathPop        = 0x08
	tagFieldRefSimple = 0x10
	tagDataSegment    = 0x12
)

// PathPush1 encodes a single-byte path element push.
func PathPush1(v byte) []byte {
	return []byte{tagPathPush1, v}
}

// PathPush2 encodes a two-byte path element push.
func PathPush2(hi, lo byte) []byte {
	return []byte{tagPathPush2, hi, lo}
}

// PathPop encodes a path-pop chunk.
func PathPop() []byte {
	return []byte{tagPathPop}
}

// FieldRefSimple encodes a FIELD_REF_SIMPLE chunk carrying data.
func FieldRefSimple(ref byte, data []byte) []byte {
	out := []byte{tagFieldRefSimple, ref, byte(len(data) >> 8), byte(len(data))}
	return append(out, data...)
}

// DataSegment encodes a DATA_SEGMENT chunk carrying data.
func DataSegment(seg uint16, data []byte) []byte {
	out := []byte{tagDataSegment, byte(seg >> 8), byte(seg), byte(len(data) >> 8), byte(len(data))}
	return append(out, data...)
}

// Concat joins a sequence of already-encoded chunks into one payload.
func Concat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// MaskText XORs plaintext bytes against mask, the way the real format
// masks on-disk cell and name bytes.
func MaskText(mask byte, plaintext string) []byte {
	out := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i++ {
		out[i] = plaintext[i] ^ mask
	}
	return out
}
