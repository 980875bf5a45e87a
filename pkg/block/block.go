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

// Package block decodes a raw sector into a Block: the previous/next
// links that form the file's sector chain, the payload bytes, and the
// chunk chain parsed from that payload.
package block

import (
	"encoding/binary"

	"github.com/fluffyx/fmptools/pkg/chunk"
	"github.com/fluffyx/fmptools/pkg/hbamerr"
	"github.com/fluffyx/fmptools/pkg/sector"
)

// Block is a decoded sector.
type Block struct {
	ThisID  uint32
	PrevID  uint32
	NextID  uint32
	Payload []byte
	Chunks  chunk.Chain
}

// Decode extracts the previous/next ids and payload from raw according
// to h, then parses the payload into a chunk chain. thisID is the
// 1-based sector index raw was read from.
func Decode(raw []byte, h sector.Header, thisID uint32) (*Block, error) {
	const op = "block.Decode"
	if len(raw) < h.HeadLen {
		return nil, hbamerr.New(op, hbamerr.BadSector, nil)
	}

	prev := binary.BigEndian.Uint32(raw[h.PrevOff : h.PrevOff+4])
	next := binary.BigEndian.Uint32(raw[h.NextOff : h.NextOff+4])
	if h.ShiftIDs {
		prev >>= 1
		next >>= 1
	}

	var payload []byte
	if h.PaylenOff >= 0 {
		if h.PaylenOff+4 > len(raw) {
			return nil, hbamerr.New(op, hbamerr.BadSector, nil)
		}
		length := int(binary.BigEndian.Uint32(raw[h.PaylenOff : h.PaylenOff+4]))
		end := h.HeadLen + length
		if end > len(raw) {
			end = len(raw)
		}
		payload = raw[h.HeadLen:end]
	} else {
		payload = raw[h.HeadLen:]
	}

	b := &Block{
		ThisID:  thisID,
		PrevID:  prev,
		NextID:  next,
		Payload: payload,
	}
	b.Chunks = chunk.Parse(payload, h.Version)
	return b, nil
}
