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

package hbam

import (
	"github.com/fluffyx/fmptools/pkg/block"
	"github.com/fluffyx/fmptools/pkg/chunk"
	"github.com/fluffyx/fmptools/pkg/hbamerr"
)

// Verdict is what a callback returns to steer the traversal.
type Verdict int

const (
	Next Verdict = iota
	Done
	Abort
)

// ChunkHandler observes every chunk a traversal decodes, in order.
type ChunkHandler func(c chunk.Chunk, ctx any) Verdict

// BlockHandler optionally filters whole blocks: returning false skips
// that block's chunks (its next-id is still followed).
type BlockHandler func(b *block.Block, ctx any) bool

// walk drives the traversal described in spec.md §4.4: starting block,
// next-id following with loop detection, per-chunk path-stack
// maintenance, and the ChunkHandler/BlockHandler contract.
//
// The path stack is reset once here, at the start of the traversal, and
// never per block — cross-block path continuity is a deliberate design
// choice; resetting per block produces wrong metadata.
func (f *File) walk(onChunk ChunkHandler, onBlock BlockHandler, ctx any) error {
	const op = "hbam.walk"
	f.stack.Reset()

	startID := uint32(1)
	if f.header.Version < 7 {
		startID = 2
	}

	numBlocks := f.loader.NumSectors()
	maxIter := f.maxTraversalFactor * numBlocks
	if maxIter <= 0 {
		maxIter = 2
	}

	visited := make(map[uint32]bool, numBlocks)
	id := startID
	for iter := 0; id != 0 && !visited[id]; iter++ {
		if iter >= maxIter {
			logger.Printf("traversal safety cap reached after %d iterations; stopping", iter)
			return nil
		}
		visited[id] = true

		b, err := f.getBlock(id)
		if err != nil {
			return err
		}

		if onBlock == nil || onBlock(b, ctx) {
			for _, c := range b.Chunks {
				switch c.Kind {
				case chunk.PathPush:
					f.stack.Push(c.Data, f.header.Version)
				case chunk.PathPop:
					f.stack.Pop()
				}
				c.Path = f.stack.Values()
				c.Depth = f.stack.Depth()

				switch onChunk(c, ctx) {
				case Done:
					return nil
				case Abort:
					return hbamerr.New(op, hbamerr.UserAborted, nil)
				}
			}
		}

		id = b.NextID
	}
	if id != 0 {
		logger.Printf("sector chain loop detected at block %d; traversal halted", id)
	}
	return nil
}
