/*
Copyright 2011 Google Inc.

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
	"container/list"

	"github.com/fluffyx/fmptools/pkg/block"
)

// defaultCachePrefix is how many low-numbered blocks stay pinned
// regardless of LRU pressure, per the format's tolerance for limited
// back-reference (spec.md §4.4's memory policy).
const defaultCachePrefix = 100

// blockCache bounds how many decoded blocks a traversal keeps around.
// It is adapted from the teacher's pkg/lru.Cache (container/list + map)
// rather than the ad-hoc "first 100, free the rest" bookkeeping the
// original format's own tooling used: low-numbered blocks (the
// "prefix") are pinned outright. Beyond the prefix, a fully-buffered
// file keeps every decoded block, and a memory-mapped file's blocks
// ride a bounded LRU (see put and File.getBlock).
type blockCache struct {
	prefix     int
	maxEntries int

	pinned map[uint32]*block.Block

	ll    *list.List
	cache map[uint32]*list.Element
}

type cacheEntry struct {
	id    uint32
	block *block.Block
}

func newBlockCache(prefix int) *blockCache {
	return &blockCache{
		prefix:     prefix,
		maxEntries: 256,
		pinned:     make(map[uint32]*block.Block),
		ll:         list.New(),
		cache:      make(map[uint32]*list.Element),
	}
}

func (c *blockCache) get(id uint32) (*block.Block, bool) {
	if b, ok := c.pinned[id]; ok {
		return b, true
	}
	if ee, ok := c.cache[id]; ok {
		c.ll.MoveToFront(ee)
		return ee.Value.(*cacheEntry).block, true
	}
	return nil, false
}

// put stores b for id. The low-numbered prefix is always pinned
// outright (tolerating limited back-reference regardless of backing
// mode). Beyond the prefix: fully-buffered files (mapped == false)
// retain every block, matching the memory policy for that case;
// memory-mapped files instead ride a bounded LRU, since re-decoding a
// mapped sector later is cheap but still not free when a traversal
// revisits the same handful of blocks repeatedly.
func (c *blockCache) put(id uint32, b *block.Block, mapped bool) {
	if int(id) < c.prefix {
		c.pinned[id] = b
		return
	}
	if !mapped {
		c.pinned[id] = b
		return
	}
	if ee, ok := c.cache[id]; ok {
		c.ll.MoveToFront(ee)
		ee.Value.(*cacheEntry).block = b
		return
	}
	ee := c.ll.PushFront(&cacheEntry{id: id, block: b})
	c.cache[id] = ee
	if c.maxEntries > 0 && c.ll.Len() > c.maxEntries {
		c.removeOldest()
	}
}

func (c *blockCache) removeOldest() {
	ee := c.ll.Back()
	if ee == nil {
		return
	}
	c.ll.Remove(ee)
	delete(c.cache, ee.Value.(*cacheEntry).id)
}

func (c *blockCache) clear() {
	c.pinned = make(map[uint32]*block.Block)
	c.ll.Init()
	c.cache = make(map[uint32]*list.Element)
}
