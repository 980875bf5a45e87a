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

package chunk

// Tag bytes. The first byte of each chunk selects its variant and its
// length-encoding rules.
const (
	tagNoop           = 0x00
	tagPathPush1      = 0x01
	tagPathPush2      = 0x02
	tagPathPush3      = 0x03
	tagPathPop        = 0x08
	tagFieldRefSimple = 0x10
	tagFieldRefLong   = 0x11
	tagDataSegment    = 0x12
	tagDataSimple     = 0x13
)

// Parse consumes payload byte-by-byte and returns the ordered chunk
// chain it decodes. Parsing is purely a function of the payload bytes
// and the format version: it knows nothing about a traversal's path
// stack. The Path and Depth fields of each returned Chunk are left
// zero-valued; a traversal fills them in as it applies PathPush/PathPop
// chunks against its own stack.
//
// Truncated payloads end the chain cleanly: once fewer bytes remain
// than a tag's header+length require, parsing stops without error.
// Likewise, an unrecognized tag byte stops the chain without error —
// the remainder of the payload is discarded, but the block and the
// chunks already decoded remain valid.
func Parse(payload []byte, version int) Chain {
	var chain Chain
	i := 0
	n := len(payload)
	for i < n {
		tag := payload[i]
		switch {
		case tag == tagNoop:
			chain = append(chain, Chunk{Kind: Noop, Version: version})
			i++

		case tag == tagPathPush1:
			if i+2 > n {
				return chain
			}
			chain = append(chain, Chunk{Kind: PathPush, Data: payload[i+1 : i+2], Version: version})
			i += 2

		case tag == tagPathPush2:
			if i+3 > n {
				return chain
			}
			chain = append(chain, Chunk{Kind: PathPush, Data: payload[i+1 : i+3], Version: version})
			i += 3

		case tag == tagPathPush3:
			if i+4 > n {
				return chain
			}
			chain = append(chain, Chunk{Kind: PathPush, Data: payload[i+1 : i+4], Version: version})
			i += 4

		case tag == tagPathPop:
			chain = append(chain, Chunk{Kind: PathPop, Version: version})
			i++

		case tag == tagFieldRefSimple:
			if i+4 > n {
				return chain
			}
			ref := uint32(payload[i+1])
			length := int(beUint16(payload[i+2 : i+4]))
			start := i + 4
			if start+length > n {
				return chain
			}
			chain = append(chain, Chunk{
				Kind: FieldRefSimple, Ref: ref,
				Data: payload[start : start+length], Version: version,
			})
			i = start + length

		case tag == tagFieldRefLong:
			ref, consumed, ok := parseVarint(payload[i+1:])
			if !ok {
				return chain
			}
			lenOff := i + 1 + consumed
			if lenOff+2 > n {
				return chain
			}
			length := int(beUint16(payload[lenOff : lenOff+2]))
			start := lenOff + 2
			if start+length > n {
				return chain
			}
			chain = append(chain, Chunk{
				Kind: FieldRefLong, Ref: ref,
				Data: payload[start : start+length], Version: version,
			})
			i = start + length

		case tag == tagDataSegment:
			if i+5 > n {
				return chain
			}
			seg := uint32(beUint16(payload[i+1 : i+3]))
			length := int(beUint16(payload[i+3 : i+5]))
			start := i + 5
			if start+length > n {
				return chain
			}
			chain = append(chain, Chunk{
				Kind: DataSegment, Segment: seg,
				Data: payload[start : start+length], Version: version,
			})
			i = start + length

		case tag == tagDataSimple:
			if i+3 > n {
				return chain
			}
			length := int(beUint16(payload[i+1 : i+3]))
			start := i + 3
			if start+length > n {
				return chain
			}
			chain = append(chain, Chunk{Kind: DataSimple, Data: payload[start : start+length], Version: version})
			i = start + length

		default:
			// Unknown tag: the payload is considered exhausted from
			// here on, but the block itself and the chunks already
			// decoded are not invalidated.
			return chain
		}
	}
	return chain
}

func beUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// parseVarint reads a base-128 continuation-bit varint (MSB set means
// another byte follows), returning the value and the number of bytes
// consumed.
func parseVarint(b []byte) (value uint32, consumed int, ok bool) {
	for i := 0; i < len(b) && i < 5; i++ {
		value |= uint32(b[i]&0x7F) << (7 * i)
		if b[i]&0x80 == 0 {
			return value, i + 1, true
		}
	}
	return 0, 0, false
}
