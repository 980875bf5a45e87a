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

// Package chunk parses a block's payload into the tagged stream of
// path-push, path-pop, field-reference, data, and no-op chunks the rest
// of the decoder interprets.
package chunk

// Kind discriminates the chunk variants. It is a closed sum type: add
// new behavior by adding a case to the switches in parser.go, not by
// subclassing.
type Kind int

const (
	PathPush Kind = iota
	PathPop
	FieldRefSimple
	FieldRefLong
	DataSegment
	DataSimple
	Noop
)

func (k Kind) String() string {
	switch k {
	case PathPush:
		return "PATH_PUSH"
	case PathPop:
		return "PATH_POP"
	case FieldRefSimple:
		return "FIELD_REF_SIMPLE"
	case FieldRefLong:
		return "FIELD_REF_LONG"
	case DataSegment:
		return "DATA_SEGMENT"
	case DataSimple:
		return "DATA_SIMPLE"
	case Noop:
		return "NOOP"
	default:
		return "UNKNOWN"
	}
}

// Chunk is the atomic decoded unit within a block's payload.
//
// Data borrows from the block's payload buffer (zero-copy); it must not
// be retained past the callback it was handed to. Path is a snapshot of
// the traversal's path stack values at the moment this chunk was
// observed (after applying this chunk's own push/pop, if any).
type Chunk struct {
	Kind    Kind
	Ref     uint32 // FieldRefSimple / FieldRefLong: the reference code.
	Segment uint32 // DataSegment: the segment index.
	Data    []byte
	Path    []uint32
	Depth   int
	Version int
}

// Chain is an ordered sequence of chunks decoded from one block's
// payload, in decode order.
type Chain []Chunk
