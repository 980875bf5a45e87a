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
	"github.com/fluffyx/fmptools/pkg/chunk"
	"github.com/fluffyx/fmptools/pkg/legacytext"
)

// ColumnType is the closed enum of column kinds the format encodes.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeNumber
	TypeDate
	TypeTime
	TypeTimestamp
	TypeContainer
	TypeCalc
	TypeSummary
	TypeGlobal
	TypeUnknown
)

func (t ColumnType) String() string {
	switch t {
	case TypeText:
		return "TEXT"
	case TypeNumber:
		return "NUMBER"
	case TypeDate:
		return "DATE"
	case TypeTime:
		return "TIME"
	case TypeTimestamp:
		return "TIMESTAMP"
	case TypeContainer:
		return "CONTAINER"
	case TypeCalc:
		return "CALC"
	case TypeSummary:
		return "SUMMARY"
	case TypeGlobal:
		return "GLOBAL"
	default:
		return "UNKNOWN"
	}
}

// clampColumnType clamps a raw on-disk type byte to the closed enum,
// per spec: anything past GLOBAL becomes UNKNOWN.
func clampColumnType(raw byte) ColumnType {
	if raw > byte(TypeGlobal) {
		return TypeUnknown
	}
	return ColumnType(raw)
}

// collationNames covers the handful of FileMaker collation ids
// documented by community reverse-engineering notes. It is pure
// enrichment: unknown ids resolve to "unknown" rather than erroring.
var collationNames = map[byte]string{
	0:  "english",
	1:  "ascii",
	2:  "international",
	3:  "french",
	4:  "german",
	5:  "italian",
	6:  "dutch",
	7:  "swedish",
	8:  "spanish",
	9:  "danish",
	10: "portuguese",
	11: "unicode_bin",
}

// TableDescriptor describes one table.
type TableDescriptor struct {
	Index int
	Name  string
	Skip  bool // reserved for caller policy; never set by the decoder itself
}

// ColumnDescriptor describes one column within a table.
type ColumnDescriptor struct {
	Index     int
	Name      string
	Type      ColumnType
	Collation byte
}

// CollationName returns the best-effort human name for c.Collation, or
// "unknown" if this id isn't in the documented set.
func (c ColumnDescriptor) CollationName() string {
	if name, ok := collationNames[c.Collation]; ok {
		return name
	}
	return "unknown"
}

// Metadata is the compacted result of metadata discovery: the ordered
// table list and, per table index, the ordered column list.
type Metadata struct {
	Tables         []TableDescriptor
	ColumnsByTable map[int][]ColumnDescriptor
}

// TableByIndex returns the table with the given 1-based index, if any.
func (m *Metadata) TableByIndex(index int) (TableDescriptor, bool) {
	for _, t := range m.Tables {
		if t.Index == index {
			return t, true
		}
	}
	return TableDescriptor{}, false
}

// ColumnByIndex returns the column with the given 1-based index within
// tableIndex, if any.
func (m *Metadata) ColumnByIndex(tableIndex, columnIndex int) (ColumnDescriptor, bool) {
	for _, c := range m.ColumnsByTable[tableIndex] {
		if c.Index == columnIndex {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// sparse accumulators used during discovery, compacted at the end.
type metadataBuilder struct {
	tableOrder  []int
	tables      map[int]TableDescriptor
	columnOrder map[int][]int
	columns     map[int]map[int]ColumnDescriptor
}

func newMetadataBuilder() *metadataBuilder {
	return &metadataBuilder{
		tables:      make(map[int]TableDescriptor),
		columnOrder: make(map[int][]int),
		columns:     make(map[int]map[int]ColumnDescriptor),
	}
}

func (b *metadataBuilder) setTable(index int, name string) {
	if _, ok := b.tables[index]; !ok {
		b.tableOrder = append(b.tableOrder, index)
	}
	b.tables[index] = TableDescriptor{Index: index, Name: name}
}

func (b *metadataBuilder) columnName(tableIndex, columnIndex int, name string) {
	b.ensureColumn(tableIndex, columnIndex)
	c := b.columns[tableIndex][columnIndex]
	c.Name = name
	b.columns[tableIndex][columnIndex] = c
}

func (b *metadataBuilder) columnTypeAndCollation(tableIndex, columnIndex int, typ ColumnType, collation byte) {
	b.ensureColumn(tableIndex, columnIndex)
	c := b.columns[tableIndex][columnIndex]
	c.Type = typ
	c.Collation = collation
	b.columns[tableIndex][columnIndex] = c
}

func (b *metadataBuilder) ensureColumn(tableIndex, columnIndex int) {
	if b.columns[tableIndex] == nil {
		b.columns[tableIndex] = make(map[int]ColumnDescriptor)
	}
	if _, ok := b.columns[tableIndex][columnIndex]; !ok {
		b.columnOrder[tableIndex] = append(b.columnOrder[tableIndex], columnIndex)
		b.columns[tableIndex][columnIndex] = ColumnDescriptor{Index: columnIndex}
	}
}

// compact removes index-0 entries from tables and per-table columns,
// preserving insertion order, and returns the resulting Metadata.
func (b *metadataBuilder) compact() *Metadata {
	m := &Metadata{ColumnsByTable: make(map[int][]ColumnDescriptor)}
	for _, idx := range b.tableOrder {
		if idx == 0 {
			continue
		}
		m.Tables = append(m.Tables, b.tables[idx])
	}
	for tableIndex, order := range b.columnOrder {
		var cols []ColumnDescriptor
		for _, idx := range order {
			if idx == 0 {
				continue
			}
			cols = append(cols, b.columns[tableIndex][idx])
		}
		if len(cols) > 0 {
			m.ColumnsByTable[tableIndex] = cols
		}
	}
	return m
}

// DiscoverAllMetadata drives a fresh traversal, populating tables and
// columns per the path-matching rules in spec.md §4.6, then compacts
// and returns the result. Discovery is idempotent: two runs over the
// same File produce byte-identical Metadata, since it only depends on
// the on-disk bytes and the deterministic traversal order.
func DiscoverAllMetadata(f *File) (*Metadata, error) {
	b := newMetadataBuilder()
	v7 := f.header.Version >= 7

	if !v7 {
		b.setTable(1, f.name)
	}

	err := f.walk(func(c chunk.Chunk, ctx any) Verdict {
		path := c.Path
		if v7 {
			if len(path) > 0 && path[0] > 3 && path[0] < 128 {
				return Done
			}
			if len(path) == 4 && path[1] == 16 && path[2] == 5 &&
				path[0] >= 128 && path[3] >= 128 &&
				c.Kind == chunk.FieldRefSimple && c.Ref == 16 {
				tableIndex := int(path[3] - 128)
				name, _ := legacytext.Decode(c.Data, f.header.XORMask, f.header.Charset)
				b.setTable(tableIndex, name)
				return Next
			}
			if len(path) == 5 && path[1] == 3 && path[2] == 3 && path[3] == 5 &&
				path[0] >= 128 &&
				c.Kind == chunk.FieldRefSimple && c.Ref == 16 {
				tableIndex := int(path[0] - 128)
				columnIndex := int(path[4])
				name, _ := legacytext.Decode(c.Data, f.header.XORMask, f.header.Charset)
				b.columnName(tableIndex, columnIndex, name)
				return Next
			}
			return Next
		}

		// v<=6: single synthesized table, index 1.
		if len(path) > 0 && path[0] > 3 {
			return Done
		}
		if len(path) == 4 && path[0] <= 3 && path[1] == 3 && path[2] == 5 {
			columnIndex := int(path[3])
			switch {
			case c.Kind == chunk.FieldRefSimple && c.Ref == 1:
				name, _ := legacytext.Decode(c.Data, f.header.XORMask, f.header.Charset)
				b.columnName(1, columnIndex, name)
			case c.Kind == chunk.FieldRefSimple && c.Ref == 2 && len(c.Data) >= 4:
				typ := clampColumnType(c.Data[1])
				collation := c.Data[3]
				b.columnTypeAndCollation(1, columnIndex, typ, collation)
			}
		}
		return Next
	}, nil, nil)
	if err != nil {
		return nil, err
	}

	meta := b.compact()
	for _, t := range meta.Tables {
		if len(meta.ColumnsByTable[t.Index]) == 0 {
			logger.Printf("table %q (index %d) has zero columns; skipping during value extraction is the caller's call", t.Name, t.Index)
		}
	}
	return meta, nil
}
