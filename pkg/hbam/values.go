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

// richTextRef is the FIELD_REF_SIMPLE ref code that marks inline
// rich-text formatting interleaved within a long-string's fragments.
// It carries no cell content and is discarded.
const richTextRef = 0

// skipRef is the still-undocumented ref code the source itself skips
// on a short-cell path; see the design notes on ref_simple = 252.
const skipRef = 252

// ValueHandler observes one cell at a time within a single-table scan.
type ValueHandler func(row, column int, utf8 string, ctx any) Verdict

// TableValueHandler observes one cell at a time across every table in
// a combined scan.
type TableValueHandler func(tableIndex, row, column int, utf8 string, ctx any) Verdict

// tableScanState is the per-table bookkeeping read_all_values carries
// across the whole traversal: the emitted row counter, the most recent
// path-derived row and column seen, and any in-flight long-string
// fragment buffer.
type tableScanState struct {
	columnCount int

	currentRow int
	lastRow    int
	lastColumn int

	hasLong    bool
	longColumn int
	longBuf    []byte
}

// ReadValues streams the cell values of one table.
func ReadValues(f *File, meta *Metadata, tableIndex int, handler ValueHandler, ctx any) error {
	if handler == nil {
		return nil
	}
	adapter := func(ti, row, column int, utf8 string, c any) Verdict {
		if ti != tableIndex {
			return Next
		}
		return handler(row, column, utf8, c)
	}
	return ReadAllValues(f, meta, adapter, ctx)
}

// pathDepth mirrors table_path_depth(): the logical nesting depth that
// spec.md §4.7's path-matching rules are stated in is not the raw
// element count of Path. A v>=7 path carries a leading table selector
// that doesn't count toward the depth; a v<7 path doesn't have one.
func pathDepth(path []uint32, v7 bool) int {
	if v7 {
		return len(path) - 1
	}
	return len(path)
}

// matchesTableData reports whether path is a depth-2 table-data path: a
// short cell addressed directly by its row — [Table, 5, Row] for v>=7,
// [5, Row] for v<7.
func matchesTableData(path []uint32, v7 bool) bool {
	if pathDepth(path, v7) != 2 {
		return false
	}
	if v7 {
		return path[0] >= 128 && path[1] == 5
	}
	return path[0] == 5
}

// matchesLongStringPath reports whether path is a depth-3 long-string
// fragment path — [Table, 5, Row, Column] for v>=7, [5, Row, Column]
// for v<7.
func matchesLongStringPath(path []uint32, v7 bool) bool {
	if pathDepth(path, v7) != 3 {
		return false
	}
	if v7 {
		return path[0] >= 128 && path[1] == 5
	}
	return path[0] == 5
}

// pathRow extracts the path-derived row value, which sits at the same
// offset right after the literal "5" marker for both path shapes above.
func pathRow(path []uint32, v7 bool) int {
	if v7 {
		return int(path[2])
	}
	return int(path[1])
}

// pathColumn extracts the column index out of a matchesLongStringPath
// path.
func pathColumn(path []uint32, v7 bool) int {
	if v7 {
		return int(path[3])
	}
	return int(path[2])
}

// ReadAllValues drives one traversal and streams every table's cell
// values, per spec.md §4.7: short cells and long-string fragments are
// told apart by path depth, long strings reassemble across fragments,
// and the row boundary is the path-derived row value advancing (or the
// column regressing within the same row) rather than anything the wire
// format marks explicitly.
func ReadAllValues(f *File, meta *Metadata, handler TableValueHandler, ctx any) error {
	if handler == nil {
		return nil
	}
	v7 := f.header.Version >= 7
	states := make(map[int]*tableScanState)

	stateFor := func(tableIndex int) (*tableScanState, bool) {
		st, ok := states[tableIndex]
		if ok {
			return st, true
		}
		if t, ok := meta.TableByIndex(tableIndex); ok && t.Skip {
			return nil, false
		}
		cols, ok := meta.ColumnsByTable[tableIndex]
		if !ok {
			return nil, false
		}
		st = &tableScanState{columnCount: len(cols)}
		states[tableIndex] = st
		return st, true
	}

	flush := func(tableIndex int, st *tableScanState) Verdict {
		if !st.hasLong {
			return Next
		}
		value, _ := legacytext.Decode(st.longBuf, f.header.XORMask, f.header.Charset)
		st.hasLong = false
		st.longBuf = st.longBuf[:0]
		return handler(tableIndex, st.currentRow, st.longColumn, value, ctx)
	}

	err := f.walk(func(c chunk.Chunk, _ any) Verdict {
		if c.Kind != chunk.FieldRefSimple && c.Kind != chunk.DataSegment {
			return Next
		}
		path := c.Path

		var tableIndex int
		if v7 {
			if len(path) == 0 || path[0] < 128 {
				return Next
			}
			tableIndex = int(path[0] - 128)
		} else {
			tableIndex = 1
		}

		st, ok := stateFor(tableIndex)
		if !ok {
			return Next
		}

		var columnIndex int
		longString := false

		switch {
		case matchesLongStringPath(path, v7):
			col := pathColumn(path, v7)
			if st.lastColumn == 0 || col < st.lastColumn {
				if pathRow(path, v7) <= st.lastRow {
					return Next
				}
			} else if pathRow(path, v7) != st.lastRow {
				return Next
			}
			if c.Kind == chunk.FieldRefSimple && c.Ref == richTextRef {
				return Next
			}
			longString = true
			columnIndex = col

		case matchesTableData(path, v7):
			ci, ok := resolveShortCellColumn(c, st.columnCount)
			if !ok {
				return Next
			}
			columnIndex = ci

		default:
			return Next
		}

		if columnIndex == 0 {
			return Next
		}
		if _, ok := meta.ColumnByIndex(tableIndex, columnIndex); !ok {
			return Next
		}

		if columnIndex != st.lastColumn && st.hasLong {
			if v := flush(tableIndex, st); v != Next {
				return v
			}
		}

		row := pathRow(path, v7)
		if row != st.lastRow || columnIndex < st.lastColumn {
			st.currentRow++
		}

		verdict := Next
		if longString {
			st.hasLong = true
			st.longColumn = columnIndex
			st.longBuf = append(st.longBuf, c.Data...)
		} else {
			value, _ := legacytext.Decode(c.Data, f.header.XORMask, f.header.Charset)
			verdict = handler(tableIndex, st.currentRow, columnIndex, value, ctx)
		}

		st.lastRow = row
		st.lastColumn = columnIndex
		return verdict
	}, nil, nil)
	if err != nil {
		return err
	}
	for tableIndex, st := range states {
		flush(tableIndex, st)
	}
	return nil
}

// resolveShortCellColumn classifies a short-cell chunk's column index
// per spec.md §4.7: a FIELD_REF_SIMPLE names the column directly
// (skipping the undocumented ref 252 and anything past the table's
// column count), a DATA_SEGMENT names it via its segment index.
func resolveShortCellColumn(c chunk.Chunk, columnCount int) (int, bool) {
	switch c.Kind {
	case chunk.FieldRefSimple:
		if c.Ref == skipRef || int(c.Ref) > columnCount {
			return 0, false
		}
		return int(c.Ref), true
	case chunk.DataSegment:
		if int(c.Segment) > columnCount {
			return 0, false
		}
		return int(c.Segment), true
	default:
		return 0, false
	}
}
