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
	"testing"

	"github.com/fluffyx/fmptools/internal/fmtest"
	"github.com/fluffyx/fmptools/pkg/hbamerr"
)

type observedCell struct {
	table, row, column int
	value              string
}

func peopleMetadata() *Metadata {
	return &Metadata{
		Tables: []TableDescriptor{{Index: 0, Name: "People"}},
		ColumnsByTable: map[int][]ColumnDescriptor{
			0: {{Index: 1, Name: "Name"}},
		},
	}
}

func TestReadAllValuesTwoRowsSameColumn(t *testing.T) {
	b := fmtest.NewHBAM7Builder()
	mask := b.XORMask()

	payload := fmtest.Concat(
		fmtest.PathPush1(128),
		fmtest.PathPush1(5),
		fmtest.PathPush1(1), // row 1
		fmtest.FieldRefSimple(1, fmtest.MaskText(mask, "Ada")),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),

		fmtest.PathPush1(128),
		fmtest.PathPush1(5),
		fmtest.PathPush1(2), // row 2
		fmtest.FieldRefSimple(1, fmtest.MaskText(mask, "Grace")),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),
	)
	b.AddBlock(0, 0, payload)

	f, err := OpenBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer f.Close()

	var got []observedCell
	err = ReadAllValues(f, peopleMetadata(), func(table, row, column int, value string, ctx any) Verdict {
		got = append(got, observedCell{table, row, column, value})
		return Next
	}, nil)
	if err != nil {
		t.Fatalf("ReadAllValues: %v", err)
	}

	want := []observedCell{
		{0, 1, 1, "Ada"},
		{0, 2, 1, "Grace"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadAllValuesStripsLeadingSpaces(t *testing.T) {
	b := fmtest.NewHBAM7Builder()
	mask := b.XORMask()
	payload := fmtest.Concat(
		fmtest.PathPush1(128),
		fmtest.PathPush1(5),
		fmtest.PathPush1(1),
		fmtest.FieldRefSimple(1, fmtest.MaskText(mask, "  hello")),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),
	)
	b.AddBlock(0, 0, payload)

	f, err := OpenBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer f.Close()

	var got []observedCell
	err = ReadAllValues(f, peopleMetadata(), func(table, row, column int, value string, ctx any) Verdict {
		got = append(got, observedCell{table, row, column, value})
		return Next
	}, nil)
	if err != nil {
		t.Fatalf("ReadAllValues: %v", err)
	}
	if len(got) != 1 || got[0].value != "hello" {
		t.Fatalf("got %+v", got)
	}
}

func TestReadAllValuesSkipsRef252(t *testing.T) {
	b := fmtest.NewHBAM7Builder()
	mask := b.XORMask()
	payload := fmtest.Concat(
		fmtest.PathPush1(128),
		fmtest.PathPush1(5),
		fmtest.PathPush1(1),
		fmtest.FieldRefSimple(252, fmtest.MaskText(mask, "whatever")),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),
	)
	b.AddBlock(0, 0, payload)

	f, err := OpenBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer f.Close()

	var got []observedCell
	err = ReadAllValues(f, peopleMetadata(), func(table, row, column int, value string, ctx any) Verdict {
		got = append(got, observedCell{table, row, column, value})
		return Next
	}, nil)
	if err != nil {
		t.Fatalf("ReadAllValues: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %+v, want none", got)
	}
}

func TestReadAllValuesLongStringReassembly(t *testing.T) {
	b := fmtest.NewHBAM7Builder()
	mask := b.XORMask()
	payload := fmtest.Concat(
		fmtest.PathPush1(128),
		fmtest.PathPush1(5),
		fmtest.PathPush1(1), // row 1
		fmtest.PathPush1(3), // column 3, depth-3 long-string path
		fmtest.FieldRefSimple(9, fmtest.MaskText(mask, "foo")),
		fmtest.FieldRefSimple(9, fmtest.MaskText(mask, "bar")),
		fmtest.FieldRefSimple(9, fmtest.MaskText(mask, "baz")),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),
	)
	b.AddBlock(0, 0, payload)

	f, err := OpenBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer f.Close()

	meta := &Metadata{
		Tables:         []TableDescriptor{{Index: 0, Name: "People"}},
		ColumnsByTable: map[int][]ColumnDescriptor{0: {{Index: 3, Name: "Bio"}}},
	}

	var got []observedCell
	err = ReadAllValues(f, meta, func(table, row, column int, value string, ctx any) Verdict {
		got = append(got, observedCell{table, row, column, value})
		return Next
	}, nil)
	if err != nil {
		t.Fatalf("ReadAllValues: %v", err)
	}
	if len(got) != 1 || got[0].value != "foobarbaz" || got[0].column != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestReadAllValuesHonorsTableSkipFlag(t *testing.T) {
	b := fmtest.NewHBAM7Builder()
	mask := b.XORMask()
	payload := fmtest.Concat(
		fmtest.PathPush1(128),
		fmtest.PathPush1(5),
		fmtest.PathPush1(1),
		fmtest.FieldRefSimple(1, fmtest.MaskText(mask, "Ada")),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),
	)
	b.AddBlock(0, 0, payload)

	f, err := OpenBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer f.Close()

	meta := &Metadata{
		Tables:         []TableDescriptor{{Index: 0, Name: "People", Skip: true}},
		ColumnsByTable: map[int][]ColumnDescriptor{0: {{Index: 1, Name: "Name"}}},
	}

	var got []observedCell
	err = ReadAllValues(f, meta, func(table, row, column int, value string, ctx any) Verdict {
		got = append(got, observedCell{table, row, column, value})
		return Next
	}, nil)
	if err != nil {
		t.Fatalf("ReadAllValues: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %+v, want no cells for a skipped table", got)
	}
}

func TestReadAllValuesAbortStopsTraversal(t *testing.T) {
	b := fmtest.NewHBAM7Builder()
	mask := b.XORMask()
	payload := fmtest.Concat(
		fmtest.PathPush1(128),
		fmtest.PathPush1(5),
		fmtest.PathPush1(1),
		fmtest.FieldRefSimple(1, fmtest.MaskText(mask, "Ada")),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),

		fmtest.PathPush1(128),
		fmtest.PathPush1(5),
		fmtest.PathPush1(2),
		fmtest.FieldRefSimple(1, fmtest.MaskText(mask, "Grace")),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),
	)
	b.AddBlock(0, 0, payload)

	f, err := OpenBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer f.Close()

	var got []observedCell
	err = ReadAllValues(f, peopleMetadata(), func(table, row, column int, value string, ctx any) Verdict {
		got = append(got, observedCell{table, row, column, value})
		return Abort
	}, nil)
	if !hbamerr.Is(err, hbamerr.UserAborted) {
		t.Fatalf("ReadAllValues: got %v, want a UserAborted error", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %+v, want exactly one cell before abort", got)
	}
}

// v<7 dialects have no table selector: a short cell is [5, Row] and a
// long-string fragment is [5, Row, Column], one element shallower than
// their v>=7 equivalents.

func v3PeopleMetadata() *Metadata {
	return &Metadata{
		Tables: []TableDescriptor{{Index: 1, Name: "budget"}},
		ColumnsByTable: map[int][]ColumnDescriptor{
			1: {{Index: 1, Name: "Name"}},
		},
	}
}

func TestReadAllValuesV3TwoRowsSameColumn(t *testing.T) {
	b := fmtest.NewHBAM3Builder()
	payload := fmtest.Concat(
		fmtest.PathPush1(5),
		fmtest.PathPush1(1), // row 1
		fmtest.FieldRefSimple(1, []byte("Ada")),
		fmtest.PathPop(),
		fmtest.PathPop(),

		fmtest.PathPush1(5),
		fmtest.PathPush1(2), // row 2
		fmtest.FieldRefSimple(1, []byte("Grace")),
		fmtest.PathPop(),
		fmtest.PathPop(),
	)
	b.AddBlock(0, 0, payload)

	f, err := OpenBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer f.Close()

	var got []observedCell
	err = ReadAllValues(f, v3PeopleMetadata(), func(table, row, column int, value string, ctx any) Verdict {
		got = append(got, observedCell{table, row, column, value})
		return Next
	}, nil)
	if err != nil {
		t.Fatalf("ReadAllValues: %v", err)
	}

	want := []observedCell{
		{1, 1, 1, "Ada"},
		{1, 2, 1, "Grace"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadAllValuesV3LongStringReassembly(t *testing.T) {
	b := fmtest.NewHBAM3Builder()
	payload := fmtest.Concat(
		fmtest.PathPush1(5),
		fmtest.PathPush1(1), // row 1
		fmtest.PathPush1(3), // column 3, depth-3 long-string path
		fmtest.FieldRefSimple(9, []byte("foo")),
		fmtest.FieldRefSimple(9, []byte("bar")),
		fmtest.PathPop(),
		fmtest.PathPop(),
		fmtest.PathPop(),
	)
	b.AddBlock(0, 0, payload)

	f, err := OpenBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer f.Close()

	meta := &Metadata{
		Tables:         []TableDescriptor{{Index: 1, Name: "budget"}},
		ColumnsByTable: map[int][]ColumnDescriptor{1: {{Index: 3, Name: "Bio"}}},
	}

	var got []observedCell
	err = ReadAllValues(f, meta, func(table, row, column int, value string, ctx any) Verdict {
		got = append(got, observedCell{table, row, column, value})
		return Next
	}, nil)
	if err != nil {
		t.Fatalf("ReadAllValues: %v", err)
	}
	if len(got) != 1 || got[0].value != "foobar" || got[0].column != 3 {
		t.Fatalf("got %+v", got)
	}
}
