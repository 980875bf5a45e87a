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

package legacytext

import (
	"testing"

	"github.com/fluffyx/fmptools/pkg/sector"
)

func TestDecodeStripsLeadingSpaces(t *testing.T) {
	got, err := Decode([]byte("  hello"), 0, sector.CharsetSCSU)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestDecodeAllSpacesYieldsEmpty(t *testing.T) {
	got, err := Decode([]byte("    "), 0, sector.CharsetSCSU)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestDecodeXORDemask(t *testing.T) {
	mask := byte(0x5A)
	masked := make([]byte, len("Ada"))
	for i, c := range []byte("Ada") {
		masked[i] = c ^ mask
	}
	got, err := Decode(masked, mask, sector.CharsetSCSU)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "Ada" {
		t.Errorf("got %q, want %q", got, "Ada")
	}
}

func TestDecodeMacRomanASCIIRoundTrip(t *testing.T) {
	got, err := Decode([]byte("First Name"), 0, sector.CharsetMacRoman)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "First Name" {
		t.Errorf("got %q, want %q", got, "First Name")
	}
}

func TestDecodeWindows1252ASCIIRoundTrip(t *testing.T) {
	got, err := Decode([]byte("budget"), 0, sector.CharsetWindows1252)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "budget" {
		t.Errorf("got %q, want %q", got, "budget")
	}
}
