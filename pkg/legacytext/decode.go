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

// Package legacytext turns the raw on-disk bytes of a FileMaker text
// field into a UTF-8 string: XOR demasking, left-space trimming, and
// routing through either a legacy code page (MacRoman, Windows-1252)
// or SCSU.
package legacytext

import (
	"github.com/fluffyx/fmptools/pkg/hbamerr"
	"github.com/fluffyx/fmptools/pkg/sector"
	"golang.org/x/text/encoding/charmap"
)

// Decode converts src into UTF-8 under the rules of charset, XORing
// every byte with mask first if mask is non-zero.
//
// FileMaker left-pads fixed-width text fields with ASCII spaces; those
// leading spaces are stripped before decoding, so a field of all spaces
// decodes to the empty string.
func Decode(src []byte, mask byte, charset sector.Charset) (string, error) {
	const op = "legacytext.Decode"

	buf := src
	if mask != 0 {
		buf = make([]byte, len(src))
		for i, b := range src {
			buf[i] = b ^ mask
		}
	}

	i := 0
	for i < len(buf) && buf[i] == ' ' {
		i++
	}
	buf = buf[i:]

	switch charset {
	case sector.CharsetMacRoman:
		out, err := charmap.Macintosh.NewDecoder().Bytes(buf)
		if err != nil {
			return "", hbamerr.New(op, hbamerr.UnsupportedCharset, err)
		}
		return string(out), nil
	case sector.CharsetWindows1252:
		out, err := charmap.Windows1252.NewDecoder().Bytes(buf)
		if err != nil {
			return "", hbamerr.New(op, hbamerr.UnsupportedCharset, err)
		}
		return string(out), nil
	case sector.CharsetSCSU:
		return decodeSCSU(buf), nil
	default:
		return "", hbamerr.New(op, hbamerr.UnsupportedCharset, nil)
	}
}
