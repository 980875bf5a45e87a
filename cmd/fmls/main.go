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

// Command fmls lists a FileMaker Pro file's tables and columns.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fluffyx/fmptools/pkg/hbam"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fmls <file.fp3|.fp5|.fp7|.fmp12>")
		os.Exit(1)
	}

	f, err := hbam.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer f.Close()

	meta, err := hbam.DiscoverAllMetadata(f)
	if err != nil {
		log.Fatalf("discover metadata: %v", err)
	}

	for _, t := range meta.Tables {
		fmt.Printf("table %d: %s\n", t.Index, t.Name)
		for _, c := range meta.ColumnsByTable[t.Index] {
			fmt.Printf("  column %d: %-20s %-10s collation=%s\n", c.Index, c.Name, c.Type, c.CollationName())
		}
	}
}
