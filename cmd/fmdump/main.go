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

// Command fmdump dumps a FileMaker Pro file's row values as
// tab-separated text, one line per table.row.column cell.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fluffyx/fmptools/pkg/hbam"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fmdump <file.fp3|.fp5|.fp7|.fmp12>")
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

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	err = hbam.ReadAllValues(f, meta, func(tableIndex, row, column int, value string, ctx any) hbam.Verdict {
		t, _ := meta.TableByIndex(tableIndex)
		col, _ := meta.ColumnByIndex(tableIndex, column)
		fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", t.Name, row, col.Name, value)
		return hbam.Next
	}, nil)
	if err != nil {
		log.Fatalf("read values: %v", err)
	}
}
