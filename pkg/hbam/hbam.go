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

// ListTables is a convenience wrapper over DiscoverAllMetadata for
// callers who only want the table list.
func ListTables(f *File) ([]TableDescriptor, error) {
	meta, err := DiscoverAllMetadata(f)
	if err != nil {
		return nil, err
	}
	return meta.Tables, nil
}

// ListColumns is a convenience wrapper over DiscoverAllMetadata for
// callers who only want one table's column list.
func ListColumns(f *File, tableIndex int) ([]ColumnDescriptor, error) {
	meta, err := DiscoverAllMetadata(f)
	if err != nil {
		return nil, err
	}
	return meta.ColumnsByTable[tableIndex], nil
}
