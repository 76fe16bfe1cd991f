// Copyright 2016 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iipc/cdxzipnum/cdxj"
)

// writeFlatCdxj writes lines (already in "SURT SP TIMESTAMP SP JSON"
// form, without trailing newlines) sorted ascending by whole-line bytes.
func writeFlatCdxj(t *testing.T, lines []string) string {
	t.Helper()
	sorted := append([]string(nil), lines...)
	sort.Strings(sorted)
	dir := t.TempDir()
	path := filepath.Join(dir, "data.cdxj")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, l := range sorted {
		fmt.Fprintf(f, "%s\n", l)
	}
	return path
}

func genCdxjLines(host string, n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("com,%s)/page%05d 2020010100%04d {\"k\":%d}", host, i, i, i)
	}
	return out
}

func openBinarySearch(t *testing.T, path string) *BinarySearch {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	bs, err := NewBinarySearch(f)
	require.NoError(t, err)
	return bs
}

func TestBinarySearchExactMatch(t *testing.T) {
	lines := genCdxjLines("example", 500)
	target := lines[250]
	parsed, err := cdxj.Parse([]byte(target))
	require.NoError(t, err)
	key := append(append([]byte{}, parsed.SURT...), ' ')
	key = append(key, parsed.Timestamp...)

	path := writeFlatCdxj(t, lines)
	bs := openBinarySearch(t, path)

	q := Query{Key: key, Match: MatchExact}
	var out bytes.Buffer
	n, err := bs.Search(context.Background(), &out, q)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, target+"\n", out.String())
}

func TestBinarySearchExactMatchRunAcrossDuplicateKeys(t *testing.T) {
	lines := genCdxjLines("example", 50)
	target := lines[25]
	parsed, err := cdxj.Parse([]byte(target))
	require.NoError(t, err)
	key := append(append([]byte{}, parsed.SURT...), ' ')
	key = append(key, parsed.Timestamp...)

	// Two more lines sharing the exact same SURT+TIMESTAMP as target, to
	// exercise the "run of equal keys" backward rescan.
	dup1 := string(key) + ` {"k":"dup1"}`
	dup2 := string(key) + ` {"k":"dup2"}`
	lines = append(lines, dup1, dup2)

	path := writeFlatCdxj(t, lines)
	bs := openBinarySearch(t, path)

	q := Query{Key: key, Match: MatchExact}
	var out bytes.Buffer
	n, err := bs.Search(context.Background(), &out, q)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestBinarySearchPrefixMatch(t *testing.T) {
	lines := genCdxjLines("example", 1000)
	path := writeFlatCdxj(t, lines)
	bs := openBinarySearch(t, path)

	q := Query{Key: []byte("com,example)/page001"), Match: MatchPrefix}
	var out bytes.Buffer
	n, err := bs.Search(context.Background(), &out, q)
	require.NoError(t, err)
	// page00100..page00199
	require.EqualValues(t, 100, n)
}

func TestBinarySearchNoMatch(t *testing.T) {
	lines := genCdxjLines("example", 200)
	path := writeFlatCdxj(t, lines)
	bs := openBinarySearch(t, path)

	q := Query{Key: []byte("com,nomatch)/x"), Match: MatchPrefix}
	var out bytes.Buffer
	n, err := bs.Search(context.Background(), &out, q)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
	require.Empty(t, out.String())
}

func TestBinarySearchHostMatchViaPolicy(t *testing.T) {
	lines := append(genCdxjLines("example", 50), genCdxjLines("other", 50)...)
	path := writeFlatCdxj(t, lines)
	bs := openBinarySearch(t, path)

	policy := MatchPolicy{}
	q, err := policy.Resolve("com,example)/", true, MatchHost)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := bs.Search(context.Background(), &out, q)
	require.NoError(t, err)
	require.EqualValues(t, 50, n)
}

func TestMmapBinarySearchEquivalence(t *testing.T) {
	lines := genCdxjLines("example", 300)
	path := writeFlatCdxj(t, lines)

	mbs, err := NewMmapBinarySearch(path)
	require.NoError(t, err)
	defer mbs.Close()

	q := Query{Key: []byte("com,example)/page00042"), Match: MatchPrefix}
	var out bytes.Buffer
	n, err := mbs.Search(context.Background(), &out, q)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	var plainOut bytes.Buffer
	plainN, err := openBinarySearch(t, path).Search(context.Background(), &plainOut, q)
	require.NoError(t, err)
	require.Equal(t, plainN, n)
	require.Equal(t, plainOut.String(), out.String())
}

func TestBinarySearchEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.cdxj")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	bs := openBinarySearch(t, path)

	q := Query{Key: []byte("com,example)/"), Match: MatchPrefix}
	var out bytes.Buffer
	n, err := bs.Search(context.Background(), &out, q)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}
