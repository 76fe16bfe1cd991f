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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iipc/cdxzipnum/zipnum"
)

func buildZipNumFixture(t *testing.T, n int) (dir string, expected []string) {
	t.Helper()
	dir = t.TempDir()
	lines := genCdxjLines("example", n)
	input := strings.Join(lines, "\n") + "\n"

	params := zipnum.EncodeParams{
		OutDir: dir, BaseName: "out",
		ChunkSize: 50, ShardSizeBytes: 4 << 10, CompressLevel: 1, WorkerCount: 3,
	}
	_, err := zipnum.Encode(context.Background(), strings.NewReader(input), params, nil)
	require.NoError(t, err)
	return dir, lines
}

func openZipNumSearch(t *testing.T, dir string) *ZipNumSearch {
	t.Helper()
	idxFile, err := os.Open(filepath.Join(dir, "out.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { idxFile.Close() })
	locFile, err := os.Open(filepath.Join(dir, "out.loc"))
	require.NoError(t, err)
	t.Cleanup(func() { locFile.Close() })

	zs, err := NewZipNumSearch(idxFile, locFile, dir, nil)
	require.NoError(t, err)
	return zs
}

func TestZipNumSearchPrefixMatchBinarySearchEquivalence(t *testing.T) {
	dir, lines := buildZipNumFixture(t, 2000)

	flatPath := filepath.Join(dir, "flat.cdxj")
	require.NoError(t, os.WriteFile(flatPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	flatFile, err := os.Open(flatPath)
	require.NoError(t, err)
	defer flatFile.Close()
	bs, err := NewBinarySearch(flatFile)
	require.NoError(t, err)

	zs := openZipNumSearch(t, dir)

	q := Query{Key: []byte("com,example)/page0150"), Match: MatchPrefix}

	var zOut, bOut bytes.Buffer
	zCount, err := zs.Search(context.Background(), &zOut, q)
	require.NoError(t, err)
	bCount, err := bs.Search(context.Background(), &bOut, q)
	require.NoError(t, err)

	require.Equal(t, bCount, zCount)
	require.Equal(t, bOut.String(), zOut.String())
	require.EqualValues(t, 10, zCount) // page01500..page01509
}

func TestZipNumSearchNoMatch(t *testing.T) {
	dir, _ := buildZipNumFixture(t, 500)
	zs := openZipNumSearch(t, dir)

	q := Query{Key: []byte("com,nomatch)/"), Match: MatchPrefix}
	var out bytes.Buffer
	n, err := zs.Search(context.Background(), &out, q)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}
