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
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/iipc/cdxzipnum"
	"github.com/iipc/cdxzipnum/cdxj"
	"github.com/iipc/cdxzipnum/internal/xlog"
	"github.com/iipc/cdxzipnum/zipnum"
)

// ZipNumSearch locates matching lines in a ZipNum dataset (spec §4.6):
// one binary search over the .idx's FIRST_KEY column to pick a starting
// chunk, then a forward scan across as many contiguous chunks as the
// match run spans.
type ZipNumSearch struct {
	records []zipnum.IdxRecord // sorted ascending by Key
	locMap  map[string]string
	baseDir string
}

// NewZipNumSearch loads idx (required) and loc (optional; pass nil to
// fall back to base_dir/<shard_name>.cdxj.gz for every shard, per spec
// §4.4 step 2, which ZipNumSearch reuses for shard resolution).
func NewZipNumSearch(idx, loc io.Reader, baseDir string, log *xlog.Logger) (*ZipNumSearch, error) {
	records, err := zipnum.ReadIdx(idx, log)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "reading .idx")
	}
	var locMap map[string]string
	if loc != nil {
		locMap, err = zipnum.ReadLoc(loc)
		if err != nil {
			return nil, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "reading .loc")
		}
	}
	if baseDir == "" {
		baseDir = "."
	}
	return &ZipNumSearch{records: records, locMap: locMap, baseDir: baseDir}, nil
}

// Search writes every matching line to w, in chunk order (spec §4.6
// step 3: "chunk order ... equals global sort order"). It returns the
// number of lines written.
func (z *ZipNumSearch) Search(ctx context.Context, w io.Writer, q Query) (int64, error) {
	if len(z.records) == 0 {
		return 0, nil
	}

	upper, hasUpper := ([]byte)(nil), false
	if q.Match != MatchExact {
		upper, hasUpper = q.UpperBound()
	}

	// gt is the index of the first chunk whose FIRST_KEY exceeds the
	// query; the chunk immediately before it is where query's first
	// occurrence, if any, begins (spec §4.6 step 1).
	gt := sort.Search(len(z.records), func(i int) bool {
		return bytes.Compare([]byte(z.records[i].Key), q.Key) > 0
	})
	start := gt - 1
	if start < 0 {
		start = 0
	}

	var count int64
	matchedAny := false
	for i := start; i < len(z.records); i++ {
		if err := ctx.Err(); err != nil {
			return count, cdxzipnum.NewError(cdxzipnum.KindCancelled, err)
		}
		rec := z.records[i]
		if !matchedAny && pastRange([]byte(rec.Key), q, upper, hasUpper) {
			break
		}

		data, err := z.decompressChunk(rec)
		if err != nil {
			return count, err
		}

		stop, n, err := scanChunkLines(data, q, w, &matchedAny, upper, hasUpper)
		count += n
		if err != nil {
			return count, err
		}
		if stop {
			break
		}
	}
	return count, nil
}

func (z *ZipNumSearch) decompressChunk(rec zipnum.IdxRecord) ([]byte, error) {
	path := z.resolveShardPath(rec.ShardName)
	f, err := os.Open(path)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindMissingFile, err, "opening shard "+path)
	}
	defer f.Close()

	sr := io.NewSectionReader(f, rec.Offset, rec.Length)
	gz, err := gzip.NewReader(sr)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindBadShard, err, "opening gzip member in "+path)
	}
	gz.Multistream(false)
	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindBadShard, err, "decompressing gzip member in "+path)
	}
	return data, nil
}

func (z *ZipNumSearch) resolveShardPath(shardName string) string {
	if z.locMap != nil {
		if name, ok := z.locMap[shardName]; ok {
			if filepath.IsAbs(name) {
				return name
			}
			return filepath.Join(z.baseDir, name)
		}
	}
	return filepath.Join(z.baseDir, shardName+".cdxj.gz")
}

// pastRange reports whether key is already beyond anything that could
// match q, given the sorted-ascending order of chunk FIRST_KEYs — used
// to stop scanning before a chunk that cannot possibly contain a match
// is even decompressed.
func pastRange(key []byte, q Query, upper []byte, hasUpper bool) bool {
	if q.Match == MatchExact {
		return bytes.Compare(key, q.Key) > 0
	}
	if hasUpper {
		return bytes.Compare(key, upper) >= 0
	}
	return false
}

// scanChunkLines scans one decompressed chunk's lines against q,
// writing matches to w. It returns stop=true once a match run that has
// already started ends (no further chunk can extend it, since keys are
// sorted ascending), and the count of lines written from this chunk.
func scanChunkLines(data []byte, q Query, w io.Writer, matchedAny *bool, upper []byte, hasUpper bool) (stop bool, count int64, err error) {
	br := bufio.NewReader(bytes.NewReader(data))
	for {
		line, rerr := cdxj.ReadLine(br)
		if len(line) == 0 {
			break
		}
		key := cdxj.KeyPrefix(line)
		if q.Matches(key) {
			*matchedAny = true
			if _, werr := w.Write(line); werr != nil {
				return false, count, cdxzipnum.Wrap(cdxzipnum.KindIO, werr, "writing matched line")
			}
			count++
		} else if *matchedAny {
			return true, count, nil
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return false, count, cdxzipnum.Wrap(cdxzipnum.KindIO, rerr, "reading decompressed chunk")
		}
	}
	return false, count, nil
}
