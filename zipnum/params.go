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

// Package zipnum implements the ZipNum encoder and decoder (spec §4.3,
// §4.4): a sorted CDXJ stream rewritten into gzip-compressed shards plus
// a searchable .idx and a shard-location .loc map, and the inverse.
package zipnum

import (
	"fmt"

	"github.com/iipc/cdxzipnum"
)

const (
	DefaultChunkSize      = 3000
	DefaultShardSizeBytes = 100 << 20 // 100 MiB
	DefaultCompressLevel  = 6
	DefaultWorkerCount    = 4
)

// EncodeParams configures ZipNumEncoder.
type EncodeParams struct {
	ChunkSize      int
	ShardSizeBytes int64
	CompressLevel  int
	WorkerCount    int
	BaseName       string
	OutDir         string
}

// SetDefaults fills any zero fields with their documented defaults.
func (p *EncodeParams) SetDefaults() {
	if p.ChunkSize == 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.ShardSizeBytes == 0 {
		p.ShardSizeBytes = DefaultShardSizeBytes
	}
	if p.CompressLevel == 0 {
		p.CompressLevel = DefaultCompressLevel
	}
	if p.WorkerCount == 0 {
		p.WorkerCount = DefaultWorkerCount
	}
	if p.BaseName == "" {
		p.BaseName = "out"
	}
	if p.OutDir == "" {
		p.OutDir = "."
	}
}

// Validate rejects out-of-range parameters at construction time, per
// spec §4.3's "compress_level outside 1..9 is rejected at construction".
func (p EncodeParams) Validate() error {
	if p.ChunkSize <= 0 {
		return cdxzipnum.NewError(cdxzipnum.KindInvalidParam, errInvalid("chunk_size must be > 0, got %d", p.ChunkSize))
	}
	if p.ShardSizeBytes <= 0 {
		return cdxzipnum.NewError(cdxzipnum.KindInvalidParam, errInvalid("shard_size_bytes must be > 0, got %d", p.ShardSizeBytes))
	}
	if p.CompressLevel < 1 || p.CompressLevel > 9 {
		return cdxzipnum.NewError(cdxzipnum.KindInvalidParam, errInvalid("compress_level must be in 1..9, got %d", p.CompressLevel))
	}
	if p.WorkerCount <= 0 {
		return cdxzipnum.NewError(cdxzipnum.KindInvalidParam, errInvalid("worker_count must be > 0, got %d", p.WorkerCount))
	}
	return nil
}

func errInvalid(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
