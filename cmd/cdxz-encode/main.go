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

// Command cdxz-encode reads a sorted CDXJ stream on stdin (or from a
// file) and writes ZipNum shards plus an .idx/.loc pair.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/peterbourgon/ff/v3"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/iipc/cdxzipnum"
	"github.com/iipc/cdxzipnum/internal/xlog"
	"github.com/iipc/cdxzipnum/zipnum"
)

func main() {
	fs := flag.NewFlagSet("cdxz-encode", flag.ExitOnError)
	var (
		in            = fs.String("in", "-", "input CDXJ path, or - for stdin")
		outDir        = fs.String("out-dir", ".", "directory to write shards, .idx, and .loc into")
		baseName      = fs.String("base-name", "out", "base name for shard/.idx/.loc files")
		chunkSize     = fs.Int("chunk-size", zipnum.DefaultChunkSize, "lines per compressed chunk")
		shardSize     = fs.String("shard-size", humanize.IBytes(zipnum.DefaultShardSizeBytes), "target shard size before rolling over, e.g. 100MiB")
		compressLevel = fs.Int("compress-level", zipnum.DefaultCompressLevel, "gzip compression level, 1..9")
		workers       = fs.Int("workers", zipnum.DefaultWorkerCount, "parallel compression workers")
		singleShard   = fs.Bool("single-shard", false, "force a single shard regardless of size, overriding -shard-size")
		verbose       = fs.Bool("verbose", false, "log an end-of-run shard/chunk summary")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("CDXZ")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, _ = maxprocs.Set()
	log := xlog.New(*verbose)
	defer log.Sync()

	shardSizeBytes, err := humanize.ParseBytes(*shardSize)
	if err != nil {
		log.Errorf("parsing -shard-size: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// -single-shard forces one shard outright, rather than relying on the
	// incidental case where the data happens to fit under -shard-size.
	if *singleShard {
		shardSizeBytes = math.MaxInt64
	}

	params := zipnum.EncodeParams{
		OutDir:         *outDir,
		BaseName:       *baseName,
		ChunkSize:      *chunkSize,
		ShardSizeBytes: int64(shardSizeBytes),
		CompressLevel:  *compressLevel,
		WorkerCount:    *workers,
	}

	if err := run(ctx, *in, params, log); err != nil {
		log.Errorf("%v", err)
		if kind, ok := cdxzipnum.KindOf(err); ok && kind == cdxzipnum.KindCancelled {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, inPath string, params zipnum.EncodeParams, log *xlog.Logger) error {
	r := os.Stdin
	if inPath != "-" {
		f, err := os.Open(inPath)
		if err != nil {
			return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "opening "+inPath)
		}
		defer f.Close()
		r = f
	}

	res, err := zipnum.Encode(ctx, r, params, log)
	if err != nil {
		return err
	}
	if log.Verbose() {
		log.Infof("wrote %d shard(s), %d chunks, %d lines to %s", len(res.ShardPaths), res.ChunkCount, res.LineCount, params.OutDir)
	}
	return nil
}
