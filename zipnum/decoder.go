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

package zipnum

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/iipc/cdxzipnum"
	"github.com/iipc/cdxzipnum/internal/xlog"
)

// DecodeParams configures Decode.
type DecodeParams struct {
	// BaseDir resolves shard paths not otherwise found via the .loc map
	// (spec §4.4 step 2: "falls back to base_dir/<shard_name>.cdxj.gz").
	BaseDir string
	// LocReader, if set, supplies the .loc map. Decode does not look for
	// a .loc file itself: when LocReader is nil, every shard resolves to
	// BaseDir/<shard_name>.cdxj.gz.
	LocReader   io.Reader
	WorkerCount int
}

func (p *DecodeParams) setDefaults() {
	if p.WorkerCount == 0 {
		p.WorkerCount = DefaultWorkerCount
	}
	if p.BaseDir == "" {
		p.BaseDir = "."
	}
}

type rangeJob struct {
	shardPath string
	offset    int64
	length    int64
}

type rangeResult struct {
	data []byte
	err  error
}

// Decode reads idx (a .idx file) and writes the reconstituted CDXJ
// stream to w, in the exact order the .idx rows were written in (spec
// §4.4). Each (offset, length) pair is always decompressed as its own
// independent gzip member via an io.SectionReader, never by relying on
// compress/gzip's multistream auto-chaining across an entire shard file:
// that keeps decode correct even when a shard holds chunks that were
// produced (and so ordered on disk) out of key order by a future writer,
// and it is the only way to decode a single requested range without
// reading shard bytes that were never asked for.
func Decode(ctx context.Context, idx io.Reader, w io.Writer, params DecodeParams, log *xlog.Logger) error {
	params.setDefaults()
	if log == nil {
		log = xlog.Noop()
	}

	records, err := ReadIdx(idx, log)
	if err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "reading .idx")
	}

	locMap, err := loadLoc(params)
	if err != nil {
		return err
	}

	jobs := make([]rangeJob, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, rangeJob{
			shardPath: resolveShardPath(rec.ShardName, locMap, params.BaseDir),
			offset:    rec.Offset,
			length:    rec.Length,
		})
	}

	return decodeJobs(ctx, jobs, w, params.WorkerCount)
}

func loadLoc(params DecodeParams) (map[string]string, error) {
	if params.LocReader == nil {
		return nil, nil
	}
	m, err := ReadLoc(params.LocReader)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "reading .loc")
	}
	return m, nil
}

func resolveShardPath(shardName string, locMap map[string]string, baseDir string) string {
	if locMap != nil {
		if name, ok := locMap[shardName]; ok {
			if filepath.IsAbs(name) {
				return name
			}
			return filepath.Join(baseDir, name)
		}
	}
	return filepath.Join(baseDir, shardName+".cdxj.gz")
}

// decodeJobs runs jobs through a bounded worker pool, prefetching ahead
// of the writer while still writing out strictly in job order, the same
// ordered-channel FIFO pattern the encoder uses for compression (see
// shardWriter.drain).
func decodeJobs(ctx context.Context, jobs []rangeJob, w io.Writer, workerCount int) error {
	sem := semaphore.NewWeighted(int64(2 * workerCount))
	drainQueue := make(chan chan rangeResult, 2*workerCount)

	drainErrCh := make(chan error, 1)
	go func() {
		drainErrCh <- drainRanges(drainQueue, w)
	}()

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			close(drainQueue)
			<-drainErrCh
			return cdxzipnum.NewError(cdxzipnum.KindCancelled, err)
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			close(drainQueue)
			<-drainErrCh
			return cdxzipnum.NewError(cdxzipnum.KindCancelled, err)
		}
		resultCh := make(chan rangeResult, 1)
		select {
		case drainQueue <- resultCh:
		case <-ctx.Done():
			sem.Release(1)
			close(drainQueue)
			<-drainErrCh
			return cdxzipnum.NewError(cdxzipnum.KindCancelled, ctx.Err())
		}
		job := job
		go func() {
			defer sem.Release(1)
			data, err := decompressRange(job)
			resultCh <- rangeResult{data: data, err: err}
		}()
	}
	close(drainQueue)

	if err := <-drainErrCh; err != nil {
		return err
	}
	return nil
}

func drainRanges(queue chan chan rangeResult, w io.Writer) error {
	for resultCh := range queue {
		rr := <-resultCh
		if rr.err != nil {
			return rr.err
		}
		if _, err := w.Write(rr.data); err != nil {
			return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "writing decoded output")
		}
	}
	return nil
}

func decompressRange(job rangeJob) ([]byte, error) {
	f, err := os.Open(job.shardPath)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindMissingFile, err, "opening shard "+job.shardPath)
	}
	defer f.Close()

	sr := io.NewSectionReader(f, job.offset, job.length)
	gz, err := gzip.NewReader(sr)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindBadShard, err, "opening gzip member in "+job.shardPath)
	}
	gz.Multistream(false)
	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindBadShard, err, "decompressing gzip member in "+job.shardPath)
	}
	return data, nil
}
