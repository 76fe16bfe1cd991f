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
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/iipc/cdxzipnum"
	"github.com/iipc/cdxzipnum/cdxj"
	"github.com/iipc/cdxzipnum/internal/xlog"
)

const idxFlushBatch = 100

// EncodeResult summarizes a completed Encode call.
type EncodeResult struct {
	ShardPaths []string
	IdxPath    string
	LocPath    string
	ChunkCount int64
	LineCount  int64
}

type chunk struct {
	lines     [][]byte
	firstLine []byte
}

type compressedChunk struct {
	chunk
	gz  []byte
	err error
}

// Encode reads a sorted CDXJ stream from r and writes ZipNum artifacts
// ({base}[-NN].cdxj.gz shards, {base}.idx, {base}.loc) to params.OutDir.
// Compression runs on a bounded worker pool; chunk layout on disk
// preserves input order regardless of which worker finishes first (spec
// §4.3, §5).
func Encode(ctx context.Context, r io.Reader, params EncodeParams, log *xlog.Logger) (EncodeResult, error) {
	params.SetDefaults()
	if err := params.Validate(); err != nil {
		return EncodeResult{}, err
	}
	if log == nil {
		log = xlog.Noop()
	}

	w, err := newShardWriter(params, log)
	if err != nil {
		return EncodeResult{}, err
	}
	defer w.closeOnError()

	sem := semaphore.NewWeighted(int64(2 * params.WorkerCount))
	drainQueue := make(chan chan compressedChunk, 2*params.WorkerCount)

	drainErrCh := make(chan error, 1)
	go func() {
		drainErrCh <- w.drain(drainQueue)
	}()

	submit := func(c chunk) error {
		if err := sem.Acquire(ctx, 1); err != nil {
			return cdxzipnum.NewError(cdxzipnum.KindCancelled, err)
		}
		resultCh := make(chan compressedChunk, 1)
		select {
		case drainQueue <- resultCh:
		case <-ctx.Done():
			sem.Release(1)
			return cdxzipnum.NewError(cdxzipnum.KindCancelled, ctx.Err())
		}
		go func() {
			defer sem.Release(1)
			gz, err := compressChunk(c.lines, params.CompressLevel)
			resultCh <- compressedChunk{chunk: c, gz: gz, err: err}
		}()
		return nil
	}

	br := bufio.NewReaderSize(r, 1<<20)
	var seq int64
	var lineCount int64
	var buf [][]byte
	var first []byte

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		c := chunk{lines: buf, firstLine: first}
		seq++
		buf = nil
		first = nil
		return submit(c)
	}

readLoop:
	for {
		select {
		case <-ctx.Done():
			close(drainQueue)
			<-drainErrCh
			return EncodeResult{}, cdxzipnum.NewError(cdxzipnum.KindCancelled, ctx.Err())
		default:
		}

		line, err := cdxj.ReadLine(br)
		if len(line) > 0 {
			if first == nil {
				first = cdxj.KeyPrefix(line)
			}
			buf = append(buf, line)
			lineCount++
			if len(buf) >= params.ChunkSize {
				if ferr := flush(); ferr != nil {
					close(drainQueue)
					<-drainErrCh
					return EncodeResult{}, ferr
				}
			}
		}
		if err == io.EOF {
			break readLoop
		}
		if err != nil {
			close(drainQueue)
			<-drainErrCh
			return EncodeResult{}, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "reading CDXJ input")
		}
	}

	if ferr := flush(); ferr != nil {
		close(drainQueue)
		<-drainErrCh
		return EncodeResult{}, ferr
	}
	close(drainQueue)

	if err := <-drainErrCh; err != nil {
		return EncodeResult{}, err
	}

	res, err := w.finish(lineCount, seq)
	if err != nil {
		return EncodeResult{}, err
	}
	if log.Verbose() {
		log.Infof("encoded %d lines into %d chunks across %d shard(s)", res.LineCount, res.ChunkCount, len(res.ShardPaths))
	}
	return res, nil
}

func compressChunk(lines [][]byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	// Zero the mtime so identical input produces byte-identical shards
	// across runs (spec §6: "modulo gzip's optional timestamp field,
	// which may be zeroed for reproducibility").
	gw.ModTime = time.Time{}
	for _, l := range lines {
		if _, err := gw.Write(l); err != nil {
			return nil, err
		}
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// shardWriter owns the single writer thread's state: the current shard
// file, the .idx buffer, and shard-boundary bookkeeping. Only the drain
// goroutine touches it, so no locking is required.
type shardWriter struct {
	params EncodeParams
	log    *xlog.Logger

	shardNum     int
	shardFile    *os.File
	shardSize    int64
	shardPaths   []string // final paths, one per shard closed
	shardLog     *shardActionLog

	idxFile  *os.File
	idxPath  string
	idxBatch bytes.Buffer
	idxLines int
}

func newShardWriter(params EncodeParams, log *xlog.Logger) (*shardWriter, error) {
	if err := os.MkdirAll(params.OutDir, 0o755); err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "creating output directory")
	}
	idxPath := filepath.Join(params.OutDir, params.BaseName+".idx")
	idxFile, err := os.Create(idxPath)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "creating .idx")
	}
	sl := newShardActionLog(params.OutDir, params.BaseName)
	w := &shardWriter{params: params, log: log, idxFile: idxFile, idxPath: idxPath, shardLog: sl}
	return w, nil
}

func (w *shardWriter) shardName(num int) string {
	return fmt.Sprintf("%s-%02d", w.params.BaseName, num)
}

func (w *shardWriter) shardTempPath(num int) string {
	return filepath.Join(w.params.OutDir, w.shardName(num)+".cdxj.gz.tmp")
}

func (w *shardWriter) shardFinalPath(num int) string {
	return filepath.Join(w.params.OutDir, w.shardName(num)+".cdxj.gz")
}

func (w *shardWriter) openNextShard() error {
	w.shardNum++
	f, err := os.Create(w.shardTempPath(w.shardNum))
	if err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "creating shard file")
	}
	w.shardFile = f
	w.shardSize = 0
	return nil
}

func (w *shardWriter) closeShard() error {
	if w.shardFile == nil {
		return nil
	}
	if err := w.shardFile.Close(); err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "closing shard file")
	}
	tmp := w.shardTempPath(w.shardNum)
	final := w.shardFinalPath(w.shardNum)
	if err := os.Rename(tmp, final); err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "finalizing shard file")
	}
	w.shardPaths = append(w.shardPaths, final)
	w.shardLog.record("upsert", w.shardName(w.shardNum), w.shardSize)
	w.shardFile = nil
	return nil
}

// drain receives compressed chunks from the ordered queue (one channel
// per submission, in submission order) and writes them out strictly
// FIFO, regardless of which compression goroutine finished first.
func (w *shardWriter) drain(queue chan chan compressedChunk) error {
	for resultCh := range queue {
		cc := <-resultCh
		if cc.err != nil {
			return cdxzipnum.Wrap(cdxzipnum.KindIO, cc.err, "compressing chunk")
		}
		if err := w.writeChunk(cc); err != nil {
			return err
		}
	}
	return nil
}

func (w *shardWriter) writeChunk(cc compressedChunk) error {
	if w.shardFile == nil {
		if err := w.openNextShard(); err != nil {
			return err
		}
	}

	offset := w.shardSize
	n, err := w.shardFile.Write(cc.gz)
	if err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "writing shard chunk")
	}
	w.shardSize += int64(n)

	fmt.Fprintf(&w.idxBatch, "%s\t%s\t%d\t%d\t%d\n", cc.firstLine, w.shardName(w.shardNum), offset, n, w.shardNum)
	w.idxLines++
	if w.idxLines >= idxFlushBatch {
		if err := w.flushIdx(); err != nil {
			return err
		}
	}

	// Close the shard once it reaches the target; the chunk that
	// crossed the threshold stays in the just-closed shard (spec
	// §4.3 step 4). The next shard is opened lazily, only if another
	// chunk actually arrives — otherwise a stream that ends exactly on
	// a shard boundary would leave a bogus empty trailing shard.
	if w.shardSize >= w.params.ShardSizeBytes {
		if err := w.closeShard(); err != nil {
			return err
		}
	}
	return nil
}

func (w *shardWriter) flushIdx() error {
	if w.idxBatch.Len() == 0 {
		return nil
	}
	if _, err := w.idxFile.Write(w.idxBatch.Bytes()); err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "writing .idx")
	}
	w.idxBatch.Reset()
	w.idxLines = 0
	return nil
}

func (w *shardWriter) finish(lineCount, chunkCount int64) (EncodeResult, error) {
	if err := w.flushIdx(); err != nil {
		return EncodeResult{}, err
	}
	if w.shardFile == nil && len(w.shardPaths) == 0 {
		// Empty stream: no chunk ever opened a shard. Produce one
		// empty shard so the shard set is never totally absent (spec
		// §8 boundary: "empty input file").
		if err := w.openNextShard(); err != nil {
			return EncodeResult{}, err
		}
	}
	if err := w.closeShard(); err != nil {
		return EncodeResult{}, err
	}
	if err := w.idxFile.Close(); err != nil {
		return EncodeResult{}, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "closing .idx")
	}

	if len(w.shardPaths) == 1 {
		if err := w.renameToSingleShard(); err != nil {
			return EncodeResult{}, err
		}
	}

	locPath, err := writeLocFile(w.params.OutDir, w.params.BaseName, w.shardPaths)
	if err != nil {
		return EncodeResult{}, err
	}
	w.shardLog.close()

	return EncodeResult{
		ShardPaths: w.shardPaths,
		IdxPath:    w.idxPath,
		LocPath:    locPath,
		ChunkCount: chunkCount,
		LineCount:  lineCount,
	}, nil
}

// renameToSingleShard implements spec §4.3 step 6: when exactly one
// shard was produced, rename it from base-01.cdxj.gz to base.cdxj.gz and
// patch the already-written .idx rows to reference the new name.
func (w *shardWriter) renameToSingleShard() error {
	oldName := w.shardName(1)
	newName := w.params.BaseName
	oldPath := w.shardPaths[0]
	newPath := filepath.Join(w.params.OutDir, newName+".cdxj.gz")

	if err := os.Rename(oldPath, newPath); err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "renaming single shard")
	}
	w.shardPaths[0] = newPath

	if err := rewriteIdxShardName(w.idxPath, oldName, newName); err != nil {
		return err
	}
	return nil
}

func (w *shardWriter) closeOnError() {
	if w.shardFile != nil {
		w.shardFile.Close()
	}
}
