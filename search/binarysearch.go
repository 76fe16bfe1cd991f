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
	"context"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/iipc/cdxzipnum"
	"github.com/iipc/cdxzipnum/cdxj"
)

// backwardWindow is the size of the backward rescan window used to find
// the first line in a run of equal keys (spec §4.5 step 3). It is a
// plain constant, not derived from observed line lengths.
const backwardWindow = 10 << 10 // ~10 KiB

// BinarySearch locates matching lines in a sorted flat CDXJ file without
// loading it into memory (spec §4.5). The zero value is not usable; build
// one with NewBinarySearch or NewMmapBinarySearch.
type BinarySearch struct {
	src  io.ReaderAt
	size int64
	// closer is released by Close, if set (owns an *os.File or an mmap
	// handle opened on the caller's behalf).
	closer io.Closer
}

// NewBinarySearch builds a BinarySearch over an already-open file,
// reading through plain ReaderAt calls. The caller retains ownership of
// f; Close is a no-op.
func NewBinarySearch(f *os.File) (*BinarySearch, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "stat'ing CDXJ file")
	}
	return &BinarySearch{src: f, size: info.Size()}, nil
}

// NewMmapBinarySearch memory-maps path for repeat queries against the
// same file, avoiding a syscall per seek (spec §5: callers may run
// queries in parallel against one opened index). Call Close when done.
func NewMmapBinarySearch(path string) (*BinarySearch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cdxzipnum.Wrap(cdxzipnum.KindMissingFile, err, "opening CDXJ file for mmap")
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "mmapping CDXJ file")
	}
	return &BinarySearch{src: byteSliceReaderAt(m), size: int64(len(m)), closer: mmapCloser{m: m, f: f}}, nil
}

// Close releases resources opened by NewMmapBinarySearch. Safe to call
// on a BinarySearch built with NewBinarySearch (no-op).
func (b *BinarySearch) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

type mmapCloser struct {
	m mmap.MMap
	f *os.File
}

func (c mmapCloser) Close() error {
	err := c.m.Unmap()
	if cerr := c.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// byteSliceReaderAt adapts an in-memory byte slice (an mmap region) to
// io.ReaderAt.
type byteSliceReaderAt []byte

func (b byteSliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Search writes every line matching q to w, in file order, per spec
// §4.5. It returns the number of lines written.
func (b *BinarySearch) Search(ctx context.Context, w io.Writer, q Query) (int64, error) {
	if b.size == 0 {
		return 0, nil
	}

	lo, hi := int64(0), b.size
	var candidate int64 = -1
	for lo < hi {
		if err := ctx.Err(); err != nil {
			return 0, cdxzipnum.NewError(cdxzipnum.KindCancelled, err)
		}
		mid := lo + (hi-lo)/2
		line, p, err := b.lineAt(mid)
		if err != nil && err != io.EOF {
			return 0, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "reading CDXJ during bisection")
		}
		if line == nil {
			// No whole line from mid to EOF: treat as "greater" so the
			// search narrows toward lo.
			hi = mid
			continue
		}
		key := cdxj.KeyPrefix(line)
		cmp := bytes.Compare(key, q.Key)
		matched := q.Matches(key)
		if cmp < 0 && !matched {
			lo = p
		} else {
			hi = mid
			if matched {
				candidate = p
			}
		}
	}

	if candidate < 0 {
		return 0, nil
	}

	start, err := b.rescanBackward(candidate, q)
	if err != nil {
		return 0, err
	}
	return b.scanForward(ctx, w, start, q)
}

// rescanBackward finds the first line at or before candidate whose key
// still matches q, by reopening at max(0, candidate-B) and walking
// forward (spec §4.5 step 3).
func (b *BinarySearch) rescanBackward(candidate int64, q Query) (int64, error) {
	winStart := candidate - backwardWindow
	if winStart < 0 {
		winStart = 0
	}

	pos, err := b.firstLineStartAtOrAfter(winStart)
	if err != nil {
		return 0, err
	}

	// Read sequentially from the aligned window start with a single
	// reader, rather than reopening per line: pos is already known to be
	// a whole-line boundary, so no further partial-line discarding is
	// needed here.
	sr := io.NewSectionReader(b.src, pos, b.size-pos)
	br := bufio.NewReaderSize(sr, 4096)
	cur := pos
	first := candidate
	for cur < candidate {
		line, err := cdxj.ReadLine(br)
		if len(line) == 0 {
			break
		}
		if q.Matches(cdxj.KeyPrefix(line)) {
			first = cur
			break
		}
		cur += int64(len(line))
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "reading CDXJ during backward rescan")
		}
	}
	return first, nil
}

// firstLineStartAtOrAfter returns 0 for at == 0. Otherwise it discards
// everything from at through the next newline and returns the offset
// that follows, so a line that starts exactly at at is skipped as well.
func (b *BinarySearch) firstLineStartAtOrAfter(at int64) (int64, error) {
	if at == 0 {
		return 0, nil
	}
	sr := io.NewSectionReader(b.src, at, b.size-at)
	br := bufio.NewReaderSize(sr, 4096)
	discarded, err := br.ReadBytes('\n')
	if err != nil {
		return b.size, nil
	}
	return at + int64(len(discarded)), nil
}

// scanForward reads lines starting at pos, writing each to w while it
// still matches q; it stops at the first non-match or EOF (spec §4.5
// step 4).
func (b *BinarySearch) scanForward(ctx context.Context, w io.Writer, pos int64, q Query) (int64, error) {
	sr := io.NewSectionReader(b.src, pos, b.size-pos)
	br := bufio.NewReaderSize(sr, 1<<16)
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, cdxzipnum.NewError(cdxzipnum.KindCancelled, err)
		}
		line, err := cdxj.ReadLine(br)
		if len(line) == 0 {
			break
		}
		if !q.Matches(cdxj.KeyPrefix(line)) {
			break
		}
		if _, werr := w.Write(line); werr != nil {
			return n, cdxzipnum.Wrap(cdxzipnum.KindIO, werr, "writing matched line")
		}
		n++
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "reading CDXJ during forward scan")
		}
	}
	return n, nil
}

// lineAt returns a whole line after at: when at > 0, everything from at
// through the next newline is discarded first, so a line that starts
// exactly at at is skipped (spec §4.5 step 2). For at == 0 it returns
// the first line. pos is the absolute file offset where the returned
// line begins.
func (b *BinarySearch) lineAt(at int64) (line []byte, pos int64, err error) {
	if at >= b.size {
		return nil, b.size, io.EOF
	}
	sr := io.NewSectionReader(b.src, at, b.size-at)
	br := bufio.NewReaderSize(sr, 4096)
	pos = at
	if at > 0 {
		discarded, derr := br.ReadBytes('\n')
		pos += int64(len(discarded))
		if derr != nil {
			return nil, b.size, io.EOF
		}
	}
	line, err = cdxj.ReadLine(br)
	if len(line) == 0 {
		return nil, b.size, io.EOF
	}
	return line, pos, nil
}
