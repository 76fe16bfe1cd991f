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

// Package cdxj parses and formats CDXJ records: "SURT SP TIMESTAMP [SP
// JSON]". A stored CDXJ file is sorted ascending by whole-line byte
// comparison; this package never re-encodes or re-collates bytes, so that
// invariant survives a parse/format round trip untouched.
package cdxj

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/iipc/cdxzipnum"
)

// Line is a parsed CDXJ record. JSON, if present, is kept as the raw
// bytes the caller supplied or that were read from disk — this package
// never unescapes or reformats a third-party JSON body it merely relays.
type Line struct {
	SURT      []byte
	Timestamp []byte
	JSON      []byte // nil if the record has no JSON field
}

// Parse splits a CDXJ line (without its trailing newline) on the first
// two spaces. It fails with KindMalformedRecord if fewer than two fields
// are present.
func Parse(line []byte) (Line, error) {
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return Line{}, cdxzipnum.NewError(cdxzipnum.KindMalformedRecord,
			fmt.Errorf("line has no SURT/TIMESTAMP separator: %q", line))
	}
	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')

	l := Line{SURT: line[:sp1]}
	if sp2 < 0 {
		l.Timestamp = rest
		return l, nil
	}
	l.Timestamp = rest[:sp2]
	l.JSON = rest[sp2+1:]
	return l, nil
}

// Format concatenates surt, timestamp and the optional json with single
// spaces and a trailing newline. json may be nil to omit the field
// entirely (legacy two-field row).
func Format(surt, timestamp, json []byte) []byte {
	n := len(surt) + 1 + len(timestamp) + 1
	if json != nil {
		n += 1 + len(json)
	}
	buf := make([]byte, 0, n)
	buf = append(buf, surt...)
	buf = append(buf, ' ')
	buf = append(buf, timestamp...)
	if json != nil {
		buf = append(buf, ' ')
		buf = append(buf, json...)
	}
	buf = append(buf, '\n')
	return buf
}

// KeyPrefix returns the "SURT SP TIMESTAMP" prefix of line, the value
// stored as FIRST_KEY in a .idx row. It never allocates: the result
// aliases line.
func KeyPrefix(line []byte) []byte {
	line = trimNewline(line)
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return line
	}
	rest := line[sp1+1:]
	if sp2 := bytes.IndexByte(rest, ' '); sp2 >= 0 {
		return line[:sp1+1+sp2]
	}
	return line
}

// SortKey returns the whole line up to (but not including) a trailing
// newline. This is the byte string the merger and the index compare on.
func SortKey(line []byte) []byte {
	return trimNewline(line)
}

// ReadLine reads one '\n'-terminated line (newline included) from r. A
// final line lacking a trailing newline is still returned as a complete
// line, with io.EOF reported on the following call — matching the
// tolerance spec §4.5 requires for a truncated terminal line.
func ReadLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if len(line) == 0 {
		return nil, err
	}
	if err == io.EOF {
		return line, nil
	}
	return line, err
}

func trimNewline(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		return line[:n-1]
	}
	return line
}
