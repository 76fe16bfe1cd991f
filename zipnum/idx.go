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
	"io"
	"strconv"
	"strings"

	"github.com/iipc/cdxzipnum/internal/xlog"
)

// IdxRecord is one parsed row of a .idx file.
type IdxRecord struct {
	Key       string // FIRST_KEY: "SURT SP TIMESTAMP"
	ShardName string
	Offset    int64
	Length    int64
	ShardNum  int
}

// ReadIdx parses r's .idx contents, preserving file order. Blank lines
// and '#'-prefixed comments are ignored; malformed rows are skipped with
// a warning logged rather than aborting the whole read (spec §4.4 step
// 1, §7 "Invalid rows are skipped with a warning").
func ReadIdx(r io.Reader, log *xlog.Logger) ([]IdxRecord, error) {
	if log == nil {
		log = xlog.Noop()
	}
	var out []IdxRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, ok := parseIdxLine(line)
		if !ok {
			log.Warnf(".idx line %d malformed, skipping: %q", lineNo, line)
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseIdxLine(line string) (IdxRecord, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return IdxRecord{}, false
	}
	offset, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return IdxRecord{}, false
	}
	length, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return IdxRecord{}, false
	}
	shardNum, err := strconv.Atoi(fields[4])
	if err != nil {
		return IdxRecord{}, false
	}
	return IdxRecord{
		Key:       fields[0],
		ShardName: fields[1],
		Offset:    offset,
		Length:    length,
		ShardNum:  shardNum,
	}, true
}

// ReadLoc parses a .loc file into shard_name -> filename/path.
func ReadLoc(r io.Reader) (map[string]string, error) {
	out := map[string]string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		out[fields[0]] = fields[1]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
