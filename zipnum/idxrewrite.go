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
	"os"

	"github.com/iipc/cdxzipnum"
)

// rewriteIdxShardName patches every SHARD_NAME field in the .idx file at
// path from oldName to newName. Used only for the single-shard rename
// case (spec §4.3 step 6), where the .idx rows were written against the
// provisional "base-01" shard name before the final rename to "base".
func rewriteIdxShardName(path, oldName, newName string) error {
	in, err := os.Open(path)
	if err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "opening .idx for rewrite")
	}
	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		in.Close()
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "creating .idx rewrite temp file")
	}

	oldB := []byte(oldName)
	newB := []byte(newName)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)
	bw := bufio.NewWriter(out)
	for sc.Scan() {
		line := sc.Bytes()
		fields := bytes.Split(line, []byte{'\t'})
		if len(fields) == 5 && bytes.Equal(fields[1], oldB) {
			fields[1] = newB
		}
		bw.Write(bytes.Join(fields, []byte{'\t'}))
		bw.WriteByte('\n')
	}
	scanErr := sc.Err()
	flushErr := bw.Flush()
	in.Close()
	closeErr := out.Close()

	if scanErr != nil {
		os.Remove(tmpPath)
		return cdxzipnum.Wrap(cdxzipnum.KindIO, scanErr, "reading .idx for rewrite")
	}
	if flushErr != nil {
		os.Remove(tmpPath)
		return cdxzipnum.Wrap(cdxzipnum.KindIO, flushErr, "writing rewritten .idx")
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return cdxzipnum.Wrap(cdxzipnum.KindIO, closeErr, "closing rewritten .idx")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "replacing .idx with rewritten copy")
	}
	return nil
}
