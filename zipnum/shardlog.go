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
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// shardActionLog records one line per shard lifecycle event
// (time, action, shard, size), in the teacher's build.Builder.shardLogger
// idiom, rotated so a long-running encode job never grows one file
// without bound.
type shardActionLog struct {
	w *lumberjack.Logger
}

func newShardActionLog(outDir, baseName string) *shardActionLog {
	return &shardActionLog{
		w: &lumberjack.Logger{
			Filename:   filepath.Join(outDir, baseName+".shardlog"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		},
	}
}

func (l *shardActionLog) record(action, shard string, size int64) {
	fmt.Fprintf(l.w, "%d\t%s\t%s\t%d\n", time.Now().UTC().Unix(), action, shard, size)
}

func (l *shardActionLog) close() {
	_ = l.w.Close()
}
