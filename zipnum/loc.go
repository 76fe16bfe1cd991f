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
	"fmt"
	"os"
	"path/filepath"

	"github.com/iipc/cdxzipnum"
)

// writeLocFile writes one "SHARD_NAME\tFILENAME" line per shard, in
// shard-number order, as required by spec §3/§6.
func writeLocFile(outDir, baseName string, shardPaths []string) (string, error) {
	locPath := filepath.Join(outDir, baseName+".loc")
	f, err := os.Create(locPath)
	if err != nil {
		return "", cdxzipnum.Wrap(cdxzipnum.KindIO, err, "creating .loc")
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, p := range shardPaths {
		name := filepath.Base(p)
		shardName := name
		if len(name) > len(".cdxj.gz") {
			shardName = name[:len(name)-len(".cdxj.gz")]
		}
		fmt.Fprintf(bw, "%s\t%s\n", shardName, name)
	}
	if err := bw.Flush(); err != nil {
		return "", cdxzipnum.Wrap(cdxzipnum.KindIO, err, "writing .loc")
	}
	return locPath, nil
}
