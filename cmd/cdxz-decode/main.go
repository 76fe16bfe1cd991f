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

// Command cdxz-decode reconstitutes the original sorted CDXJ stream
// from a ZipNum .idx file and its shards.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/peterbourgon/ff/v3"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/iipc/cdxzipnum"
	"github.com/iipc/cdxzipnum/internal/xlog"
	"github.com/iipc/cdxzipnum/zipnum"
)

func main() {
	fs := flag.NewFlagSet("cdxz-decode", flag.ExitOnError)
	var (
		idxPath  = fs.String("idx", "", "path to the .idx file (required)")
		locPath  = fs.String("loc", "", "path to the .loc file; defaults to {idx base}.loc if present")
		baseDir  = fs.String("base-dir", "", "directory holding shard files; defaults to the .idx file's directory")
		out      = fs.String("out", "-", "output path, or - for stdout")
		workers  = fs.Int("workers", zipnum.DefaultWorkerCount, "parallel decompression workers")
		verbose  = fs.Bool("verbose", false, "log progress")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("CDXZ")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *idxPath == "" {
		fmt.Fprintln(os.Stderr, "-idx is required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	_, _ = maxprocs.Set()
	log := xlog.New(*verbose)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *idxPath, *locPath, *baseDir, *out, *workers, log); err != nil {
		log.Errorf("%v", err)
		if kind, ok := cdxzipnum.KindOf(err); ok && kind == cdxzipnum.KindCancelled {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, idxPath, locPath, baseDir, outPath string, workers int, log *xlog.Logger) error {
	idxFile, err := os.Open(idxPath)
	if err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "opening .idx")
	}
	defer idxFile.Close()

	if baseDir == "" {
		baseDir = filepath.Dir(idxPath)
	}
	if locPath == "" {
		candidate := idxPath[:len(idxPath)-len(filepath.Ext(idxPath))] + ".loc"
		if _, err := os.Stat(candidate); err == nil {
			locPath = candidate
		}
	}

	params := zipnum.DecodeParams{BaseDir: baseDir, WorkerCount: workers}
	if locPath != "" {
		locFile, err := os.Open(locPath)
		if err != nil {
			return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "opening .loc")
		}
		defer locFile.Close()
		params.LocReader = locFile
	}

	w := os.Stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "creating "+outPath)
		}
		defer f.Close()
		w = f
	}

	if err := zipnum.Decode(ctx, idxFile, w, params, log); err != nil {
		return err
	}
	if log.Verbose() {
		log.Infof("decoded %s to %s", idxPath, outPath)
	}
	return nil
}
