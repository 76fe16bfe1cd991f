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

// Command cdxz-merge k-way merges sorted CDXJ files into one sorted
// stream on stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/peterbourgon/ff/v3"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/iipc/cdxzipnum"
	"github.com/iipc/cdxzipnum/internal/xlog"
	"github.com/iipc/cdxzipnum/merge"
	"github.com/iipc/cdxzipnum/merge/discovery"
)

func main() {
	fs := flag.NewFlagSet("cdxz-merge", flag.ExitOnError)
	var (
		out     = fs.String("out", "-", "output path, or - for stdout")
		exclude = fs.String("exclude", "", "comma-separated glob patterns matched against input basenames")
		verbose = fs.Bool("verbose", false, "log an end-of-run line/source summary")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("CDXZ")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] FILE...\n", fs.Name())
		fs.PrintDefaults()
		os.Exit(1)
	}

	_, _ = maxprocs.Set()
	log := xlog.New(*verbose)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, fs.Args(), splitCSV(*exclude), *out, log); err != nil {
		log.Errorf("%v", err)
		if kind, ok := cdxzipnum.KindOf(err); ok && kind == cdxzipnum.KindCancelled {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args, exclude []string, outPath string, log *xlog.Logger) error {
	paths, err := discovery.Discover(args, exclude)
	if err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "discovering input files")
	}
	if len(paths) == 0 {
		return cdxzipnum.NewError(cdxzipnum.KindInvalidParam, fmt.Errorf("no input files matched"))
	}

	sources := make([]merge.Source, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "opening "+p)
		}
		defer f.Close()
		sources = append(sources, merge.Source{Name: p, Reader: f})
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

	stats, err := merge.Merge(ctx, w, sources, log)
	if err != nil {
		return err
	}
	if log.Verbose() {
		log.Infof("%d sources, %d lines written", stats.SourcesRead, stats.LinesWritten)
	}
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
