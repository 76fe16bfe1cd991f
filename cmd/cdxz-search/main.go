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

// Command cdxz-search looks up a URL or SURT key across one or more
// flat sorted CDXJ files and/or ZipNum indexes, applying optional
// timestamp and field filters to the combined results.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/iipc/cdxzipnum"
	"github.com/iipc/cdxzipnum/internal/xlog"
	"github.com/iipc/cdxzipnum/merge/discovery"
	"github.com/iipc/cdxzipnum/search"
)

// stringSliceFlag accumulates repeated occurrences of a flag, the same
// shape zoekt's own multi-value flags (e.g. -file_limit lists) use.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }
func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	fs := flag.NewFlagSet("cdxz-search", flag.ExitOnError)
	var (
		locPath   = fs.String("loc", "", "path to a .loc file; defaults to {idx base}.loc if present, per .idx file")
		baseDir   = fs.String("base-dir", "", "directory holding shard files; defaults to each .idx file's own directory")
		exclude   = fs.String("exclude", "", "comma-separated glob patterns matched against input basenames")
		url       = fs.String("url", "", "URL to look up (converted to SURT); mutually exclusive with -surt")
		surtKey   = fs.String("surt", "", "already-SURT-form key to look up; mutually exclusive with -url")
		matchFlag = fs.String("matchType", "exact", "match type: exact, prefix, host, domain")
		fromTS    = fs.String("from", "", "earliest timestamp to keep, e.g. 2019 or 20190601000000")
		toTS      = fs.String("to", "", "latest timestamp to keep")
		sortFlag  = fs.Bool("sort", false, "sort results by SURT then timestamp")
		dedupe    = fs.Bool("dedupe", false, "collapse duplicate (SURT, timestamp) results to the first occurrence")
		limit     = fs.Int("limit", 0, "maximum number of results, 0 for unlimited")
		skipErr   = fs.Bool("skip-errors", false, "report per-file errors to stderr and continue with remaining files, instead of aborting")
		verbose   = fs.Bool("verbose", false, "log the match count")
	)
	var fields stringSliceFlag
	fs.Var(&fields, "filter", "field predicate, repeatable: NAME=VALUE, NAME!=VALUE, NAME~REGEX, NAME!~REGEX")

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

	cfg := searchConfig{
		args: fs.Args(), exclude: splitCSV(*exclude),
		locPath: *locPath, baseDir: *baseDir,
		url: *url, surt: *surtKey, match: *matchFlag,
		from: *fromTS, to: *toTS, fields: fields,
		sort: *sortFlag, dedupe: *dedupe, limit: *limit,
		skipErrors: *skipErr,
	}
	if err := run(ctx, cfg, os.Stdout, log); err != nil {
		log.Errorf("%v", err)
		if kind, ok := cdxzipnum.KindOf(err); ok && kind == cdxzipnum.KindCancelled {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

type searchConfig struct {
	args       []string
	exclude    []string
	locPath    string
	baseDir    string
	url, surt  string
	match      string
	from, to   string
	fields     []string
	sort       bool
	dedupe     bool
	limit      int
	skipErrors bool
}

func run(ctx context.Context, cfg searchConfig, stdout *os.File, log *xlog.Logger) error {
	if (cfg.url == "") == (cfg.surt == "") {
		return cdxzipnum.NewError(cdxzipnum.KindInvalidParam, fmt.Errorf("exactly one of -url or -surt is required"))
	}

	matchType, err := parseMatchType(cfg.match)
	if err != nil {
		return cdxzipnum.NewError(cdxzipnum.KindInvalidParam, err)
	}

	policy := search.DefaultMatchPolicy()
	var q search.Query
	if cfg.url != "" {
		q, err = policy.Resolve(cfg.url, false, matchType)
	} else {
		q, err = policy.Resolve(cfg.surt, true, matchType)
	}
	if err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindInvalidParam, err, "resolving query key")
	}

	filter, err := buildFilter(cfg)
	if err != nil {
		return err
	}

	paths, err := discovery.Discover(cfg.args, cfg.exclude)
	if err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "discovering input files")
	}
	if len(paths) == 0 {
		return cdxzipnum.NewError(cdxzipnum.KindInvalidParam, fmt.Errorf("no input files matched"))
	}

	var buf bytes.Buffer
	var total int64
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return cdxzipnum.NewError(cdxzipnum.KindCancelled, err)
		}
		n, err := searchOne(ctx, path, cfg, q, &buf, log)
		if err != nil {
			if cfg.skipErrors {
				log.Warnf("skipping %s: %v", path, err)
				continue
			}
			return err
		}
		total += n
	}

	lines := splitLines(buf.Bytes())
	kept := filter.Apply(lines)
	for _, l := range kept {
		if _, err := stdout.Write(l); err != nil {
			return cdxzipnum.Wrap(cdxzipnum.KindIO, err, "writing results")
		}
	}
	if log.Verbose() {
		log.Infof("%d raw matches across %d file(s), %d after filtering", total, len(paths), len(kept))
	}
	return nil
}

// searchOne dispatches path to BinarySearch or ZipNumSearch by its
// classified FileType (spec §4.9). A raw ZipNum shard file cannot be
// searched directly; callers must point at its .idx instead.
func searchOne(ctx context.Context, path string, cfg searchConfig, q search.Query, w *bytes.Buffer, log *xlog.Logger) (int64, error) {
	switch discovery.Classify(path) {
	case discovery.TypeZipNumIndex:
		return searchZipNum(ctx, path, cfg, q, w, log)
	case discovery.TypeZipNumShard:
		return 0, cdxzipnum.NewError(cdxzipnum.KindInvalidParam,
			fmt.Errorf("%s is a ZipNum shard; pass its .idx file instead", path))
	default:
		return searchFlat(ctx, path, q, w)
	}
}

func searchFlat(ctx context.Context, path string, q search.Query, w *bytes.Buffer) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, cdxzipnum.Wrap(cdxzipnum.KindMissingFile, err, "opening "+path)
	}
	defer f.Close()
	bs, err := search.NewBinarySearch(f)
	if err != nil {
		return 0, err
	}
	return bs.Search(ctx, w, q)
}

func searchZipNum(ctx context.Context, idxPath string, cfg searchConfig, q search.Query, w *bytes.Buffer, log *xlog.Logger) (int64, error) {
	idxFile, err := os.Open(idxPath)
	if err != nil {
		return 0, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "opening .idx")
	}
	defer idxFile.Close()

	baseDir := cfg.baseDir
	if baseDir == "" {
		baseDir = dirOf(idxPath)
	}

	var locReader io.Reader
	locPath := cfg.locPath
	if locPath == "" {
		candidate := discovery.DefaultLocPath(idxPath)
		if _, err := os.Stat(candidate); err == nil {
			locPath = candidate
		}
	}
	if locPath != "" {
		locFile, err := os.Open(locPath)
		if err != nil {
			return 0, cdxzipnum.Wrap(cdxzipnum.KindIO, err, "opening .loc")
		}
		defer locFile.Close()
		locReader = locFile
	}

	zs, err := search.NewZipNumSearch(idxFile, locReader, baseDir, log)
	if err != nil {
		return 0, err
	}
	return zs.Search(ctx, w, q)
}

func parseMatchType(s string) (search.MatchType, error) {
	switch strings.ToLower(s) {
	case "exact":
		return search.MatchExact, nil
	case "prefix":
		return search.MatchPrefix, nil
	case "host":
		return search.MatchHost, nil
	case "domain":
		return search.MatchDomain, nil
	default:
		return 0, fmt.Errorf("unknown -matchType value %q", s)
	}
}

func buildFilter(cfg searchConfig) (*search.FilterEngine, error) {
	f := &search.FilterEngine{Sort: cfg.sort, Dedupe: cfg.dedupe, Limit: cfg.limit}
	if cfg.from != "" || cfg.to != "" {
		f.TimeRange = &search.TimeRange{From: cfg.from, To: cfg.to}
	}
	for _, raw := range cfg.fields {
		pred, err := parseFieldPredicate(raw)
		if err != nil {
			return nil, cdxzipnum.NewError(cdxzipnum.KindInvalidParam, err)
		}
		if err := f.AddField(pred); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func parseFieldPredicate(s string) (search.FieldPredicate, error) {
	for _, sep := range []struct {
		tok string
		op  search.FieldOp
	}{
		{"!=", search.FieldNotEquals},
		{"!~", search.FieldNotMatches},
		{"~", search.FieldMatches},
		{"=", search.FieldEquals},
	} {
		if i := strings.Index(s, sep.tok); i >= 0 {
			return search.FieldPredicate{Field: s[:i], Op: sep.op, Value: s[i+len(sep.tok):]}, nil
		}
	}
	return search.FieldPredicate{}, fmt.Errorf("malformed -filter predicate %q", s)
}

func splitLines(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			out = append(out, data[start:i+1])
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, data[start:])
	}
	return out
}

func dirOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "."
	}
	return path[:i]
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
