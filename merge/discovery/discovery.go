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

// Package discovery expands CLI-style file arguments (files, directories,
// glob patterns) into a deduplicated, sorted list of paths, and classifies
// each by FileType.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

// FileType is the on-disk role of a discovered path, decided purely by
// extension suffix.
type FileType int

const (
	TypeUnknown FileType = iota
	TypeFlatCDXJ
	TypeZipNumIndex
	TypeZipNumShard
)

// Classify returns the FileType for path by extension suffix.
func Classify(path string) FileType {
	switch {
	case hasSuffix(path, ".idx"):
		return TypeZipNumIndex
	case hasSuffix(path, ".cdxj.gz"):
		return TypeZipNumShard
	case hasSuffix(path, ".cdxj"):
		return TypeFlatCDXJ
	default:
		return TypeFlatCDXJ // unknown -> treated as flat CDXJ, best effort
	}
}

// DefaultIndexPath returns the .idx path paired with a ZipNum data path
// P.cdxj.gz, namely P.idx.
func DefaultIndexPath(dataPath string) string {
	return trimSuffix(dataPath, ".cdxj.gz") + ".idx"
}

// DefaultDataPath returns the .cdxj.gz path paired with a ZipNum .idx
// path P.idx, namely P.cdxj.gz.
func DefaultDataPath(idxPath string) string {
	return trimSuffix(idxPath, ".idx") + ".cdxj.gz"
}

// DefaultLocPath returns the .loc path that, if present, overrides the
// default data/index pairing for idxPath.
func DefaultLocPath(idxPath string) string {
	return trimSuffix(idxPath, ".idx") + ".loc"
}

func trimSuffix(s, suffix string) string {
	if hasSuffix(s, suffix) {
		return s[:len(s)-len(suffix)]
	}
	return s
}

func hasSuffix(path, suffix string) bool {
	if len(path) < len(suffix) {
		return false
	}
	return path[len(path)-len(suffix):] == suffix
}

// cdxjExtensions is the set of extensions a directory recursion accepts.
var cdxjExtensions = map[string]bool{
	".cdxj": true,
	".idx":  true,
	".gz":   true, // covers ".cdxj.gz"; Classify() disambiguates further
}

// Discover expands args into a sorted, deduplicated list of regular
// files. Directories are recursed; entries in args that contain glob
// metacharacters are expanded with doublestar (supporting "**"); exclude
// patterns are matched against basenames only, using gobwas/glob.
func Discover(args []string, exclude []string) ([]string, error) {
	excluders := make([]glob.Glob, 0, len(exclude))
	for _, pat := range exclude {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, err
		}
		excluders = append(excluders, g)
	}

	seen := map[string]bool{}
	var out []string

	add := func(path string) {
		if seen[path] {
			return
		}
		base := filepath.Base(path)
		for _, g := range excluders {
			if g.Match(base) {
				return
			}
		}
		seen[path] = true
		out = append(out, path)
	}

	for _, arg := range args {
		if doublestar.ValidatePattern(arg) && containsMeta(arg) {
			matches, err := doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				if err := walkIfDir(m, add); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := walkIfDir(arg, add); err != nil {
			return nil, err
		}
	}

	sort.Strings(out)
	return out, nil
}

func walkIfDir(path string, add func(string)) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		add(path)
		return nil
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if acceptExt(p) {
			add(p)
		}
		return nil
	})
}

func acceptExt(p string) bool {
	ext := filepath.Ext(p)
	return cdxjExtensions[ext]
}

func containsMeta(s string) bool {
	for _, r := range s {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
