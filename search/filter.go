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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/grafana/regexp"

	"github.com/iipc/cdxzipnum"
	"github.com/iipc/cdxzipnum/cdxj"
)

// FieldOp is a comparison a FieldPredicate applies against a JSON field.
type FieldOp int

const (
	FieldEquals FieldOp = iota
	FieldNotEquals
	FieldMatches
	FieldNotMatches
)

// FieldPredicate filters on one field of a CDXJ line's JSON body (spec
// §4.8). Field is the JSON object key; for FieldMatches/FieldNotMatches,
// Value is compiled as a regex.
type FieldPredicate struct {
	Field string
	Op    FieldOp
	Value string

	re *regexp.Regexp
}

// compile pre-compiles the predicate's regex, if any. AddField calls
// this once per predicate; a regex predicate appended to
// FilterEngine.Fields directly is not compiled.
func (p *FieldPredicate) compile() error {
	if p.Op != FieldMatches && p.Op != FieldNotMatches {
		return nil
	}
	re, err := regexp.Compile(p.Value)
	if err != nil {
		return cdxzipnum.Wrap(cdxzipnum.KindBadRegex, err, "compiling field predicate regex")
	}
	p.re = re
	return nil
}

func (p *FieldPredicate) eval(obj map[string]any) bool {
	v, ok := obj[p.Field]
	s := fmt.Sprint(v)
	switch p.Op {
	case FieldEquals:
		return ok && s == p.Value
	case FieldNotEquals:
		return ok && s != p.Value
	case FieldMatches:
		return ok && p.re.MatchString(s)
	case FieldNotMatches:
		return ok && !p.re.MatchString(s)
	default:
		return false
	}
}

// TimeRange bounds a query by padded timestamp, per spec §4.8. From/To
// may be partial ("2019", "201907") and are padded left-to-right with
// "00000101000000", truncated to 14 digits.
type TimeRange struct {
	From string
	To   string
}

const timestampPad = "00000101000000"

// PadTimestamp fills partial, in left-to-right order, with the trailing
// digits of timestampPad and truncates to 14 digits (spec §4.8).
func PadTimestamp(partial string) string {
	if len(partial) >= 14 {
		return partial[:14]
	}
	return partial + timestampPad[len(partial):]
}

// FilterEngine applies predicates and ordering to a stream of CDXJ lines
// (spec §4.8). The zero value keeps every line that cdxj.Parse accepts;
// a line without a SURT/TIMESTAMP separator is always dropped by Keep.
type FilterEngine struct {
	TimeRange *TimeRange
	Fields    []FieldPredicate
	Sort      bool
	Dedupe    bool
	Limit     int // 0 means unlimited
}

// AddField compiles and appends a field predicate.
func (f *FilterEngine) AddField(p FieldPredicate) error {
	if err := p.compile(); err != nil {
		return err
	}
	f.Fields = append(f.Fields, p)
	return nil
}

// Keep reports whether line passes every configured predicate except
// Sort/Dedupe/Limit, which Apply handles over the whole result set.
func (f *FilterEngine) Keep(line []byte) bool {
	parsed, err := cdxj.Parse(cdxj.SortKey(line))
	if err != nil {
		return false
	}
	if f.TimeRange != nil {
		ts := string(parsed.Timestamp)
		from := PadTimestamp(f.TimeRange.From)
		to := PadTimestamp(f.TimeRange.To)
		if f.TimeRange.From == "" {
			from = "00000101000000"
		}
		if f.TimeRange.To == "" {
			to = "99999999999999"
		}
		if ts < from || ts > to {
			return false
		}
	}
	if len(f.Fields) > 0 {
		if parsed.JSON == nil {
			return false
		}
		var obj map[string]any
		if err := json.Unmarshal(parsed.JSON, &obj); err != nil {
			return false
		}
		for _, p := range f.Fields {
			if !p.eval(obj) {
				return false
			}
		}
	}
	return true
}

// Apply runs Keep over lines, then Sort/Dedupe/Limit in that order (spec
// §4.8: "sort... applied after all filters"; dedupe and limit follow
// sort since limit must see the final order).
func (f *FilterEngine) Apply(lines [][]byte) [][]byte {
	kept := make([][]byte, 0, len(lines))
	for _, l := range lines {
		if f.Keep(l) {
			kept = append(kept, l)
		}
	}

	if f.Sort {
		sort.SliceStable(kept, func(i, j int) bool {
			return bytesLess(cdxj.KeyPrefix(kept[i]), cdxj.KeyPrefix(kept[j]))
		})
	}

	if f.Dedupe {
		kept = dedupeByKeyPrefix(kept)
	}

	if f.Limit > 0 && len(kept) > f.Limit {
		kept = kept[:f.Limit]
	}
	return kept
}

func bytesLess(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// dedupeByKeyPrefix collapses lines sharing a (SURT, TIMESTAMP) prefix
// to the first occurrence, per spec §4.8.
func dedupeByKeyPrefix(lines [][]byte) [][]byte {
	seen := make(map[string]struct{}, len(lines))
	out := make([][]byte, 0, len(lines))
	for _, l := range lines {
		k := string(cdxj.KeyPrefix(l))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}
