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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPadTimestamp(t *testing.T) {
	require.Equal(t, "20190101000000", PadTimestamp("2019"))
	require.Equal(t, "20190701000000", PadTimestamp("201907"))
	require.Equal(t, "20190704153000", PadTimestamp("20190704153000123")[:14])
}

func TestFilterTimeRange(t *testing.T) {
	f := &FilterEngine{TimeRange: &TimeRange{From: "2019", To: "2020"}}
	require.True(t, f.Keep([]byte("com,example)/a 20190601000000 {}")))
	require.False(t, f.Keep([]byte("com,example)/a 20210601000000 {}")))
}

func TestFilterFieldEquals(t *testing.T) {
	f := &FilterEngine{}
	require.NoError(t, f.AddField(FieldPredicate{Field: "status", Op: FieldEquals, Value: "200"}))
	require.True(t, f.Keep([]byte(`com,example)/a 20190601000000 {"status":"200"}`)))
	require.False(t, f.Keep([]byte(`com,example)/a 20190601000000 {"status":"404"}`)))
	require.False(t, f.Keep([]byte("com,example)/a 20190601000000")))
}

func TestFilterFieldRegex(t *testing.T) {
	f := &FilterEngine{}
	require.NoError(t, f.AddField(FieldPredicate{Field: "mime", Op: FieldMatches, Value: "^text/"}))
	require.True(t, f.Keep([]byte(`com,example)/a 20190601000000 {"mime":"text/html"}`)))
	require.False(t, f.Keep([]byte(`com,example)/a 20190601000000 {"mime":"image/png"}`)))
}

func TestFilterBadRegexRejected(t *testing.T) {
	f := &FilterEngine{}
	err := f.AddField(FieldPredicate{Field: "mime", Op: FieldMatches, Value: "(unterminated"})
	require.Error(t, err)
}

func TestFilterApplySortDedupeLimit(t *testing.T) {
	lines := [][]byte{
		[]byte("com,example)/b 20190101000000 {}"),
		[]byte("com,example)/a 20190101000000 {}"),
		[]byte("com,example)/a 20190101000000 {}"), // duplicate key prefix
		[]byte("com,example)/c 20190101000000 {}"),
	}
	f := &FilterEngine{Sort: true, Dedupe: true, Limit: 2}
	out := f.Apply(lines)
	require.Len(t, out, 2)
	require.Equal(t, "com,example)/a 20190101000000 {}", string(out[0]))
	require.Equal(t, "com,example)/b 20190101000000 {}", string(out[1]))
}

func TestFilterApplySortIgnoresJSONBody(t *testing.T) {
	// Same SURT+TIMESTAMP, JSON bytes that would sort the other way if
	// the comparator mistakenly included them: input order must survive.
	lines := [][]byte{
		[]byte("com,example)/a 20190101000000 {\"z\":1}"),
		[]byte("com,example)/a 20190101000000 {\"a\":1}"),
	}
	f := &FilterEngine{Sort: true}
	out := f.Apply(lines)
	require.Len(t, out, 2)
	require.Equal(t, string(lines[0]), string(out[0]))
	require.Equal(t, string(lines[1]), string(out[1]))
}
