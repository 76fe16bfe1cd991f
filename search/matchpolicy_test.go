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

func TestMatchPolicyResolveSurt(t *testing.T) {
	p := MatchPolicy{}
	q, err := p.Resolve("com,example)/page", true, MatchExact)
	require.NoError(t, err)
	require.Equal(t, "com,example)/page", string(q.Key))
	require.Equal(t, MatchExact, q.Match)
}

func TestMatchPolicyResolveURL(t *testing.T) {
	p := DefaultMatchPolicy()
	q, err := p.Resolve("http://www.example.com/page?x=1", false, MatchPrefix)
	require.NoError(t, err)
	require.Equal(t, "com,example,www)/page?x=1", string(q.Key))
	require.Equal(t, MatchPrefix, q.Match)
}

func TestMatchPolicyHostNarrowsToPrefix(t *testing.T) {
	p := MatchPolicy{}
	q, err := p.Resolve("com,example)/page", true, MatchHost)
	require.NoError(t, err)
	require.Equal(t, "com,example)", string(q.Key))
	require.Equal(t, MatchPrefix, q.Match)
}

func TestMatchPolicyURLWithoutSurtFunc(t *testing.T) {
	p := MatchPolicy{}
	_, err := p.Resolve("http://example.com/", false, MatchExact)
	require.Error(t, err)
}

func TestQueryMatches(t *testing.T) {
	exact := Query{Key: []byte("com,example)/a 20200101000000"), Match: MatchExact}
	require.True(t, exact.Matches([]byte("com,example)/a 20200101000000")))
	require.False(t, exact.Matches([]byte("com,example)/a 20200101000001")))

	prefix := Query{Key: []byte("com,example)/a"), Match: MatchPrefix}
	require.True(t, prefix.Matches([]byte("com,example)/a 20200101000000")))
	require.True(t, prefix.Matches([]byte("com,example)/about 20200101000000")))
	require.False(t, prefix.Matches([]byte("com,example)/b 20200101000000")))
}

func TestQueryUpperBound(t *testing.T) {
	q := Query{Key: []byte("com,example)/a")}
	up, ok := q.UpperBound()
	require.True(t, ok)
	require.Equal(t, "com,example)/b", string(up))

	allFF := Query{Key: []byte{0xFF, 0xFF}}
	_, ok = allFF.UpperBound()
	require.False(t, ok)
}
