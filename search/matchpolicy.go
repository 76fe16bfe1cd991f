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

// Package search implements lookups over a sorted flat CDXJ file
// (BinarySearch) or a ZipNum index (ZipNumSearch), the match-key
// transform they share (MatchPolicy), and the post-filter applied to
// whatever they emit (FilterEngine).
package search

import (
	"bytes"
	"errors"
	"strings"

	"github.com/iipc/cdxzipnum/internal/surt"
)

var errNoSurtFunc = errors.New("search: URL input given but no SurtFunc configured")

// MatchType selects the predicate BinarySearch and ZipNumSearch apply
// once a query key has been resolved (spec §4.7).
type MatchType int

const (
	MatchExact MatchType = iota
	MatchPrefix
	MatchHost
	MatchDomain
)

// Query is a resolved lookup: a key already in SURT form plus the
// predicate to apply against it.
type Query struct {
	Key   []byte
	Match MatchType
}

// MatchPolicy turns a raw URL or SURT string plus a requested MatchType
// into a Query, per spec §4.7. SurtFunc converts a URL to SURT; pass
// internal/surt.Convert for the default canonicalizer, or nil to accept
// only inputs resolved with isSurt set.
type MatchPolicy struct {
	SurtFunc func(string) (string, error)
}

// DefaultMatchPolicy uses internal/surt.Convert for URL inputs.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{SurtFunc: surt.Convert}
}

// Resolve builds a Query from a caller-supplied key. If isSurt is false,
// input is treated as a URL and passed through SurtFunc first.
func (p MatchPolicy) Resolve(input string, isSurt bool, match MatchType) (Query, error) {
	key := input
	if !isSurt {
		if p.SurtFunc == nil {
			return Query{}, errNoSurtFunc
		}
		s, err := p.SurtFunc(input)
		if err != nil {
			return Query{}, err
		}
		key = s
	}

	switch match {
	case MatchHost, MatchDomain:
		key = hostPrefix(key)
		return Query{Key: []byte(key), Match: MatchPrefix}, nil
	default:
		return Query{Key: []byte(key), Match: match}, nil
	}
}

// hostPrefix truncates a SURT key at the first ")" inclusive:
// "com,example)/p" -> "com,example)". host and domain matching are
// identical for this specification (spec §4.7) because SURT already
// encodes subdomains as comma-separated segments before ")".
func hostPrefix(key string) string {
	if i := strings.IndexByte(key, ')'); i >= 0 {
		return key[:i+1]
	}
	return key
}

// Matches reports whether candidate (a whole-line key, i.e. "SURT SP
// TIMESTAMP") satisfies q.
func (q Query) Matches(candidate []byte) bool {
	switch q.Match {
	case MatchExact:
		return bytes.Equal(candidate, q.Key)
	default: // MatchPrefix, MatchHost, MatchDomain resolve to prefix by Resolve
		return bytes.HasPrefix(candidate, q.Key)
	}
}

// UpperBound returns the smallest key strictly greater than every key
// that starts with q.Key, used by ZipNumSearch to bound the candidate
// chunk scan for a prefix query (spec §4.6 step 1). It increments the
// last byte of q.Key, carrying into preceding bytes on overflow; if
// q.Key is all 0xFF bytes, ok is false (no finite upper bound — scan to
// EOF instead).
func (q Query) UpperBound() (key []byte, ok bool) {
	up := append([]byte(nil), q.Key...)
	for i := len(up) - 1; i >= 0; i-- {
		if up[i] != 0xFF {
			up[i]++
			return up[:i+1], true
		}
	}
	return nil, false
}
