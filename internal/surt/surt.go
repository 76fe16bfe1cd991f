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

// Package surt implements the default URL->SURT canonicalizer used by
// search.MatchPolicy when a caller supplies a URL rather than an
// already-SURT key. The core treats this as a pluggable, deterministic
// transform (spec §4.7); this is the default instance of it.
package surt

import (
	"net/url"
	"strings"
)

// Convert rewrites a URL into Sort-friendly URL Reordering Transform
// form: "http://www.example.com/page" -> "com,example,www)/page". It is
// deterministic but is NOT idempotent on an input that is already a
// SURT — callers must pick one input mode, per spec §4.7.
func Convert(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	host := u.Host
	if host == "" {
		host = raw
		u = &url.URL{Path: ""}
	}

	hostPart, port := splitPort(host)
	labels := strings.Split(strings.ToLower(hostPart), ".")
	reverse(labels)

	var b strings.Builder
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l)
	}
	if port != "" {
		b.WriteByte(':')
		b.WriteString(port)
	}
	b.WriteByte(')')

	path := u.Path
	if path == "" {
		path = "/"
	}
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	return b.String(), nil
}

func splitPort(host string) (hostname, port string) {
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		return host[:i], host[i+1:]
	}
	return host, ""
}

func reverse(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}
