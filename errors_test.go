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

package cdxzipnum

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewErrorNilIsNil(t *testing.T) {
	require.NoError(t, NewError(KindIO, nil))
	require.NoError(t, Wrap(KindIO, nil, "msg"))
}

func TestKindOfUnwraps(t *testing.T) {
	err := Wrap(KindBadShard, fmt.Errorf("short read"), "decompressing chunk")
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindBadShard, kind)
	require.Contains(t, err.Error(), "decompressing chunk")
}

func TestKindOfNonTaggedError(t *testing.T) {
	_, ok := KindOf(fmt.Errorf("plain error"))
	require.False(t, ok)
}

func TestKindStrings(t *testing.T) {
	cases := []struct {
		k    Kind
		want string
	}{
		{KindIO, "Io"},
		{KindMalformedRecord, "MalformedRecord"},
		{KindCancelled, "Cancelled"},
		{Kind(99), "Unknown"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.k.String())
	}
}
