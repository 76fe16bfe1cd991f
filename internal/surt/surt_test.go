package surt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	cases := map[string]string{
		"http://www.example.com/page":     "com,example,www)/page",
		"http://example.com/":              "com,example)/",
		"https://example.com/path?q=1":     "com,example)/path?q=1",
		"http://example.com:8080/page":     "com,example:8080)/page",
	}
	for in, want := range cases {
		got, err := Convert(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
