package cdxj

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	cases := []string{
		"com,example)/page 20200101000000 {\"status\":\"200\"}",
		"com,example)/page 20200101000000",
		"com,example)/ 20200101000000 {}",
	}
	for _, c := range cases {
		l, err := Parse([]byte(c))
		require.NoError(t, err)
		got := Format(l.SURT, l.Timestamp, l.JSON)
		require.Equal(t, c+"\n", string(got))
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("no-spaces-here"))
	require.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	line := []byte("com,example)/page 20200101000000 {\"a\":1}\n")
	require.Equal(t, "com,example)/page 20200101000000", string(KeyPrefix(line)))
}

func TestKeyPrefixNoJSON(t *testing.T) {
	line := []byte("com,example)/page 20200101000000")
	require.Equal(t, "com,example)/page 20200101000000", string(KeyPrefix(line)))
}

func TestSortKeyStripsNewline(t *testing.T) {
	require.Equal(t, "a b c", string(SortKey([]byte("a b c\n"))))
	require.Equal(t, "a b c", string(SortKey([]byte("a b c"))))
}
