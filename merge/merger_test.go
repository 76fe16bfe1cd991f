package merge

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeTwoFiles(t *testing.T) {
	a := strings.NewReader("a\nc\ne\n")
	b := strings.NewReader("b\nd\nf\n")

	var out bytes.Buffer
	stats, err := Merge(context.Background(), &out, []Source{
		{Name: "A", Reader: a},
		{Name: "B", Reader: b},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\nd\ne\nf\n", out.String())
	require.EqualValues(t, 6, stats.LinesWritten)
}

func TestMergeStability(t *testing.T) {
	a := strings.NewReader("k 1\nk 2\n")
	b := strings.NewReader("k 1\n")

	var out bytes.Buffer
	_, err := Merge(context.Background(), &out, []Source{
		{Name: "A", Reader: a},
		{Name: "B", Reader: b},
	}, nil)
	require.NoError(t, err)
	// Both "k 1" lines tie; source A (index 0) must come first.
	require.Equal(t, "k 1\nk 1\nk 2\n", out.String())
}

func TestMergeTotality(t *testing.T) {
	sources := []Source{
		{Name: "A", Reader: strings.NewReader("c\nd\n")},
		{Name: "B", Reader: strings.NewReader("a\nb\ne\n")},
		{Name: "C", Reader: strings.NewReader("")},
	}
	var out bytes.Buffer
	stats, err := Merge(context.Background(), &out, sources, nil)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\nd\ne\n", out.String())
	require.EqualValues(t, 5, stats.LinesWritten)
}

func TestMergeEmptySources(t *testing.T) {
	var out bytes.Buffer
	stats, err := Merge(context.Background(), &out, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "", out.String())
	require.EqualValues(t, 0, stats.LinesWritten)
}

func TestMergeUnterminatedFinalLine(t *testing.T) {
	a := strings.NewReader("a\nb")
	var out bytes.Buffer
	_, err := Merge(context.Background(), &out, []Source{{Name: "A", Reader: a}}, nil)
	require.NoError(t, err)
	require.Equal(t, "a\nb", out.String())
}
