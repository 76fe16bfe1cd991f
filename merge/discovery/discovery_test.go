package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	require.Equal(t, TypeZipNumIndex, Classify("foo.idx"))
	require.Equal(t, TypeZipNumShard, Classify("foo.cdxj.gz"))
	require.Equal(t, TypeFlatCDXJ, Classify("foo.cdxj"))
	require.Equal(t, TypeFlatCDXJ, Classify("foo.unknown"))
}

func TestDiscoverDirAndExclude(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cdxj"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cdxj"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.cdxj"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("x"), 0o644))

	got, err := Discover([]string{dir}, []string{"skip.*"})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.cdxj"),
		filepath.Join(dir, "b.cdxj"),
	}, got)
}

func TestDefaultPairing(t *testing.T) {
	require.Equal(t, "foo.idx", DefaultIndexPath("foo.cdxj.gz"))
	require.Equal(t, "foo.cdxj.gz", DefaultDataPath("foo.idx"))
	require.Equal(t, "foo.loc", DefaultLocPath("foo.idx"))
}
