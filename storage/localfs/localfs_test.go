package localfs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/keysig/storage"
	"xdao.co/keysig/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		cas, err := New(t.TempDir())
		require.NoError(t, err)
		return cas
	})
}

func TestLocalFS_RejectMutationByOverwrite(t *testing.T) {
	cas, err := New(t.TempDir())
	require.NoError(t, err)

	orig := []byte(`{"type":"ED25519","key":"AAAA"}`)
	id, err := cas.Put(orig)
	require.NoError(t, err)

	// Corrupt the stored object out-of-band.
	path := cas.pathFor(id)
	require.NoError(t, os.Chmod(path, 0o644))
	require.NoError(t, os.WriteFile(path, []byte("corrupted"), 0o644))

	_, err = cas.Get(id)
	require.ErrorIs(t, err, storage.ErrCIDMismatch)

	// Put must not repair the corrupted object.
	_, err = cas.Put(orig)
	require.ErrorIs(t, err, storage.ErrImmutable)
}

func TestLocalFS_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	cas, err := New(dir)
	require.NoError(t, err)
	id, err := cas.Put([]byte("x"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir + "/" + id.String()[len(id.String())-2:])
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, id.String(), entries[0].Name())
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestLocalFS_List(t *testing.T) {
	cas, err := New(t.TempDir())
	require.NoError(t, err)

	ids, err := cas.List()
	require.NoError(t, err)
	require.Empty(t, ids)

	first, err := cas.Put([]byte("first"))
	require.NoError(t, err)
	second, err := cas.Put([]byte("second"))
	require.NoError(t, err)

	ids, err = cas.List()
	require.NoError(t, err)
	require.Len(t, ids, 2)
	got := map[string]bool{ids[0].String(): true, ids[1].String(): true}
	require.True(t, got[first.String()])
	require.True(t, got[second.String()])
}
