package api

import (
	"path/filepath"
	"testing"

	"github.com/Yaters/Simple-File-System/sfs"
	"github.com/stretchr/testify/require"
)

func newTestShell(t *testing.T) *Shell {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fs.sfs")
	s, err := Format(path, sfs.DefaultGeometry(), nil)
	require.NoError(t, err)
	return s
}

func TestShellOpenWriteReadClose(t *testing.T) {
	s := newTestShell(t)
	defer s.Close()

	h, err := s.Open("notes.txt")
	require.NoError(t, err)
	n, err := s.Write(h, []byte("first line"))
	require.NoError(t, err)
	require.Equal(t, int64(len("first line")), n)
	require.NoError(t, s.CloseFile(h))

	h2, err := s.Open("notes.txt")
	require.NoError(t, err)
	require.NoError(t, s.Seek(h2, 0))
	buf := make([]byte, 10)
	nr, err := s.Read(h2, buf)
	require.NoError(t, err)
	require.Equal(t, 10, nr)
	require.Equal(t, "first line", string(buf))
	require.NoError(t, s.CloseFile(h2))
}

func TestShellMkdirAndChdirWithDotDot(t *testing.T) {
	s := newTestShell(t)
	defer s.Close()

	require.NoError(t, s.Mkdir("etc"))
	require.NoError(t, s.Chdir("etc"))
	require.NoError(t, s.Chdir(".."))

	_, _, err := s.fs.Lookup(s.fs.CurrentDirInode(), "etc")
	require.NoError(t, err)
}

func TestShellFileSizeResolvesPath(t *testing.T) {
	s := newTestShell(t)
	defer s.Close()

	require.NoError(t, s.Mkdir("sub"))
	require.NoError(t, s.Chdir("sub"))
	h, err := s.Open("a.bin")
	require.NoError(t, err)
	_, err = s.Write(h, []byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, s.CloseFile(h))
	require.NoError(t, s.Chdir(".."))

	size, err := s.FileSize("sub" + string(sfs.PathSeparator) + "a.bin")
	require.NoError(t, err)
	require.Equal(t, int64(10), size)
}

func TestShellNextFilenameWraps(t *testing.T) {
	s := newTestShell(t)
	defer s.Close()

	require.NoError(t, s.Mkdir("a"))
	require.NoError(t, s.Mkdir("b"))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		name, ok, err := s.NextFilename()
		require.NoError(t, err)
		require.True(t, ok)
		seen[name] = true
	}
	_, ok, err := s.NextFilename()
	require.NoError(t, err)
	require.False(t, ok)

	require.True(t, seen["a"])
	require.True(t, seen["b"])

	// The call after exhaustion starts a new pass.
	name, ok, err := s.NextFilename()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, seen[name])
}

func TestShellOpenRejectsDirectory(t *testing.T) {
	s := newTestShell(t)
	defer s.Close()

	require.NoError(t, s.Mkdir("d"))
	_, err := s.Open("d")
	require.ErrorIs(t, err, sfs.ErrNotAFile)
}

func TestShellRemove(t *testing.T) {
	s := newTestShell(t)
	defer s.Close()

	h, err := s.Open("gone.txt")
	require.NoError(t, err)
	require.NoError(t, s.CloseFile(h))

	require.NoError(t, s.Remove("gone.txt"))
	_, err = s.Open("gone.txt")
	require.NoError(t, err) // recreated since it no longer exists
}
