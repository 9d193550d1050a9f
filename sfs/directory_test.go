package sfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateChildRejectsCollision(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	_, err := fs.CreateFile(fs.RootInode(), "dup")
	require.NoError(t, err)
	_, err = fs.CreateFile(fs.RootInode(), "dup")
	require.ErrorIs(t, err, ErrNameCollision)
}

func TestCreateChildRejectsLongName(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	longName := ""
	for i := 0; i < MaxNameLen+1; i++ {
		longName += "a"
	}
	_, err := fs.CreateFile(fs.RootInode(), longName)
	require.ErrorIs(t, err, ErrNameTooLong)
}

func TestSwapWithTailCompactionOnRemove(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		_, err := fs.CreateFile(fs.RootInode(), n)
		require.NoError(t, err)
	}

	require.NoError(t, fs.Remove(fs.RootInode(), "b"))

	payload, err := fs.readDirectoryPayload(fs.RootInode())
	require.NoError(t, err)
	require.Len(t, payload.Entries, 3)

	remaining := map[string]bool{}
	for _, e := range payload.Entries {
		remaining[e.Name] = true
	}
	require.True(t, remaining["a"])
	require.True(t, remaining["c"])
	require.True(t, remaining["d"])
	require.False(t, remaining["b"])
}

func TestRemoveRecursesIntoSubdirectories(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	dirID, err := fs.CreateDirectory(fs.RootInode(), "sub")
	require.NoError(t, err)
	_, err = fs.CreateFile(dirID, "inner.txt")
	require.NoError(t, err)
	innerDirID, err := fs.CreateDirectory(dirID, "deeper")
	require.NoError(t, err)
	_, err = fs.CreateFile(innerDirID, "leaf.txt")
	require.NoError(t, err)

	require.NoError(t, fs.Remove(fs.RootInode(), "sub"))

	payload, err := fs.readDirectoryPayload(fs.RootInode())
	require.NoError(t, err)
	require.Empty(t, payload.Entries)

	_, _, err = fs.Lookup(fs.RootInode(), "sub")
	require.ErrorIs(t, err, ErrNoSuchEntry)
}

func TestParentRejectsRoot(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	_, err := fs.Parent(fs.RootInode())
	require.ErrorIs(t, err, ErrRootHasNoParent)
}

func TestParentOfSubdirectory(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	dirID, err := fs.CreateDirectory(fs.RootInode(), "sub")
	require.NoError(t, err)

	parent, err := fs.Parent(dirID)
	require.NoError(t, err)
	require.Equal(t, fs.RootInode(), parent)
}

func TestDirectoryIteratorWalksEntries(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	for _, n := range []string{"x", "y", "z"} {
		_, err := fs.CreateFile(fs.RootInode(), n)
		require.NoError(t, err)
	}

	it, err := fs.Iterate(fs.RootInode())
	require.NoError(t, err)
	seen := map[string]bool{}
	for {
		name, ok := it.Next()
		if !ok {
			break
		}
		seen[name] = true
	}
	require.Len(t, seen, 3)
}

func TestChangeDirAndBack(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	dirID, err := fs.CreateDirectory(fs.RootInode(), "sub")
	require.NoError(t, err)
	require.NoError(t, fs.ChangeDir(dirID))
	require.Equal(t, dirID, fs.CurrentDirInode())

	parent, err := fs.Parent(fs.CurrentDirInode())
	require.NoError(t, err)
	require.NoError(t, fs.ChangeDir(parent))
	require.Equal(t, fs.RootInode(), fs.CurrentDirInode())
}

func TestChangeDirRejectsFile(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	id, err := fs.CreateFile(fs.RootInode(), "f")
	require.NoError(t, err)
	require.ErrorIs(t, fs.ChangeDir(id), ErrNotADirectory)
}
