package sfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatCreatesRootDirectory(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	require.GreaterOrEqual(t, fs.RootInode(), 0)
	require.Equal(t, fs.RootInode(), fs.CurrentDirInode())

	payload, err := fs.readDirectoryPayload(fs.RootInode())
	require.NoError(t, err)
	require.Equal(t, -1, payload.ParentInode)
	require.Empty(t, payload.Entries)
}

func TestMountRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fs.sfs")
	fs, err := Format(path, smallGeometry(), nil)
	require.NoError(t, err)

	childID, err := fs.CreateDirectory(fs.RootInode(), "etc")
	require.NoError(t, err)
	require.NoError(t, fs.Close())

	remounted, err := Mount(path, nil)
	require.NoError(t, err)
	defer remounted.Close()

	id, isDir, err := remounted.Lookup(remounted.RootInode(), "etc")
	require.NoError(t, err)
	require.True(t, isDir)
	require.Equal(t, childID, id)
}

func TestMountRejectsBadMagic(t *testing.T) {
	geom := smallGeometry()
	path := filepath.Join(t.TempDir(), "fs.sfs")
	fs, err := Format(path, geom, nil)
	require.NoError(t, err)
	require.NoError(t, fs.Close())

	dev, err := blockdevOpenForTest(path, geom)
	require.NoError(t, err)
	buf := make([]byte, geom.BlockSize)
	require.NoError(t, dev.ReadBlocks(0, 1, buf))
	buf[0] ^= 0xFF
	require.NoError(t, dev.WriteBlocks(0, 1, buf))
	require.NoError(t, dev.Close())

	_, err = Mount(path, nil)
	require.ErrorIs(t, err, ErrUnsupportedMagic)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	require.NoError(t, fs.Close())

	_, err := fs.CreateFile(fs.RootInode(), "x")
	require.ErrorIs(t, err, ErrFilesystemClosed)
}
