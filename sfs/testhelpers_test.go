package sfs

import (
	"path/filepath"
	"testing"

	"github.com/Yaters/Simple-File-System/blockdev"
	"github.com/stretchr/testify/require"
)

func blockdevOpenForTest(path string, geom Geometry) (*blockdev.Device, error) {
	return blockdev.Open(path, geom.BlockSize, geom.FSBlocks)
}

// newTestFilesystem formats a fresh, throwaway file system under t's
// temporary directory using geom, and registers its cleanup.
func newTestFilesystem(t *testing.T, geom Geometry) *Filesystem {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sfs")
	fs, err := Format(path, geom, nil)
	require.NoError(t, err)
	return fs
}

func smallGeometry() Geometry {
	return Geometry{BlockSize: 1024, FSBlocks: 256, InodeBlocks: 8}
}
