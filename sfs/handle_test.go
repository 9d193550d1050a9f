package sfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTripAcrossClose(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	id, err := fs.CreateFile(fs.RootInode(), "hello.txt")
	require.NoError(t, err)

	h, err := fs.OpenFile(id)
	require.NoError(t, err)

	payload := []byte("hello, simple file system")
	n, err := fs.Write(h, payload)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), n)
	require.NoError(t, fs.CloseFile(h))

	h2, err := fs.OpenFile(id)
	require.NoError(t, err)
	require.NoError(t, fs.Seek(h2, 0))

	out := make([]byte, len(payload))
	n2, err := fs.Read(h2, out)
	require.NoError(t, err)
	require.Equal(t, len(payload), n2)
	require.True(t, bytes.Equal(payload, out))
}

func TestCursorCouplingWriteThenRead(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	id, err := fs.CreateFile(fs.RootInode(), "f")
	require.NoError(t, err)
	h, err := fs.OpenFile(id)
	require.NoError(t, err)

	_, err = fs.Write(h, []byte("abcdef"))
	require.NoError(t, err)

	// A write couples the read cursor to the write cursor's new
	// position, so an immediate read sees nothing left to read.
	out := make([]byte, 10)
	n, err := fs.Read(h, out)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestSeekRejectsEqualToSize(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	id, err := fs.CreateFile(fs.RootInode(), "f")
	require.NoError(t, err)
	h, err := fs.OpenFile(id)
	require.NoError(t, err)
	_, err = fs.Write(h, []byte("abc"))
	require.NoError(t, err)

	require.ErrorIs(t, fs.Seek(h, 3), ErrOutOfRangeSeek)
	require.NoError(t, fs.Seek(h, 2))
}

func TestOpenFileRejectsDirectory(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	id, err := fs.CreateDirectory(fs.RootInode(), "d")
	require.NoError(t, err)
	_, err = fs.OpenFile(id)
	require.ErrorIs(t, err, ErrNotAFile)
}

func TestDeleteRangeShrinksFile(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	id, err := fs.CreateFile(fs.RootInode(), "f")
	require.NoError(t, err)
	h, err := fs.OpenFile(id)
	require.NoError(t, err)

	_, err = fs.Write(h, []byte("0123456789"))
	require.NoError(t, err)

	deleted, err := fs.DeleteRange(h, 4)
	require.NoError(t, err)
	require.Equal(t, int64(4), deleted)

	size, err := fs.Size(h)
	require.NoError(t, err)
	require.Equal(t, int64(6), size)

	require.NoError(t, fs.Seek(h, 0))
	out := make([]byte, 6)
	n, err := fs.Read(h, out)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, "012345", string(out))
}

func TestDeleteRangeReadCursorThreeBranchRule(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	id, err := fs.CreateFile(fs.RootInode(), "f")
	require.NoError(t, err)
	h1, err := fs.OpenFile(id)
	require.NoError(t, err)
	_, err = fs.Write(h1, []byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, fs.CloseFile(h1))

	// Reopening sets read=0, write=size without going through Seek, so the
	// cursors start desynced: read=0, write=10.
	h2, err := fs.OpenFile(id)
	require.NoError(t, err)

	deleted, err := fs.DeleteRange(h2, 4)
	require.NoError(t, err)
	require.Equal(t, int64(4), deleted)

	// read (0) lies before the deleted range [6,10), so it is left
	// untouched rather than clamped or shifted.
	out := make([]byte, 6)
	n, err := fs.Read(h2, out)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, "012345", string(out))
}

func TestDeleteRangeReadCursorShiftsWhenPastRange(t *testing.T) {
	fs := newTestFilesystem(t, smallGeometry())
	defer fs.Close()

	id, err := fs.CreateFile(fs.RootInode(), "f")
	require.NoError(t, err)
	h, err := fs.OpenFile(id)
	require.NoError(t, err)
	_, err = fs.Write(h, []byte("0123456789"))
	require.NoError(t, err)

	// Write coupled read=write=10, which lies at (past) the deleted
	// range's end, so it shifts back by the amount deleted.
	deleted, err := fs.DeleteRange(h, 4)
	require.NoError(t, err)
	require.Equal(t, int64(4), deleted)

	e, err := fs.descriptor(int(h))
	require.NoError(t, err)
	require.Equal(t, int64(6), e.read)

	require.NoError(t, fs.Seek(h, 0))
	out := make([]byte, 6)
	n, err := fs.Read(h, out)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, "012345", string(out))
}

func TestWriteAcrossMultipleBlocks(t *testing.T) {
	fs := newTestFilesystem(t, Geometry{BlockSize: 256, FSBlocks: 128, InodeBlocks: 4})
	defer fs.Close()

	id, err := fs.CreateFile(fs.RootInode(), "big")
	require.NoError(t, err)
	h, err := fs.OpenFile(id)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x5A}, 256*5+17)
	n, err := fs.Write(h, payload)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), n)

	require.NoError(t, fs.Seek(h, 0))
	out := make([]byte, len(payload))
	nr, err := fs.Read(h, out)
	require.NoError(t, err)
	require.Equal(t, len(payload), nr)
	require.True(t, bytes.Equal(payload, out))
}
