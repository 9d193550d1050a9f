package blockdev

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatZeroesDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fs.sfs")
	d, err := Format(path, 512, 8)
	require.NoError(t, err)
	defer d.Close()

	buf := make([]byte, 512*8)
	require.NoError(t, d.ReadBlocks(0, 8, buf))
	require.True(t, bytes.Equal(buf, make([]byte, len(buf))))
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fs.sfs")
	d, err := Format(path, 512, 8)
	require.NoError(t, err)
	defer d.Close()

	payload := bytes.Repeat([]byte{0xAB}, 512*2)
	require.NoError(t, d.WriteBlocks(3, 2, payload))

	out := make([]byte, 512*2)
	require.NoError(t, d.ReadBlocks(3, 2, out))
	require.Equal(t, payload, out)
}

func TestOpenExistingDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fs.sfs")
	d, err := Format(path, 256, 4)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte{0x7F}, 256)
	require.NoError(t, d.WriteBlocks(1, 1, payload))
	require.NoError(t, d.Close())

	reopened, err := Open(path, 256, 4)
	require.NoError(t, err)
	defer reopened.Close()

	out := make([]byte, 256)
	require.NoError(t, reopened.ReadBlocks(1, 1, out))
	require.Equal(t, payload, out)
}

func TestOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fs.sfs")
	d, err := Format(path, 128, 4)
	require.NoError(t, err)
	defer d.Close()

	buf := make([]byte, 128)
	require.ErrorIs(t, d.ReadBlocks(4, 1, buf), ErrOutOfRange)
	require.ErrorIs(t, d.WriteBlocks(-1, 1, buf), ErrOutOfRange)
	require.ErrorIs(t, d.ReadBlocks(3, 2, buf), ErrOutOfRange)
}

func TestInvalidGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fs.sfs")
	_, err := Format(path, 0, 4)
	require.Error(t, err)
	_, err = Open(path, 128, 0)
	require.Error(t, err)
}
