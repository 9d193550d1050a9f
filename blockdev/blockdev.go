// Package blockdev implements the raw block device collaborator: a
// fixed-geometry, whole-block synchronous I/O surface over a backing file
// or block device. It is intentionally thin — no caching, no partial-block
// transfers, no concurrency control; any buffering lives in the layers
// above it.
package blockdev

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrOutOfRange is returned when a requested block range falls outside the
// device's geometry.
var ErrOutOfRange = errors.New("blockdev: block range out of device bounds")

// Device is a mounted fixed-geometry backing store.
type Device struct {
	f         *os.File
	blockSize int
	nBlocks   int
}

// Format creates and zeroes a backing store of nBlocks blocks of blockSize
// bytes each, then mounts it. If path already exists it is truncated and
// overwritten. If the path resolves to an actual block device rather than
// a regular file, the kernel's partition table cache for it is invalidated
// (see blockdev_unix.go); on a regular file this is a no-op.
func Format(path string, blockSize, nBlocks int) (*Device, error) {
	if blockSize <= 0 || nBlocks <= 0 {
		return nil, fmt.Errorf("blockdev: invalid geometry (blockSize=%d, nBlocks=%d)", blockSize, nBlocks)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: create %s: %w", path, err)
	}

	d := &Device{f: f, blockSize: blockSize, nBlocks: nBlocks}

	zero := make([]byte, blockSize)
	for i := 0; i < nBlocks; i++ {
		if _, err := f.WriteAt(zero, int64(i)*int64(blockSize)); err != nil {
			f.Close()
			return nil, fmt.Errorf("blockdev: zero block %d: %w", i, err)
		}
	}

	reReadPartitionTable(f)

	return d, nil
}

// Open mounts an existing backing store with the given geometry.
func Open(path string, blockSize, nBlocks int) (*Device, error) {
	if blockSize <= 0 || nBlocks <= 0 {
		return nil, fmt.Errorf("blockdev: invalid geometry (blockSize=%d, nBlocks=%d)", blockSize, nBlocks)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}
	return &Device{f: f, blockSize: blockSize, nBlocks: nBlocks}, nil
}

// BlockSize returns the device's fixed block size in bytes.
func (d *Device) BlockSize() int { return d.blockSize }

// NBlocks returns the total number of blocks in the device.
func (d *Device) NBlocks() int { return d.nBlocks }

func (d *Device) checkRange(start, n int) error {
	if start < 0 || n < 0 || start+n > d.nBlocks {
		return ErrOutOfRange
	}
	return nil
}

// ReadBlocks reads n whole blocks starting at block index start into buf.
// buf must be at least n*BlockSize() bytes.
func (d *Device) ReadBlocks(start, n int, buf []byte) error {
	if err := d.checkRange(start, n); err != nil {
		return err
	}
	need := n * d.blockSize
	if len(buf) < need {
		return fmt.Errorf("blockdev: buffer too small for %d blocks (need %d, got %d)", n, need, len(buf))
	}
	_, err := d.f.ReadAt(buf[:need], int64(start)*int64(d.blockSize))
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("blockdev: read %d blocks at %d: %w", n, start, err)
	}
	return nil
}

// WriteBlocks writes n whole blocks starting at block index start from buf.
func (d *Device) WriteBlocks(start, n int, buf []byte) error {
	if err := d.checkRange(start, n); err != nil {
		return err
	}
	need := n * d.blockSize
	if len(buf) < need {
		return fmt.Errorf("blockdev: buffer too small for %d blocks (need %d, got %d)", n, need, len(buf))
	}
	if _, err := d.f.WriteAt(buf[:need], int64(start)*int64(d.blockSize)); err != nil {
		return fmt.Errorf("blockdev: write %d blocks at %d: %w", n, start, err)
	}
	return nil
}

// Close releases the backing store handle.
func (d *Device) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
