package sfs

import "fmt"

// maxFileBlocks is the largest block count an i-node's address tree can
// reach: 12 direct pointers, one indirect block of P pointers, and one
// double-indirect block of P outer entries each pointing to an indirect
// block of P pointers (spec §3.2).
func (fs *Filesystem) maxFileBlocks() int { return fs.sb.maxFileBlocks() }

// readAt fills buf with up to len(buf) bytes of node's data starting at
// offset, clamped to node.Size, and returns the number of bytes copied.
// Grounded on readData (original_source/sfs_inode.c): it never reads past
// the logical end of file and never allocates new blocks.
func (fs *Filesystem) readAt(node *onDiskInode, offset int64, buf []byte) (int, error) {
	want := int64(len(buf))
	if want <= 0 || offset >= node.Size {
		return 0, nil
	}
	if offset+want > node.Size {
		want = node.Size - offset
	}

	bs := int64(fs.sb.blockSize)
	firstBlock := int(offset / bs)
	lastBlock := int((offset + want - 1) / bs)

	outcome, err := fs.materialize(node, firstBlock, lastBlock)
	if err != nil {
		return 0, fmt.Errorf("sfs: read: %w", err)
	}

	blockBuf := make([]byte, fs.sb.blockSize)
	localOff := int(offset % bs)
	remaining := want
	written := int64(0)
	for i, blockID := range outcome.blockIDs {
		if remaining <= 0 {
			break
		}
		if err := fs.dev.ReadBlocks(blockID, 1, blockBuf); err != nil {
			return int(written), fmt.Errorf("sfs: read data block %d: %w", blockID, err)
		}
		n := int64(fs.sb.blockSize - localOff)
		if n > remaining {
			n = remaining
		}
		copy(buf[written:written+n], blockBuf[localOff:localOff+int(n)])
		written += n
		remaining -= n
		localOff = 0
		_ = i
	}
	return int(written), nil
}

// writeAt overwrites node's data starting at offset with data, allocating
// new blocks as needed and growing node.Size when the write extends past
// the current end of file. A write that would cross maxFileBlocks is
// clamped, mirroring overwriteData's max-file-size clamp; it never
// returns an error purely for running out of room; it returns the number
// of bytes actually written (which may be less than len(data), or 0 if
// the file is already at its maximum size or the disk has no free data
// blocks left).
func (fs *Filesystem) writeAt(node *onDiskInode, offset int64, data []byte) (int64, error) {
	size := int64(len(data))
	if size <= 0 {
		return 0, nil
	}

	bs := int64(fs.sb.blockSize)
	maxBytes := int64(fs.maxFileBlocks()) * bs
	lastWriteBlock := int((offset + size - 1) / bs)
	if lastWriteBlock >= fs.maxFileBlocks() {
		size = maxBytes - offset
		lastWriteBlock = fs.maxFileBlocks() - 1
	}
	if size <= 0 {
		return 0, nil
	}

	firstBlock := int(offset / bs)
	outcome, err := fs.materialize(node, firstBlock, lastWriteBlock)
	if err != nil {
		return 0, fmt.Errorf("sfs: write: %w", err)
	}
	if outcome.short {
		// Some of the requested range could not be backed by a data
		// block; shrink the write to what was actually materialized.
		size = int64(len(outcome.blockIDs))*bs - (offset - int64(firstBlock)*bs)
		if size <= 0 {
			return 0, nil
		}
	}

	bytesAdded := (offset + size) - node.Size
	if bytesAdded > 0 {
		node.Size += bytesAdded
	}

	blockBuf := make([]byte, fs.sb.blockSize)
	localOff := int(offset % bs)
	remaining := size
	written := int64(0)
	for i, blockID := range outcome.blockIDs {
		if remaining <= 0 {
			break
		}
		n := int64(fs.sb.blockSize - localOff)
		if n > remaining {
			n = remaining
		}
		// A partial block write over existing data must preserve the
		// untouched bytes in that block.
		if i < outcome.existing && (localOff != 0 || remaining < bs) {
			if err := fs.dev.ReadBlocks(blockID, 1, blockBuf); err != nil {
				return written, fmt.Errorf("sfs: read block %d before partial overwrite: %w", blockID, err)
			}
		}
		copy(blockBuf[localOff:localOff+int(n)], data[written:written+n])
		if err := fs.dev.WriteBlocks(blockID, 1, blockBuf); err != nil {
			return written, fmt.Errorf("sfs: write data block %d: %w", blockID, err)
		}
		written += n
		remaining -= n
		localOff = 0
	}
	return written, nil
}

// freeAllBlocks releases every data block, indirect block, and
// double-indirect block owned by node back to the bitmap, in preparation
// for deleting the i-node itself. Grounded on deleteINode's free loop.
func (fs *Filesystem) freeAllBlocks(node *onDiskInode) error {
	if node.BlocksAllocated == 0 {
		return nil
	}
	p := fs.sb.pointersPerBlock()
	outcome, err := fs.materialize(node, 0, node.BlocksAllocated-1)
	if err != nil {
		return fmt.Errorf("sfs: enumerate blocks for delete: %w", err)
	}
	for _, blockID := range outcome.blockIDs {
		fs.bitmap.freeData(fs.dataBlockBitmapIdx(blockID), fs.logger)
	}
	if node.BlocksAllocated > directPointers {
		fs.bitmap.freeData(fs.dataBlockBitmapIdx(node.Indirect), fs.logger)
	}
	if node.BlocksAllocated > directPointers+p {
		outer, err := fs.readBlockOfInts(node.DoubleIndirect)
		if err != nil {
			return fmt.Errorf("sfs: read double-indirect block for delete: %w", err)
		}
		numIndirects := node.BlocksAllocated - directPointers - p
		numIndirects = (numIndirects + p - 1) / p
		for i := 0; i < numIndirects; i++ {
			fs.bitmap.freeData(fs.dataBlockBitmapIdx(outer[i]), fs.logger)
		}
		fs.bitmap.freeData(fs.dataBlockBitmapIdx(node.DoubleIndirect), fs.logger)
	}
	node.BlocksAllocated = 0
	node.Size = 0
	return flushBitmap(fs.dev, fs.sb, fs.bitmap)
}

// deleteRangeAt deletes size bytes immediately before writeCursor
// (non-inclusive of writeCursor itself), shifting node's logical length
// down by size and freeing any data blocks that fall fully past the new
// end of file. Grounded on deleteData. Returns the number of bytes
// actually deleted (clamped to writeCursor).
func (fs *Filesystem) deleteRangeAt(node *onDiskInode, writeCursor, size int64) (int64, error) {
	if size > writeCursor {
		size = writeCursor
	}
	if size <= 0 {
		return 0, nil
	}
	bs := int64(fs.sb.blockSize)
	saveSize := node.Size - writeCursor

	lastBlock := node.BlocksAllocated - 1
	startWriteBlock := int((writeCursor - size) / bs)

	var saved []byte
	if saveSize > 0 {
		saved = make([]byte, saveSize)
		if _, err := fs.readAt(node, writeCursor, saved); err != nil {
			return 0, fmt.Errorf("sfs: delete range: preserve tail: %w", err)
		}
	}

	newWriteCursor := writeCursor - size
	if saveSize > 0 {
		if _, err := fs.writeAt(node, newWriteCursor, saved); err != nil {
			return 0, fmt.Errorf("sfs: delete range: rewrite tail: %w", err)
		}
	}

	newEndBlock := -1
	if node.Size-size > 0 {
		newEndBlock = int((node.Size - size - 1) / bs)
	}
	node.Size -= size

	p := fs.sb.pointersPerBlock()
	freeFrom := newEndBlock + 1
	if freeFrom <= lastBlock {
		outcome, err := fs.materialize(node, freeFrom, lastBlock)
		// The blocks in [freeFrom, lastBlock] already existed before this
		// call (they are strictly below the old BlocksAllocated), so a
		// short/needNew walk here would indicate corruption; treat an
		// error as fatal rather than silently skipping frees.
		if err != nil {
			return 0, fmt.Errorf("sfs: delete range: enumerate freed blocks: %w", err)
		}
		for _, blockID := range outcome.blockIDs {
			fs.bitmap.freeData(fs.dataBlockBitmapIdx(blockID), fs.logger)
		}
		oldBlocksAllocated := node.BlocksAllocated
		node.BlocksAllocated = freeFrom
		if oldBlocksAllocated > directPointers && node.BlocksAllocated <= directPointers {
			fs.bitmap.freeData(fs.dataBlockBitmapIdx(node.Indirect), fs.logger)
		}
		if oldBlocksAllocated > directPointers+p && node.BlocksAllocated < oldBlocksAllocated {
			lastIndirect := ceilDiv(oldBlocksAllocated-directPointers-p, p) - 1
			curIndirect := ceilDiv(node.BlocksAllocated-directPointers-p, p) - 1
			if lastIndirect > curIndirect {
				outer, err := fs.readBlockOfInts(node.DoubleIndirect)
				if err != nil {
					return 0, fmt.Errorf("sfs: delete range: read double-indirect block: %w", err)
				}
				for i := lastIndirect; i > curIndirect; i-- {
					fs.bitmap.freeData(fs.dataBlockBitmapIdx(outer[i]), fs.logger)
				}
				if node.BlocksAllocated <= directPointers+p {
					fs.bitmap.freeData(fs.dataBlockBitmapIdx(node.DoubleIndirect), fs.logger)
				}
			}
		}
		if err := flushBitmap(fs.dev, fs.sb, fs.bitmap); err != nil {
			return 0, err
		}
	}

	return size, nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
