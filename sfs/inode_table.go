package sfs

import "fmt"

// inodeBlockLocation returns the i-node table block and in-block slot for
// a table-relative i-node index.
func (fs *Filesystem) inodeBlockLocation(id int) (block, slot int) {
	perBlock := fs.sb.inodesPerBlock()
	return 1 + id/perBlock, id % perBlock
}

// loadInodeRecord reads a single i-node record from its home block.
func (fs *Filesystem) loadInodeRecord(id int) (*onDiskInode, error) {
	block, slot := fs.inodeBlockLocation(id)
	buf := make([]byte, fs.sb.blockSize)
	if err := fs.dev.ReadBlocks(block, 1, buf); err != nil {
		return nil, fmt.Errorf("sfs: read i-node block %d: %w", block, err)
	}
	rec := buf[slot*inodeRecordSize : (slot+1)*inodeRecordSize]
	return decodeInode(rec)
}

// saveInodeRecord patches id's record back into its home block, leaving
// every other record in that block untouched. Grounded on saveFDTNode.
func (fs *Filesystem) saveInodeRecord(id int, node *onDiskInode) error {
	block, slot := fs.inodeBlockLocation(id)
	buf := make([]byte, fs.sb.blockSize)
	if err := fs.dev.ReadBlocks(block, 1, buf); err != nil {
		return fmt.Errorf("sfs: read i-node block %d: %w", block, err)
	}
	copy(buf[slot*inodeRecordSize:(slot+1)*inodeRecordSize], node.encode())
	if err := fs.dev.WriteBlocks(block, 1, buf); err != nil {
		return fmt.Errorf("sfs: write i-node block %d: %w", block, err)
	}
	return nil
}

// createInode allocates a fresh i-node slot and persists a zeroed record
// for it, assigning the next monotonic file id. Grounded on createINode.
func (fs *Filesystem) createInode(isDirectory bool) (int, error) {
	bit, ok := fs.bitmap.allocateInode()
	if !ok {
		return 0, ErrDiskFullInodes
	}
	if err := flushBitmap(fs.dev, fs.sb, fs.bitmap); err != nil {
		fs.bitmap.freeInode(bit, fs.logger)
		return 0, err
	}

	node := &onDiskInode{
		IsDirectory: isDirectory,
		FileID:      fs.sb.nextFileID,
		LinkCount:   1,
	}
	fs.sb.nextFileID++

	if err := fs.saveInodeRecord(bit, node); err != nil {
		fs.bitmap.freeInode(bit, fs.logger)
		flushBitmap(fs.dev, fs.sb, fs.bitmap)
		return 0, fmt.Errorf("sfs: persist new i-node: %w", err)
	}
	if err := saveSuperblock(fs.dev, fs.sb); err != nil {
		return 0, fmt.Errorf("sfs: persist next file id: %w", err)
	}
	return bit, nil
}

// deleteInode frees every data block owned by id's i-node, then frees the
// i-node slot itself. Grounded on deleteINode.
func (fs *Filesystem) deleteInode(id int) error {
	node, err := fs.loadInodeRecord(id)
	if err != nil {
		return err
	}
	if err := fs.freeAllBlocks(node); err != nil {
		return err
	}
	fs.bitmap.freeInode(id, fs.logger)
	if err := flushBitmap(fs.dev, fs.sb, fs.bitmap); err != nil {
		return err
	}
	return nil
}
