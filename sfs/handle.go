package sfs

// FileHandle identifies a live open-file-table slot. It is a small
// integer, not a pointer, so it can be stored and compared freely by
// callers the way the original system's file descriptor indices were.
type FileHandle int

// OpenFile opens inodeID for reading and writing, returning a handle.
// Re-opening an already-open i-node returns the same handle and does not
// reset its cursors (matching openFDTNode's dedup-by-inode behavior).
func (fs *Filesystem) OpenFile(inodeID int) (FileHandle, error) {
	if err := fs.checkOpen(); err != nil {
		return -1, err
	}
	node, err := fs.loadInodeRecordIfNotOpen(inodeID)
	if err != nil {
		return -1, err
	}
	if node.IsDirectory {
		return -1, ErrNotAFile
	}
	slot, err := fs.openDescriptor(inodeID)
	if err != nil {
		return -1, err
	}
	return FileHandle(slot), nil
}

// loadInodeRecordIfNotOpen fetches inodeID's current record, preferring
// the live FDT cache over a fresh disk read so a not-a-file check sees
// in-flight changes.
func (fs *Filesystem) loadInodeRecordIfNotOpen(inodeID int) (*onDiskInode, error) {
	if slot := fs.fdt.findByInode(inodeID); slot >= 0 {
		return fs.fdt.slots[slot].node, nil
	}
	return fs.loadInodeRecord(inodeID)
}

// CloseFile flushes and releases h.
func (fs *Filesystem) CloseFile(h FileHandle) error {
	if err := fs.checkOpen(); err != nil {
		return err
	}
	return fs.closeDescriptor(int(h))
}

// Read copies up to len(buf) bytes starting at h's read cursor, advances
// the cursor by the amount read, and couples the write cursor to match
// (so a subsequent write continues from where this read left off, per
// the specification's cursor-coupling contract).
func (fs *Filesystem) Read(h FileHandle, buf []byte) (int, error) {
	if err := fs.checkOpen(); err != nil {
		return 0, err
	}
	e, err := fs.descriptor(int(h))
	if err != nil {
		return 0, err
	}
	n, err := fs.readAt(e.node, e.read, buf)
	if err != nil {
		return 0, err
	}
	e.read += int64(n)
	e.write = e.read
	return n, nil
}

// Write overwrites data starting at h's write cursor, advances the
// cursor by the amount written, and couples the read cursor to match.
func (fs *Filesystem) Write(h FileHandle, data []byte) (int64, error) {
	if err := fs.checkOpen(); err != nil {
		return 0, err
	}
	e, err := fs.descriptor(int(h))
	if err != nil {
		return 0, err
	}
	n, err := fs.writeAt(e.node, e.write, data)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.dirty = true
	}
	e.write += n
	e.read = e.write
	if err := fs.flushDescriptor(int(h)); err != nil {
		return n, err
	}
	return n, nil
}

// Seek repositions both of h's cursors to pos. Per the specification,
// pos must lie strictly within [0, size): seeking to exactly size (which
// a naive reading of "seek to end" might expect to allow) is rejected,
// matching the original system's behavior rather than papering over it
// (SPEC_FULL.md Part E.4).
func (fs *Filesystem) Seek(h FileHandle, pos int64) error {
	if err := fs.checkOpen(); err != nil {
		return err
	}
	e, err := fs.descriptor(int(h))
	if err != nil {
		return err
	}
	if pos < 0 || pos >= e.node.Size {
		return ErrOutOfRangeSeek
	}
	e.read = pos
	e.write = pos
	return nil
}

// DeleteRange deletes n bytes immediately before h's write cursor
// (non-inclusive of the cursor itself), shrinking the file and moving
// the write cursor back by the amount actually deleted. The read cursor
// follows the three-branch rule: if it lay inside the deleted range, it
// clamps to the new write cursor; if it lay past the range, it shifts
// back by the amount deleted; otherwise it is left untouched.
func (fs *Filesystem) DeleteRange(h FileHandle, n int64) (int64, error) {
	if err := fs.checkOpen(); err != nil {
		return 0, err
	}
	e, err := fs.descriptor(int(h))
	if err != nil {
		return 0, err
	}
	oldWrite := e.write
	deleted, err := fs.deleteRangeAt(e.node, e.write, n)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		e.dirty = true
		newWrite := oldWrite - deleted
		switch {
		case e.read >= newWrite && e.read < oldWrite:
			e.read = newWrite
		case e.read >= oldWrite:
			e.read -= deleted
		}
		e.write = newWrite
		if err := fs.flushDescriptor(int(h)); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// Size returns the current logical size of h's i-node.
func (fs *Filesystem) Size(h FileHandle) (int64, error) {
	if err := fs.checkOpen(); err != nil {
		return 0, err
	}
	e, err := fs.descriptor(int(h))
	if err != nil {
		return 0, err
	}
	return e.node.Size, nil
}
