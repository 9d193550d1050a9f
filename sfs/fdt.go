package sfs

import "fmt"

// fdtEntry is one live slot in the open-file table: the cached, authoritative
// copy of an i-node record plus its read/write cursors. While a slot is
// live, this cached record — not the on-disk copy — is the source of
// truth; flushDescriptor patches it back to the home block.
type fdtEntry struct {
	inodeID int
	node    *onDiskInode
	read    int64
	write   int64
	dirty   bool
}

// fileDescriptorTable is the open-file table: one live slot per open
// i-node, grown and shrunk in batches of fdtGrowChunk slots at a time
// (grounded on addFDTEntry / closeFDTNode's realloc-by-3 behavior).
type fileDescriptorTable struct {
	slots []*fdtEntry // nil entry == free slot
	live  int
}

func newFileDescriptorTable() *fileDescriptorTable {
	return &fileDescriptorTable{}
}

func (t *fileDescriptorTable) findByInode(inodeID int) int {
	for i, e := range t.slots {
		if e != nil && e.inodeID == inodeID {
			return i
		}
	}
	return -1
}

func (t *fileDescriptorTable) grow() {
	t.slots = append(t.slots, make([]*fdtEntry, fdtGrowChunk)...)
}

// firstFreeSlot returns an existing free slot index, growing the table by
// fdtGrowChunk if none is available.
func (t *fileDescriptorTable) firstFreeSlot() int {
	for i, e := range t.slots {
		if e == nil {
			return i
		}
	}
	before := len(t.slots)
	t.grow()
	return before
}

// shrink releases trailing whole chunks of fdtGrowChunk free slots,
// mirroring closeFDTNode's batched realloc-down.
func (t *fileDescriptorTable) shrink() {
	last := len(t.slots) - 1
	for ; last >= 0; last-- {
		if t.slots[last] != nil {
			break
		}
	}
	freeTrailing := len(t.slots) - 1 - last
	chunks := freeTrailing / fdtGrowChunk
	if chunks <= 0 {
		return
	}
	t.slots = t.slots[:len(t.slots)-chunks*fdtGrowChunk]
}

// openDescriptor loads inodeID's record into the table if it is not
// already resident, and returns its slot index. Grounded on openFDTNode.
func (fs *Filesystem) openDescriptor(inodeID int) (int, error) {
	if idx := fs.fdt.findByInode(inodeID); idx >= 0 {
		return idx, nil
	}
	node, err := fs.loadInodeRecord(inodeID)
	if err != nil {
		return -1, fmt.Errorf("sfs: open i-node %d: %w", inodeID, err)
	}
	idx := fs.fdt.firstFreeSlot()
	fs.fdt.slots[idx] = &fdtEntry{
		inodeID: inodeID,
		node:    node,
		read:    0,
		write:   node.Size,
	}
	fs.fdt.live++
	return idx, nil
}

// descriptor returns the live entry at slot, or ErrInvalidSlot.
func (fs *Filesystem) descriptor(slot int) (*fdtEntry, error) {
	if slot < 0 || slot >= len(fs.fdt.slots) || fs.fdt.slots[slot] == nil {
		return nil, ErrInvalidSlot
	}
	return fs.fdt.slots[slot], nil
}

// flushDescriptor patches slot's cached i-node record back to its home
// block if it has been modified since open.
func (fs *Filesystem) flushDescriptor(slot int) error {
	e, err := fs.descriptor(slot)
	if err != nil {
		return err
	}
	if !e.dirty {
		return nil
	}
	if err := fs.saveInodeRecord(e.inodeID, e.node); err != nil {
		return err
	}
	e.dirty = false
	return nil
}

// closeDescriptor flushes and releases slot. Grounded on closeFDTNode;
// does not touch the disk beyond the flush (closing never implies
// deletion).
func (fs *Filesystem) closeDescriptor(slot int) error {
	if _, err := fs.descriptor(slot); err != nil {
		return err
	}
	if err := fs.flushDescriptor(slot); err != nil {
		return err
	}
	fs.fdt.slots[slot] = nil
	fs.fdt.live--
	fs.fdt.shrink()
	return nil
}
