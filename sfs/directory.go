package sfs

import (
	"encoding/binary"
	"fmt"
)

// dirEntry is one directory entry: a name paired with the i-node it
// resolves to.
type dirEntry struct {
	Name    string
	InodeID int
}

// dirEntryRecordSize is the fixed packed size of one directory entry:
// MaxNameLen bytes of zero-padded name plus a 4-byte i-node id.
const dirEntryRecordSize = MaxNameLen + 4

// directoryPayload is the full decoded contents of a directory i-node's
// data: a parent pointer followed by the entry list (spec §3.3). The root
// directory's parent pointer is -1.
type directoryPayload struct {
	ParentInode int
	Entries     []dirEntry
}

func encodeDirEntry(e dirEntry) []byte {
	buf := make([]byte, dirEntryRecordSize)
	copy(buf[:MaxNameLen], e.Name)
	binary.LittleEndian.PutUint32(buf[MaxNameLen:], uint32(int32(e.InodeID)))
	return buf
}

func decodeDirEntry(buf []byte) dirEntry {
	end := 0
	for end < MaxNameLen && buf[end] != 0 {
		end++
	}
	return dirEntry{
		Name:    string(buf[:end]),
		InodeID: int(int32(binary.LittleEndian.Uint32(buf[MaxNameLen:]))),
	}
}

func (p directoryPayload) encode() []byte {
	buf := make([]byte, 4+len(p.Entries)*dirEntryRecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(p.ParentInode)))
	off := 4
	for _, e := range p.Entries {
		copy(buf[off:off+dirEntryRecordSize], encodeDirEntry(e))
		off += dirEntryRecordSize
	}
	return buf
}

func decodeDirectoryPayload(buf []byte) (directoryPayload, error) {
	if len(buf) < 4 {
		return directoryPayload{}, fmt.Errorf("sfs: directory payload too small (%d bytes)", len(buf))
	}
	p := directoryPayload{
		ParentInode: int(int32(binary.LittleEndian.Uint32(buf[0:4]))),
	}
	body := buf[4:]
	if len(body)%dirEntryRecordSize != 0 {
		return directoryPayload{}, fmt.Errorf("sfs: directory payload size %d not a multiple of entry size %d", len(body), dirEntryRecordSize)
	}
	for off := 0; off+dirEntryRecordSize <= len(body); off += dirEntryRecordSize {
		p.Entries = append(p.Entries, decodeDirEntry(body[off:off+dirEntryRecordSize]))
	}
	return p, nil
}

// readDirectoryPayload loads and decodes inodeID's full directory
// contents. inodeID must refer to a directory i-node.
func (fs *Filesystem) readDirectoryPayload(inodeID int) (directoryPayload, error) {
	slot, err := fs.openDescriptor(inodeID)
	if err != nil {
		return directoryPayload{}, err
	}
	e := fs.fdt.slots[slot]
	if !e.node.IsDirectory {
		return directoryPayload{}, ErrNotADirectory
	}
	buf := make([]byte, e.node.Size)
	if _, err := fs.readAt(e.node, 0, buf); err != nil {
		return directoryPayload{}, err
	}
	return decodeDirectoryPayload(buf)
}

// writeDirectoryPayload replaces inodeID's full directory contents with
// payload, shrinking the underlying data blocks first if the new
// contents are smaller than the old ones.
func (fs *Filesystem) writeDirectoryPayload(inodeID int, payload directoryPayload) error {
	slot, err := fs.openDescriptor(inodeID)
	if err != nil {
		return err
	}
	e := fs.fdt.slots[slot]
	newBuf := payload.encode()
	oldSize := e.node.Size

	if int64(len(newBuf)) < oldSize {
		if _, err := fs.deleteRangeAt(e.node, oldSize, oldSize-int64(len(newBuf))); err != nil {
			return fmt.Errorf("sfs: shrink directory: %w", err)
		}
	}
	if len(newBuf) > 0 {
		if _, err := fs.writeAt(e.node, 0, newBuf); err != nil {
			return fmt.Errorf("sfs: rewrite directory: %w", err)
		}
	}
	e.dirty = true
	return fs.flushDescriptor(slot)
}

// lookupEntry returns the named entry and its index within payload, or
// ErrNoSuchEntry.
func lookupEntry(payload directoryPayload, name string) (dirEntry, int, error) {
	for i, e := range payload.Entries {
		if e.Name == name {
			return e, i, nil
		}
	}
	return dirEntry{}, -1, ErrNoSuchEntry
}

// createChild creates a new i-node (file or directory) and links it into
// parentInode under name. Returns the new i-node's id.
func (fs *Filesystem) createChild(parentInode int, name string, isDirectory bool) (int, error) {
	if len(name) == 0 || len(name) > MaxNameLen {
		return 0, ErrNameTooLong
	}
	payload, err := fs.readDirectoryPayload(parentInode)
	if err != nil {
		return 0, err
	}
	if _, _, err := lookupEntry(payload, name); err == nil {
		return 0, ErrNameCollision
	}

	childID, err := fs.createInode(isDirectory)
	if err != nil {
		return 0, err
	}
	if isDirectory {
		if err := fs.writeDirectoryPayload(childID, directoryPayload{ParentInode: parentInode}); err != nil {
			return 0, fmt.Errorf("sfs: initialize subdirectory: %w", err)
		}
	}

	payload.Entries = append(payload.Entries, dirEntry{Name: name, InodeID: childID})
	if err := fs.writeDirectoryPayload(parentInode, payload); err != nil {
		return 0, fmt.Errorf("sfs: link new entry: %w", err)
	}
	return childID, nil
}

// removeChild unlinks name from parentInode. If the target is a
// directory, every descendant is deleted first (recursive tail-delete,
// grounded on _removeDirectoryFile's subdirectory loop); swap-with-tail
// compaction keeps the parent's entry list dense, matching the
// specification's removal contract (§3.3, §4.5).
func (fs *Filesystem) removeChild(parentInode int, name string) error {
	payload, err := fs.readDirectoryPayload(parentInode)
	if err != nil {
		return err
	}
	entry, idx, err := lookupEntry(payload, name)
	if err != nil {
		return err
	}

	childNode, err := fs.loadInodeRecordIfNotOpen(entry.InodeID)
	if err != nil {
		return err
	}
	if childNode.IsDirectory {
		childPayload, err := fs.readDirectoryPayload(entry.InodeID)
		if err != nil {
			return err
		}
		for len(childPayload.Entries) > 0 {
			last := childPayload.Entries[len(childPayload.Entries)-1]
			if err := fs.removeChild(entry.InodeID, last.Name); err != nil {
				return err
			}
			childPayload, err = fs.readDirectoryPayload(entry.InodeID)
			if err != nil {
				return err
			}
		}
		// readDirectoryPayload may have opened entry.InodeID into the FDT
		// cache for the first time, replacing the record pointer fetched
		// above; re-fetch so the decrement below lands on whichever copy
		// is now authoritative.
		childNode, err = fs.loadInodeRecordIfNotOpen(entry.InodeID)
		if err != nil {
			return err
		}
	}

	// link_count is reserved hard-link bookkeeping (SPEC_FULL.md Part E.1):
	// the i-node and its blocks are only torn down once the count reaches
	// zero, matching removeDirectoryFile's link_count--/<= 0 check.
	childNode.LinkCount--
	if childNode.LinkCount <= 0 {
		if slot := fs.fdt.findByInode(entry.InodeID); slot >= 0 {
			if err := fs.closeDescriptor(slot); err != nil {
				return err
			}
		}
		if err := fs.deleteInode(entry.InodeID); err != nil {
			return err
		}
	} else if slot := fs.fdt.findByInode(entry.InodeID); slot >= 0 {
		fs.fdt.slots[slot].dirty = true
	} else if err := fs.saveInodeRecord(entry.InodeID, childNode); err != nil {
		return err
	}

	last := len(payload.Entries) - 1
	payload.Entries[idx] = payload.Entries[last]
	payload.Entries = payload.Entries[:last]
	return fs.writeDirectoryPayload(parentInode, payload)
}

// DirectoryIterator walks a directory's entries in on-disk order,
// matching the specification's next_filename contract. It walks a copy of
// the entry list taken when Iterate was called: entries created or
// removed afterwards are not reflected in the walk.
type DirectoryIterator struct {
	entries []dirEntry
	pos     int
}

// Iterate returns a fresh iterator over inodeID's current directory
// contents.
func (fs *Filesystem) Iterate(inodeID int) (*DirectoryIterator, error) {
	if err := fs.checkOpen(); err != nil {
		return nil, err
	}
	payload, err := fs.readDirectoryPayload(inodeID)
	if err != nil {
		return nil, err
	}
	return &DirectoryIterator{entries: payload.Entries}, nil
}

// Next returns the next entry's name, or ok=false once exhausted.
func (it *DirectoryIterator) Next() (name string, ok bool) {
	if it.pos >= len(it.entries) {
		return "", false
	}
	name = it.entries[it.pos].Name
	it.pos++
	return name, true
}
