package sfs

// Lookup resolves name within dirInode, returning its i-node id and
// whether that i-node is itself a directory.
func (fs *Filesystem) Lookup(dirInode int, name string) (id int, isDir bool, err error) {
	if err := fs.checkOpen(); err != nil {
		return 0, false, err
	}
	payload, err := fs.readDirectoryPayload(dirInode)
	if err != nil {
		return 0, false, err
	}
	entry, _, err := lookupEntry(payload, name)
	if err != nil {
		return 0, false, err
	}
	node, err := fs.loadInodeRecordIfNotOpen(entry.InodeID)
	if err != nil {
		return 0, false, err
	}
	return entry.InodeID, node.IsDirectory, nil
}

// Parent returns dirInode's parent i-node id. The root directory's parent
// pointer on disk is -1; callers asking for "the parent of root" get
// ErrRootHasNoParent instead (SPEC_FULL.md Part D).
func (fs *Filesystem) Parent(dirInode int) (int, error) {
	if err := fs.checkOpen(); err != nil {
		return 0, err
	}
	if dirInode == fs.sb.rootInode {
		return 0, ErrRootHasNoParent
	}
	payload, err := fs.readDirectoryPayload(dirInode)
	if err != nil {
		return 0, err
	}
	return payload.ParentInode, nil
}

// CreateFile creates a new, empty file named name inside dirInode.
func (fs *Filesystem) CreateFile(dirInode int, name string) (int, error) {
	if err := fs.checkOpen(); err != nil {
		return 0, err
	}
	return fs.createChild(dirInode, name, false)
}

// CreateDirectory creates a new, empty subdirectory named name inside
// dirInode.
func (fs *Filesystem) CreateDirectory(dirInode int, name string) (int, error) {
	if err := fs.checkOpen(); err != nil {
		return 0, err
	}
	return fs.createChild(dirInode, name, true)
}

// Remove unlinks name from dirInode, recursively deleting its contents
// first if it names a subdirectory.
func (fs *Filesystem) Remove(dirInode int, name string) error {
	if err := fs.checkOpen(); err != nil {
		return err
	}
	return fs.removeChild(dirInode, name)
}

// ChangeDir moves the current working directory to inodeID, which must
// name a directory.
func (fs *Filesystem) ChangeDir(inodeID int) error {
	if err := fs.checkOpen(); err != nil {
		return err
	}
	node, err := fs.loadInodeRecordIfNotOpen(inodeID)
	if err != nil {
		return err
	}
	if !node.IsDirectory {
		return ErrNotADirectory
	}
	fs.cwdInode = inodeID
	return nil
}
