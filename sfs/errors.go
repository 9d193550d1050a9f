package sfs

import "errors"

// Sentinel errors for the error kinds in the specification's error-handling
// design (§7). sfs always returns a Go error, and the api package passes
// these values through to its callers unchanged.
var (
	// ErrNameTooLong is returned when a name exceeds MaxNameLen.
	ErrNameTooLong = errors.New("sfs: name exceeds maximum length")
	// ErrNameCollision is returned when a directory entry with the given
	// name already exists.
	ErrNameCollision = errors.New("sfs: name already exists in directory")
	// ErrNotADirectory is returned when an operation requiring a
	// directory i-node is given a file i-node.
	ErrNotADirectory = errors.New("sfs: i-node is not a directory")
	// ErrNotAFile is returned when an operation requiring a file i-node
	// is given a directory i-node.
	ErrNotAFile = errors.New("sfs: i-node is a directory, not a file")
	// ErrNoSuchEntry is returned when a directory has no entry with the
	// requested name.
	ErrNoSuchEntry = errors.New("sfs: no such directory entry")
	// ErrInvalidSlot is returned when an FDT slot index is out of range
	// or does not refer to a live slot.
	ErrInvalidSlot = errors.New("sfs: invalid or closed descriptor")
	// ErrOutOfRangeSeek is returned when a seek target is not within
	// [0, size).
	ErrOutOfRangeSeek = errors.New("sfs: seek position out of range")
	// ErrDiskFullInodes is returned when the i-node bitmap has no free
	// bit left.
	ErrDiskFullInodes = errors.New("sfs: no free i-node slots")
	// ErrDiskFullData signals, inside block-range materialization, that
	// the data bitmap has no free bit left. It is not returned by the
	// exported operations: a write that runs out of data blocks reports
	// a short byte count instead.
	ErrDiskFullData = errors.New("sfs: no free data blocks")
	// ErrUnsupportedMagic is a fatal mount error: the backing store's
	// superblock does not carry this filesystem's magic number.
	ErrUnsupportedMagic = errors.New("sfs: unsupported or missing file system magic number")
	// ErrRootHasNoParent is returned when the caller attempts to load
	// the parent of the root directory.
	ErrRootHasNoParent = errors.New("sfs: root directory has no parent")
	// ErrFilesystemClosed is returned by any call made after Close.
	ErrFilesystemClosed = errors.New("sfs: file system is not mounted")
)
