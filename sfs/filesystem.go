package sfs

import (
	"fmt"
	"os"

	"github.com/Yaters/Simple-File-System/blockdev"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Filesystem is the mounted, in-memory aggregate that the rest of the
// package operates on: the backing block device, the superblock, the
// free-space bitmap, the open-file table, and the i-node id of the
// current working directory. No directory entries are cached here; the
// directory layer reads a directory's payload from its i-node on each
// call. There is one Filesystem per mounted disk image;
// it is not safe for concurrent use from multiple goroutines without
// external synchronization, matching the specification's single-caller
// model (§5).
type Filesystem struct {
	dev    *blockdev.Device
	sb     *superblock
	bitmap *bitmap

	fdt *fileDescriptorTable

	cwdInode int

	logger     logrus.FieldLogger
	instanceID uuid.UUID

	closed bool
}

// InstanceID uniquely identifies this particular mount for correlating
// log lines across a session; it is not persisted, since the
// specification's superblock layout has no field to hold it (SPEC_FULL.md
// Part C).
func (fs *Filesystem) InstanceID() uuid.UUID { return fs.instanceID }

// Format lays out a brand-new file system on path: a zeroed superblock,
// an empty i-node table, a fully-free bitmap, and a root directory.
// geom.BlockSize must be large enough to hold one bitmap block and at
// least one i-node record.
func Format(path string, geom Geometry, logger logrus.FieldLogger) (*Filesystem, error) {
	if geom.BlockSize <= 0 || geom.FSBlocks <= 0 || geom.InodeBlocks <= 0 {
		return nil, fmt.Errorf("sfs: invalid geometry %+v", geom)
	}
	if geom.InodeBlocks+2 >= geom.FSBlocks {
		return nil, fmt.Errorf("sfs: geometry %+v leaves no room for data blocks", geom)
	}

	dev, err := blockdev.Format(path, geom.BlockSize, geom.FSBlocks)
	if err != nil {
		return nil, fmt.Errorf("sfs: format backing store: %w", err)
	}

	sb := newSuperblock(geom)
	bm := newBitmap(sb.inodeBitCount(), sb.dataBlockCount())

	fs := &Filesystem{
		dev:        dev,
		sb:         sb,
		bitmap:     bm,
		logger:     newLogger(logger),
		instanceID: uuid.New(),
	}
	fs.fdt = newFileDescriptorTable()

	rootID, err := fs.createInode(true)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("sfs: create root i-node: %w", err)
	}
	sb.rootInode = rootID
	fs.cwdInode = rootID

	if err := fs.writeDirectoryPayload(rootID, directoryPayload{ParentInode: -1}); err != nil {
		dev.Close()
		return nil, fmt.Errorf("sfs: initialize root directory: %w", err)
	}

	if err := saveSuperblock(dev, sb); err != nil {
		dev.Close()
		return nil, fmt.Errorf("sfs: write superblock: %w", err)
	}
	if err := flushBitmap(dev, sb, bm); err != nil {
		dev.Close()
		return nil, fmt.Errorf("sfs: write bitmap: %w", err)
	}

	fs.logger.WithFields(logrus.Fields{
		"path":        path,
		"instance_id": fs.instanceID,
		"block_size":  geom.BlockSize,
		"fs_blocks":   geom.FSBlocks,
	}).Info("sfs: formatted file system")

	return fs, nil
}

// Mount opens an existing file system image, validating its superblock
// magic number and loading the free-space bitmap into memory.
func Mount(path string, logger logrus.FieldLogger) (*Filesystem, error) {
	// Geometry is recorded in the superblock itself; we only need the
	// block size up front to know how large a read to issue for block 0,
	// and that is unknowable before reading it. The device is first opened
	// with the provisional block size minProbeBlockSize, just large enough
	// for the superblock record, and reopened with the recorded geometry
	// once the superblock has been parsed.
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sfs: stat backing store: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("sfs: backing store %q is empty", path)
	}

	probe, err := blockdev.Open(path, minProbeBlockSize, int(info.Size())/minProbeBlockSize)
	if err != nil {
		return nil, fmt.Errorf("sfs: open backing store: %w", err)
	}
	sb, err := loadSuperblock(probe, minProbeBlockSize)
	probe.Close()
	if err != nil {
		return nil, fmt.Errorf("sfs: load superblock: %w", err)
	}

	dev, err := blockdev.Open(path, sb.blockSize, sb.fsBlocks)
	if err != nil {
		return nil, fmt.Errorf("sfs: reopen backing store: %w", err)
	}

	bm, err := loadBitmap(dev, sb)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("sfs: load bitmap: %w", err)
	}

	fs := &Filesystem{
		dev:        dev,
		sb:         sb,
		bitmap:     bm,
		logger:     newLogger(logger),
		instanceID: uuid.New(),
		cwdInode:   sb.rootInode,
	}
	fs.fdt = newFileDescriptorTable()

	fs.logger.WithFields(logrus.Fields{
		"path":        path,
		"instance_id": fs.instanceID,
		"root_inode":  sb.rootInode,
	}).Info("sfs: mounted file system")

	return fs, nil
}

// minProbeBlockSize is used only for the initial superblock read during
// Mount, before the real block size recorded on disk is known.
const minProbeBlockSize = superblockRecordSize

// Close flushes the bitmap and superblock and releases the backing
// device. Calling any other method that has an error result after Close
// returns ErrFilesystemClosed.
func (fs *Filesystem) Close() error {
	if fs.closed {
		return nil
	}
	for slot, e := range fs.fdt.slots {
		if e == nil {
			continue
		}
		if err := fs.flushDescriptor(slot); err != nil {
			return err
		}
	}
	if err := flushBitmap(fs.dev, fs.sb, fs.bitmap); err != nil {
		return err
	}
	if err := saveSuperblock(fs.dev, fs.sb); err != nil {
		return err
	}
	fs.closed = true
	fs.logger.WithField("instance_id", fs.instanceID).Info("sfs: unmounted file system")
	return fs.dev.Close()
}

func (fs *Filesystem) checkOpen() error {
	if fs.closed {
		return ErrFilesystemClosed
	}
	return nil
}

// RootInode returns the i-node id of the file system's root directory.
func (fs *Filesystem) RootInode() int { return fs.sb.rootInode }

// CurrentDirInode returns the i-node id of the current working directory.
func (fs *Filesystem) CurrentDirInode() int { return fs.cwdInode }
