package sfs

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// inodeRecordSize is the fixed, packed size in bytes of an on-disk i-node
// record: isDirectory(1) + fileID(4) + linkCount(4) + uid(4) + gid(4) +
// size(8) + blocksAllocated(4) + direct[12](48) + indirect(4) +
// doubleIndirect(4) = 85 bytes.
const inodeRecordSize = 1 + 4 + 4 + 4 + 4 + 8 + 4 + 4*directPointers + 4 + 4

// onDiskInode is the fixed i-node record (spec §3). Block-id fields are
// meaningful only once blocksAllocated crosses the corresponding
// threshold; until then their value is whatever was last written.
type onDiskInode struct {
	IsDirectory     bool
	FileID          int
	LinkCount       int
	UID             int
	GID             int
	Size            int64
	BlocksAllocated int
	Direct          [directPointers]int
	Indirect        int
	DoubleIndirect  int
}

func (n *onDiskInode) encode() []byte {
	buf := make([]byte, inodeRecordSize)
	off := 0
	if n.IsDirectory {
		buf[off] = 1
	}
	off++
	putI32 := func(v int) {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(v)))
		off += 4
	}
	putI32(n.FileID)
	putI32(n.LinkCount)
	putI32(n.UID)
	putI32(n.GID)
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(n.Size))
	off += 8
	putI32(n.BlocksAllocated)
	for _, d := range n.Direct {
		putI32(d)
	}
	putI32(n.Indirect)
	putI32(n.DoubleIndirect)
	return buf
}

func decodeInode(buf []byte) (*onDiskInode, error) {
	if len(buf) < inodeRecordSize {
		return nil, fmt.Errorf("sfs: i-node buffer too small (%d bytes)", len(buf))
	}
	n := &onDiskInode{}
	off := 0
	n.IsDirectory = buf[off] != 0
	off++
	getI32 := func() int {
		v := int(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
		off += 4
		return v
	}
	n.FileID = getI32()
	n.LinkCount = getI32()
	n.UID = getI32()
	n.GID = getI32()
	n.Size = int64(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	n.BlocksAllocated = getI32()
	for i := range n.Direct {
		n.Direct[i] = getI32()
	}
	n.Indirect = getI32()
	n.DoubleIndirect = getI32()
	return n, nil
}

// locKind classifies which level of the block-address tree a file-relative
// block index falls into.
type locKind int

const (
	locDirect locKind = iota
	locIndirect
	locDoubleIndirect
)

// blockLoc is the pure index-arithmetic classification of a file-relative
// block index, replacing the original's nested pointer-chasing with a
// small tagged value (Design notes §9).
type blockLoc struct {
	kind  locKind
	slot  int // direct: index into Direct[]; indirect: slot in the indirect block
	outer int // double-indirect: slot in the double-indirect (outer) block
	inner int // double-indirect: slot in the inner indirect block
}

func locate(b, pointersPerBlock int) blockLoc {
	if b < directPointers {
		return blockLoc{kind: locDirect, slot: b}
	}
	if b < directPointers+pointersPerBlock {
		return blockLoc{kind: locIndirect, slot: b - directPointers}
	}
	rel := b - directPointers - pointersPerBlock
	return blockLoc{kind: locDoubleIndirect, outer: rel / pointersPerBlock, inner: rel % pointersPerBlock}
}

// dataBlockGlobalID converts a bitmap-relative data index into a global
// block id.
func (fs *Filesystem) dataBlockGlobalID(bitmapIdx int) int {
	return bitmapIdx + 1 + fs.sb.inodeBlocks
}

func (fs *Filesystem) dataBlockBitmapIdx(globalID int) int {
	return globalID - 1 - fs.sb.inodeBlocks
}

func (fs *Filesystem) readBlockOfInts(blockID int) ([]int, error) {
	p := fs.sb.pointersPerBlock()
	raw := make([]byte, fs.sb.blockSize)
	if err := fs.dev.ReadBlocks(blockID, 1, raw); err != nil {
		return nil, fmt.Errorf("sfs: read pointer block %d: %w", blockID, err)
	}
	out := make([]int, p)
	for i := 0; i < p; i++ {
		out[i] = int(int32(binary.LittleEndian.Uint32(raw[i*4 : i*4+4])))
	}
	return out, nil
}

func (fs *Filesystem) writeBlockOfInts(blockID int, vals []int) error {
	raw := make([]byte, fs.sb.blockSize)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(raw[i*4:i*4+4], uint32(int32(v)))
	}
	if err := fs.dev.WriteBlocks(blockID, 1, raw); err != nil {
		return fmt.Errorf("sfs: write pointer block %d: %w", blockID, err)
	}
	return nil
}

// materializeOutcome reports the result of materializing a block range.
type materializeOutcome struct {
	// blockIDs holds the global block id for each file-relative block
	// successfully mapped, in range order.
	blockIDs []int
	// existing is the count of blocks, counted from the start of
	// blockIDs, that already existed before this call.
	existing int
	// short is true when the disk ran out of data blocks before the
	// full requested range could be mapped; blockIDs is then shorter
	// than requested, and the i-node's BlocksAllocated has been
	// advanced to cover exactly what was produced (partial growth is
	// persisted, per §4.4).
	short bool
}

// materialize is the central routine: given a contiguous file-relative
// block range [first, last], produce the corresponding global block ids,
// allocating new blocks as necessary. It loads the indirect and
// double-indirect metadata blocks at most once each per call, coalescing
// writes to the end of the call (§4.4).
func (fs *Filesystem) materialize(node *onDiskInode, first, last int) (materializeOutcome, error) {
	p := fs.sb.pointersPerBlock()
	count := last - first + 1
	ids := make([]int, 0, count)

	var indirectBuf []int
	indirectLoaded, indirectDirty := false, false

	var outerBuf []int
	outerLoaded, outerDirty := false, false

	var innerBuf []int
	innerLoaded, innerDirty := false, false
	activeOuter := -1

	existing := count
	createdAny := false
	short := false

	loadIndirect := func(create bool) error {
		if indirectLoaded {
			return nil
		}
		if create {
			bit, ok := fs.bitmap.allocateData()
			if !ok {
				return ErrDiskFullData
			}
			node.Indirect = fs.dataBlockGlobalID(bit)
			indirectBuf = make([]int, p)
		} else {
			buf, err := fs.readBlockOfInts(node.Indirect)
			if err != nil {
				return err
			}
			indirectBuf = buf
		}
		indirectLoaded = true
		return nil
	}

	loadOuter := func(create bool) error {
		if outerLoaded {
			return nil
		}
		if create {
			bit, ok := fs.bitmap.allocateData()
			if !ok {
				return ErrDiskFullData
			}
			node.DoubleIndirect = fs.dataBlockGlobalID(bit)
			outerBuf = make([]int, p)
		} else {
			buf, err := fs.readBlockOfInts(node.DoubleIndirect)
			if err != nil {
				return err
			}
			outerBuf = buf
		}
		outerLoaded = true
		return nil
	}

	switchInner := func(outerIdx int, create bool) error {
		if innerLoaded && activeOuter == outerIdx {
			return nil
		}
		if innerLoaded && innerDirty {
			if err := fs.writeBlockOfInts(outerBuf[activeOuter], innerBuf); err != nil {
				return err
			}
		}
		if create {
			bit, ok := fs.bitmap.allocateData()
			if !ok {
				return ErrDiskFullData
			}
			outerBuf[outerIdx] = fs.dataBlockGlobalID(bit)
			outerDirty = true
			innerBuf = make([]int, p)
		} else {
			buf, err := fs.readBlockOfInts(outerBuf[outerIdx])
			if err != nil {
				return err
			}
			innerBuf = buf
		}
		innerLoaded = true
		innerDirty = false
		activeOuter = outerIdx
		return nil
	}

	var stopErr error

	cur := first
	for i := 0; i < count; i, cur = i+1, cur+1 {
		loc := locate(cur, p)
		needNew := cur >= node.BlocksAllocated

		if needNew && !createdAny {
			existing = i
			createdAny = true
		}

		var globalID int
		if needNew {
			bit, ok := fs.bitmap.allocateData()
			if !ok {
				short = true
				break
			}
			globalID = fs.dataBlockGlobalID(bit)

			switch loc.kind {
			case locDirect:
				node.Direct[loc.slot] = globalID
			case locIndirect:
				if err := loadIndirect(cur == directPointers); err != nil {
					fs.bitmap.freeData(bit, nil)
					stopErr = err
				} else {
					indirectBuf[loc.slot] = globalID
					indirectDirty = true
				}
			case locDoubleIndirect:
				if err := loadOuter(loc.outer == 0); err != nil {
					fs.bitmap.freeData(bit, nil)
					stopErr = err
				} else if err := switchInner(loc.outer, loc.inner == 0); err != nil {
					fs.bitmap.freeData(bit, nil)
					stopErr = err
				} else {
					innerBuf[loc.inner] = globalID
					innerDirty = true
				}
			}
		} else {
			switch loc.kind {
			case locDirect:
				globalID = node.Direct[loc.slot]
			case locIndirect:
				if err := loadIndirect(false); err != nil {
					stopErr = err
				} else {
					globalID = indirectBuf[loc.slot]
				}
			case locDoubleIndirect:
				if err := loadOuter(false); err != nil {
					stopErr = err
				} else if err := switchInner(loc.outer, false); err != nil {
					stopErr = err
				} else {
					globalID = innerBuf[loc.inner]
				}
			}
		}

		if stopErr != nil {
			break
		}

		ids = append(ids, globalID)
	}

	// A metadata-block allocation can fail mid-walk for two different
	// reasons: the data bitmap is exhausted (graceful partial growth, same
	// as running out of blocks directly) or the read of an existing
	// pointer block failed (a real I/O error, not modeled as partial
	// growth).
	if stopErr != nil && !errors.Is(stopErr, ErrDiskFullData) {
		return materializeOutcome{}, stopErr
	}
	if stopErr != nil {
		short = true
	}

	if createdAny {
		if indirectLoaded && indirectDirty {
			if err := fs.writeBlockOfInts(node.Indirect, indirectBuf); err != nil {
				return materializeOutcome{}, err
			}
		}
		if innerLoaded && innerDirty {
			if err := fs.writeBlockOfInts(outerBuf[activeOuter], innerBuf); err != nil {
				return materializeOutcome{}, err
			}
		}
		if outerLoaded && outerDirty {
			if err := fs.writeBlockOfInts(node.DoubleIndirect, outerBuf); err != nil {
				return materializeOutcome{}, err
			}
		}
		if err := flushBitmap(fs.dev, fs.sb, fs.bitmap); err != nil {
			return materializeOutcome{}, err
		}
		node.BlocksAllocated = first + len(ids)
	}

	return materializeOutcome{blockIDs: ids, existing: existing, short: short}, nil
}
