package sfs

import (
	"fmt"

	"github.com/Yaters/Simple-File-System/blockdev"
	"github.com/sirupsen/logrus"
)

// bitmap is the free-space bitmap: two logical bit arrays — i-node slots,
// then data blocks — each rounded up to a whole number of bytes
// independently (so the data section always starts on a byte boundary,
// never mid-byte), concatenated into the single terminal disk block.
//
// A bit set to 1 means free. Scanning is first-fit, left to right,
// MSB-first within a byte: this exact order is part of the specification's
// contract (§4.3) so that allocation is reproducible across an
// implementation.
type bitmap struct {
	bits          []byte
	inodeByteLen  int
	inodeBitCount int
	dataBitCount  int
}

func byteLen(nbits int) int { return (nbits + 7) / 8 }

// newBitmap creates a freshly-formatted bitmap: every valid bit free (1),
// every padding bit held at 0 so a naive scan cannot return an
// out-of-range index.
func newBitmap(inodeBitCount, dataBitCount int) *bitmap {
	inodeByteLen := byteLen(inodeBitCount)
	dataByteLen := byteLen(dataBitCount)
	bm := &bitmap{
		bits:          make([]byte, inodeByteLen+dataByteLen),
		inodeByteLen:  inodeByteLen,
		inodeBitCount: inodeBitCount,
		dataBitCount:  dataBitCount,
	}
	for i := range bm.bits {
		bm.bits[i] = 0xFF
	}
	clearPadding(bm.bits[:inodeByteLen], inodeBitCount)
	clearPadding(bm.bits[inodeByteLen:], dataBitCount)
	return bm
}

// clearPadding forces the bits past bitCount in section's last byte to 0.
func clearPadding(section []byte, bitCount int) {
	if len(section) == 0 {
		return
	}
	extra := bitCount % 8
	if extra == 0 {
		return
	}
	mask := byte(0xFF) << uint(8-extra)
	section[len(section)-1] &= mask
}

func loadBitmapFromBytes(buf []byte, inodeBitCount, dataBitCount int) *bitmap {
	inodeByteLen := byteLen(inodeBitCount)
	dataByteLen := byteLen(dataBitCount)
	total := inodeByteLen + dataByteLen
	bits := make([]byte, total)
	copy(bits, buf[:total])
	return &bitmap{
		bits:          bits,
		inodeByteLen:  inodeByteLen,
		inodeBitCount: inodeBitCount,
		dataBitCount:  dataBitCount,
	}
}

// toBytes returns the packed on-disk representation.
func (bm *bitmap) toBytes() []byte {
	out := make([]byte, len(bm.bits))
	copy(out, bm.bits)
	return out
}

func bitMask(bitInByte int) byte { return byte(0x80) >> uint(bitInByte) }

func isSet(section []byte, idx int) bool {
	byteIdx, bitIdx := idx/8, idx%8
	return section[byteIdx]&bitMask(bitIdx) != 0
}

func setBit(section []byte, idx int, value bool) {
	byteIdx, bitIdx := idx/8, idx%8
	if value {
		section[byteIdx] |= bitMask(bitIdx)
	} else {
		section[byteIdx] &^= bitMask(bitIdx)
	}
}

// firstFree scans section left to right, MSB-first within each byte, for
// the first set (free) bit, and returns its index or -1.
func firstFree(section []byte, bitCount int) int {
	for i, b := range section {
		if b == 0 {
			continue
		}
		for j := 0; j < 8; j++ {
			if b&bitMask(j) != 0 {
				idx := i*8 + j
				if idx >= bitCount {
					return -1
				}
				return idx
			}
		}
	}
	return -1
}

func popcountValid(section []byte, bitCount int) int {
	count := 0
	for i := 0; i < bitCount; i++ {
		if isSet(section, i) {
			count++
		}
	}
	return count
}

func (bm *bitmap) inodeSection() []byte { return bm.bits[:bm.inodeByteLen] }
func (bm *bitmap) dataSection() []byte  { return bm.bits[bm.inodeByteLen:] }

// allocateInode returns the table-relative index of a freshly-claimed
// i-node slot, or false if none remain.
func (bm *bitmap) allocateInode() (int, bool) {
	idx := firstFree(bm.inodeSection(), bm.inodeBitCount)
	if idx < 0 {
		return 0, false
	}
	setBit(bm.inodeSection(), idx, false)
	return idx, true
}

// allocateData returns the bitmap-relative index of a freshly-claimed data
// block, or false if none remain. Translating to a global block id is the
// caller's job (it needs inodeBlocks, which the bitmap does not track).
func (bm *bitmap) allocateData() (int, bool) {
	idx := firstFree(bm.dataSection(), bm.dataBitCount)
	if idx < 0 {
		return 0, false
	}
	setBit(bm.dataSection(), idx, false)
	return idx, true
}

// freeInode marks a table-relative i-node index free again. Out-of-range
// indices are logged, not fatal, per §4.3/§7.
func (bm *bitmap) freeInode(idx int, logger logrus.FieldLogger) {
	if idx < 0 || idx >= bm.inodeBitCount {
		newLogger(logger).WithField("inode_index", idx).Warn("sfs: freeing i-node out of bitmap range")
		return
	}
	setBit(bm.inodeSection(), idx, true)
}

// freeData marks a bitmap-relative data index free again.
func (bm *bitmap) freeData(idx int, logger logrus.FieldLogger) {
	if idx < 0 || idx >= bm.dataBitCount {
		newLogger(logger).WithField("data_index", idx).Warn("sfs: freeing data block out of bitmap range")
		return
	}
	setBit(bm.dataSection(), idx, true)
}

func (bm *bitmap) countAllocatedInodes() int {
	return bm.inodeBitCount - popcountValid(bm.inodeSection(), bm.inodeBitCount)
}

func (bm *bitmap) countAllocatedData() int {
	return bm.dataBitCount - popcountValid(bm.dataSection(), bm.dataBitCount)
}

// flushBitmap rewrites the terminal block with the bitmap's current
// contents, zero-padded to the block size.
func flushBitmap(dev *blockdev.Device, sb *superblock, bm *bitmap) error {
	buf := make([]byte, sb.blockSize)
	raw := bm.toBytes()
	if len(raw) > len(buf) {
		return fmt.Errorf("sfs: bitmap (%d bytes) does not fit in one block (%d bytes)", len(raw), len(buf))
	}
	copy(buf, raw)
	return dev.WriteBlocks(sb.fsBlocks-1, 1, buf)
}

func loadBitmap(dev *blockdev.Device, sb *superblock) (*bitmap, error) {
	buf := make([]byte, sb.blockSize)
	if err := dev.ReadBlocks(sb.fsBlocks-1, 1, buf); err != nil {
		return nil, fmt.Errorf("sfs: read bitmap block: %w", err)
	}
	return loadBitmapFromBytes(buf, sb.inodeBitCount(), sb.dataBlockCount()), nil
}
