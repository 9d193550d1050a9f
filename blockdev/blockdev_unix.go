//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package blockdev

import (
	"os"

	"golang.org/x/sys/unix"
)

const blkrrpart = 0x125f

// reReadPartitionTable asks the kernel to re-read the partition table of f
// if, and only if, f is backed by an actual block device rather than a
// regular file. Errors are intentionally swallowed: this is best-effort
// bookkeeping for the rare case where fs.sfs lives directly on a device
// node, not a condition the format operation should fail over.
func reReadPartitionTable(f *os.File) {
	info, err := f.Stat()
	if err != nil || info.Mode()&os.ModeDevice == 0 {
		return
	}
	_, _ = unix.IoctlGetInt(int(f.Fd()), blkrrpart)
}
