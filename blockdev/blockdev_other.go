//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)
// +build !aix,!darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package blockdev

import "os"

// reReadPartitionTable is a no-op on platforms without the BLKRRPART ioctl.
func reReadPartitionTable(*os.File) {}
