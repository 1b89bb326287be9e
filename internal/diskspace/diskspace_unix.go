//go:build !windows

package diskspace

import "syscall"

// availableSpace returns the bytes available to this user on the filesystem
// containing dir. Bavail rather than Bfree: root-reserved blocks do not
// count.
func availableSpace(dir string) (int64, bool) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, false
	}
	return int64(stat.Bavail) * int64(stat.Bsize), true
}
