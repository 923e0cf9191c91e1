//go:build unix

package rip

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// diskFree returns the bytes available to an unprivileged user on the
// filesystem holding dir.
func diskFree(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, errors.Wrapf(err, "rip: statfs %s", dir)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
