//go:build unix

package fileno

import (
	"errors"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

const (
	accessRead  = unix.R_OK
	accessWrite = unix.W_OK
)

// isCapacityErr reports whether err signals that the storage ran out of memory or space
func isCapacityErr(err error) bool {
	return errors.Is(err, unix.ENOMEM) ||
		errors.Is(err, unix.EFBIG) ||
		errors.Is(err, unix.ENOSPC) ||
		errors.Is(err, unix.EDQUOT)
}

func isNoMem(err error) bool {
	return errors.Is(err, unix.ENOMEM)
}

// accessible checks path against mode with access(2) when the engine runs on
// the real filesystem. Other afero filesystems fall back to the permission bits.
func accessible(fs afero.Fs, path string, mode uint32) bool {
	if _, ok := fs.(*afero.OsFs); ok {
		return unix.Access(path, mode) == nil
	}
	return permAccessible(fs, path, mode)
}
