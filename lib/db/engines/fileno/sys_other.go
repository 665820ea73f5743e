//go:build !unix

package fileno

import (
	"errors"
	"syscall"

	"github.com/spf13/afero"
)

const (
	accessRead  = 0x4
	accessWrite = 0x2
)

func isCapacityErr(err error) bool {
	return errors.Is(err, syscall.ENOMEM) ||
		errors.Is(err, syscall.EFBIG) ||
		errors.Is(err, syscall.ENOSPC)
}

func isNoMem(err error) bool {
	return errors.Is(err, syscall.ENOMEM)
}

func accessible(fs afero.Fs, path string, mode uint32) bool {
	return permAccessible(fs, path, mode)
}
