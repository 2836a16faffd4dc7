//go:build !windows

package store

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/dsautocare/site/internal/errors"
)

// openFileNoFollow opens path without following a symlink in the final component.
// O_CLOEXEC keeps the descriptor out of child processes.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("store file is a symlink")
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
