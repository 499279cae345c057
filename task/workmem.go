package task

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/wordtools/wdedup/wio"
)

// MinMemory is the smallest accepted working-memory size.
const MinMemory = 4 * 1024

func allocWorkMem(size uint64, pinned bool) ([]byte, error) {
	mem := make([]byte, size)
	if pinned {
		if err := unix.Mlock(mem); err != nil {
			return nil, pinError(err)
		}
	}
	return mem, nil
}

func releaseWorkMem(mem []byte, pinned bool) error {
	if !pinned {
		return nil
	}
	if err := unix.Munlock(mem); err != nil {
		return pinError(err)
	}
	return nil
}

func pinError(err error) error {
	errno := syscall.ENOMEM
	var sys syscall.Errno
	if errors.As(err, &sys) {
		errno = sys
	}
	return wio.NewError(errno, "working memory", "mlock")
}
