//go:build !windows

package task

import (
	"os"
	"syscall"
)

// lockFile takes an exclusive advisory lock, blocking until available.
func lockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

func unlockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
