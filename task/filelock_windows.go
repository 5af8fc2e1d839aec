//go:build windows

package task

import "os"

// Advisory locking is a no-op on Windows; multi-process deployments
// sharing one store file need external serialization there.
func lockFile(_ *os.File) error { return nil }

func unlockFile(_ *os.File) error { return nil }
