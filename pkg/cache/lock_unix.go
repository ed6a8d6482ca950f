// SPDX-License-Identifier: MPL-2.0

//go:build unix

package cache

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// acquireFileLock opens (or creates) the lock file and takes a blocking
// exclusive flock. The zero-byte lock file is harmless if orphaned: the
// kernel drops the flock when the descriptor closes, including on process
// crash. The returned release function is safe to call once per acquisition.
func acquireFileLock(path string) (release func(), err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return func() {
		// LOCK_UN before Close for explicitness; Close also releases the flock.
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}
