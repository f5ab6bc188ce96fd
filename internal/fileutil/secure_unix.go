//go:build !windows

package fileutil

import "os"

// SecureWriteFile writes data readable and writable only by the owner.
// Rule files and exports go through here so a group-readable umask never
// widens them.
func SecureWriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0600)
}

// SecureMkdirAll creates a directory tree only the owner can enter. Used
// for the rules.d and history directories.
func SecureMkdirAll(path string) error {
	return os.MkdirAll(path, 0700)
}

// SecureOpenFile opens path for writing with owner-only mode bits, for
// streamed output like history exports.
func SecureOpenFile(path string, flag int) (*os.File, error) {
	return os.OpenFile(path, flag, 0600)
}
