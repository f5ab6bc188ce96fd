// Package fileutil writes the auditor's on-disk artifacts with owner-only
// access: user rule files under rules.d, the history database directory,
// and history exports. On Unix the 0600/0700 mode bits carry the
// restriction; on Windows, where the kernel ignores those bits, a
// protected DACL limits each path to the current user.
package fileutil
