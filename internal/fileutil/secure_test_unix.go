//go:build !windows

package fileutil

import "testing"

// assertOwnerOnlyWindows is a no-op on Unix; assertOwnerOnly checks the
// mode bits directly here.
func assertOwnerOnlyWindows(t *testing.T, _ string) {
	t.Helper()
}

// assertHasInheritedACEs is a no-op on Unix; inherited DACLs are a Windows
// behavior.
func assertHasInheritedACEs(t *testing.T, _ string) {
	t.Helper()
}
