//go:build windows

package fileutil

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/windows"
)

// assertOwnerOnlyWindows verifies the DACL grants access to the current
// user and to no other principal.
func assertOwnerOnlyWindows(t *testing.T, path string) {
	t.Helper()

	token, err := windows.OpenCurrentProcessToken()
	if err != nil {
		t.Fatalf("OpenCurrentProcessToken: %v", err)
	}
	defer token.Close()

	user, err := token.GetTokenUser()
	if err != nil {
		t.Fatalf("GetTokenUser: %v", err)
	}
	ownerSID := user.User.Sid

	sd, err := windows.GetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION,
	)
	if err != nil {
		t.Fatalf("GetNamedSecurityInfo(%s): %v", path, err)
	}

	dacl, _, err := sd.DACL()
	if err != nil {
		t.Fatalf("DACL(): %v", err)
	}
	if dacl == nil {
		t.Fatal("nil DACL grants everyone full access")
	}

	aceCount := int(dacl.AceCount)
	if aceCount == 0 {
		t.Fatal("empty DACL denies all access, including the owner")
	}

	foundOwner := false
	for i := range aceCount {
		var ace *windows.ACCESS_ALLOWED_ACE
		if err := windows.GetAce(dacl, uint32(i), &ace); err != nil {
			t.Fatalf("GetAce(%d): %v", i, err)
		}

		// The SID is embedded at SidStart within the ACE.
		aceSID := (*windows.SID)(unsafe.Pointer(&ace.SidStart))
		if aceSID.Equals(ownerSID) {
			foundOwner = true
			continue
		}
		t.Errorf("unexpected ACE for SID %s on %s", aceSID.String(), path)
	}

	if !foundOwner {
		t.Error("no ACE found for current user")
	}
}

// assertHasInheritedACEs verifies a file carries more than one ACE, which
// is what a plain os.WriteFile leaves behind on Windows.
func assertHasInheritedACEs(t *testing.T, path string) {
	t.Helper()

	sd, err := windows.GetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION,
	)
	if err != nil {
		t.Fatalf("GetNamedSecurityInfo(%s): %v", path, err)
	}

	dacl, _, err := sd.DACL()
	if err != nil {
		t.Fatalf("DACL(): %v", err)
	}
	if dacl == nil {
		t.Fatal("DACL is nil")
	}

	if count := int(dacl.AceCount); count <= 1 {
		t.Fatalf("expected inherited ACEs, got %d", count)
	}
}
