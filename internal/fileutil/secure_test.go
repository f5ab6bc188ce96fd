package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const ruleYAML = `rules:
  - name: no-shutdown
    pattern: '\bshutdown\b'
    severity: block
    reason: halts the machine
`

func TestSecureWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "team.yaml")

	if err := SecureWriteFile(path, []byte(ruleYAML)); err != nil {
		t.Fatalf("SecureWriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != ruleYAML {
		t.Fatalf("got %q, want rule yaml back", data)
	}

	assertOwnerOnly(t, path)
}

func TestSecureMkdirAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".cmd-gen", "rules.d")

	if err := SecureMkdirAll(path); err != nil {
		t.Fatalf("SecureMkdirAll: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}

	assertOwnerOnly(t, path)
}

func TestSecureOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.jsonl")

	f, err := SecureOpenFile(path, os.O_CREATE|os.O_WRONLY)
	if err != nil {
		t.Fatalf("SecureOpenFile: %v", err)
	}
	if _, err := f.WriteString(`{"command":"rm -rf /","allowed":false}` + "\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("export file is empty")
	}

	assertOwnerOnly(t, path)
}

func TestSecureWriteFile_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "team.yaml")

	if err := SecureWriteFile(path, []byte("rules: []\n")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SecureWriteFile(path, []byte(ruleYAML)); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != ruleYAML {
		t.Fatalf("got %q, want the replacement content", data)
	}

	assertOwnerOnly(t, path)
}

func TestSecureWriteFile_EmptyData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")

	if err := SecureWriteFile(path, []byte{}); err != nil {
		t.Fatalf("SecureWriteFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty file, got size %d", info.Size())
	}

	assertOwnerOnly(t, path)
}

func TestSecureMkdirAll_AlreadyExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.d")

	if err := SecureMkdirAll(path); err != nil {
		t.Fatalf("first SecureMkdirAll: %v", err)
	}
	if err := SecureMkdirAll(path); err != nil {
		t.Fatalf("second SecureMkdirAll: %v", err)
	}

	assertOwnerOnly(t, path)
}

func TestSecureOpenFile_AppendMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.jsonl")

	f, err := SecureOpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	f.WriteString("{\"command\":\"ls\"}\n")
	f.Close()

	f, err = SecureOpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	f.WriteString("{\"command\":\"pwd\"}\n")
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "{\"command\":\"ls\"}\n{\"command\":\"pwd\"}\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}

	assertOwnerOnly(t, path)
}

// TestPlainWriteFile_InheritsACL documents why this package exists: on
// Windows, os.WriteFile with 0600 leaves the parent directory's inherited
// DACL in place, so BUILTIN\Users can still read the rule file.
func TestPlainWriteFile_InheritsACL(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("Windows-only test")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "team.yaml")

	if err := os.WriteFile(path, []byte(ruleYAML), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	assertHasInheritedACEs(t, path)
}

// assertOwnerOnly checks that path is restricted to the owner: mode bits on
// Unix, DACL inspection on Windows.
func assertOwnerOnly(t *testing.T, path string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		assertOwnerOnlyWindows(t, path)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat %s: %v", path, err)
	}
	mode := info.Mode().Perm()

	if mode&0077 != 0 {
		t.Errorf("%s has group/other permissions: %04o", path, mode)
	}
}
