package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := Init(t.TempDir(), "test-password")
	if err != nil {
		t.Fatalf("init vault: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func TestInitAndReopen(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(dir, "secret")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if StatusOf(dir) != StatusExisting {
		t.Fatalf("expected existing status after init")
	}
	if err := v.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	v, err = Open(dir, "secret")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v.Close()
}

func TestOpenWrongPassword(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(dir, "secret")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	v.Close()

	if _, err := Open(dir, "not-the-password"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

func TestInitExistingFails(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(dir, "secret")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	v.Close()

	if _, err := Init(dir, "secret"); !errors.Is(err, ErrVaultExists) {
		t.Fatalf("expected ErrVaultExists, got %v", err)
	}
}

func TestStatusOfEmptyDir(t *testing.T) {
	if StatusOf(t.TempDir()) != StatusNew {
		t.Fatalf("expected new status for empty dir")
	}
}

func TestInitCreatesVaultFiles(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(dir, "secret")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer v.Close()

	for _, name := range []string{dbFileName, saltFileName, keycheckFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	info, err := os.Stat(filepath.Join(dir, assetsDirName))
	if err != nil || !info.IsDir() {
		t.Fatalf("missing assets dir: %v", err)
	}
}
