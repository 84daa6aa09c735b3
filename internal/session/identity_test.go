package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadIdentityCreatesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livecap", "identity")

	id, err := loadIdentityFrom(path)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if id == "" {
		t.Fatal("empty identity")
	}

	again, err := loadIdentityFrom(path)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if again != id {
		t.Errorf("identity not stable: %q then %q", id, again)
	}
}

func TestLoadIdentityReadsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity")
	if err := os.WriteFile(path, []byte("stored-id\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	id, err := loadIdentityFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if id != "stored-id" {
		t.Errorf("id = %q, want stored-id", id)
	}
}

func TestLoadIdentityRegeneratesWhenBlank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	id, err := loadIdentityFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if id == "" {
		t.Error("blank identity file should be replaced with a fresh id")
	}
}
