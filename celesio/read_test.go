package celesio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadUTF8FileStripsBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "with_bom.toml")
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("x = 1\n")...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadUTF8File(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "x = 1\n" {
		t.Fatalf("got %q", got)
	}
}

func TestReadUTF8FileWithoutBOMIsUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.toml")
	if err := os.WriteFile(path, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadUTF8File(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "x = 1\n" {
		t.Fatalf("got %q", got)
	}
}

func TestReadUTF8FileMissingReturnsNotExist(t *testing.T) {
	_, err := ReadUTF8File(filepath.Join(t.TempDir(), "missing.toml"))
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}
