package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opal-lang/celes/toml"
)

func TestStoreThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "Project.toml")
	src := []byte("[Build]\nName = \"demo\"\nVersion = \"1.2.3\"\n")
	if err := os.WriteFile(srcPath, src, 0o644); err != nil {
		t.Fatal(err)
	}

	root, kind, _ := toml.Parse(srcPath, src)
	if kind != "" {
		t.Fatalf("parse failed: %s", kind)
	}

	hash := ContentHash(src)
	if err := Store(srcPath, hash, root); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if _, err := os.Stat(PathFor(srcPath)); err != nil {
		t.Fatalf("cache file missing: %v", err)
	}

	loaded, ok := Load(srcPath, hash)
	if !ok {
		t.Fatal("Load: expected hit")
	}
	build := loaded.GetTable("Build")
	if build == nil {
		t.Fatal("loaded tree missing Build table")
	}
	if got := build.GetString("Name"); got != "demo" {
		t.Fatalf("Name = %q", got)
	}
	if got := build.GetString("Version"); got != "1.2.3" {
		t.Fatalf("Version = %q", got)
	}
}

func TestLoadMissesOnHashMismatch(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "Project.toml")
	src := []byte("x = 1\n")
	root, kind, _ := toml.Parse(srcPath, src)
	if kind != "" {
		t.Fatalf("parse failed: %s", kind)
	}

	if err := Store(srcPath, ContentHash(src), root); err != nil {
		t.Fatalf("Store: %v", err)
	}

	_, ok := Load(srcPath, ContentHash([]byte("x = 2\n")))
	if ok {
		t.Fatal("expected miss on changed content hash")
	}
}

func TestLoadMissesWhenCacheFileAbsent(t *testing.T) {
	dir := t.TempDir()
	_, ok := Load(filepath.Join(dir, "nope.toml"), ContentHash([]byte("x")))
	if ok {
		t.Fatal("expected miss when no cache file exists")
	}
}
