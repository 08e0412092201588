package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPutStoresAndResolvesURL(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "http://blog.test/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := fs.Put(context.Background(), "uploads/123-logo.png", "image/png", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://blog.test/uploads/123-logo.png" {
		t.Fatalf("unexpected url %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "123-logo.png"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("stored content %q", data)
	}
}

func TestPutStripsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "http://blog.test")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := fs.Put(context.Background(), "../../etc/passwd", "text/plain", strings.NewReader("nope"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://blog.test/uploads/passwd" {
		t.Fatalf("unexpected url %q", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "passwd")); err != nil {
		t.Fatalf("object should land inside root: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("root should contain exactly the stored object: %v %v", entries, err)
	}
}

func TestNewFileStoreCreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	if _, err := NewFileStore(dir, "http://blog.test"); err != nil {
		t.Fatalf("new store: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("upload root not created: %v", err)
	}
}
