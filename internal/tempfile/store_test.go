package tempfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/ocr-service/internal/common"
)

func TestSaveKeepsExtension(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s := NewStore(dir, 1024, nil)

	path, err := s.Save(strings.NewReader("hello"), "Scan.PNG")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Dir(path) != dir || filepath.Ext(path) != ".png" {
		t.Fatalf("Save() path = %q", path)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "hello" {
		t.Fatalf("content = %q, %v", b, err)
	}

	other, err := s.Save(strings.NewReader("x"), "Scan.PNG")
	if err != nil {
		t.Fatal(err)
	}
	if other == path {
		t.Fatal("two saves produced the same path")
	}
}

func TestSaveRejectsOversize(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 10, nil)

	if _, err := s.Save(bytes.NewReader(make([]byte, 10)), "ok.pdf"); err != nil {
		t.Fatalf("file at the limit should be accepted: %v", err)
	}

	_, err := s.Save(bytes.NewReader(make([]byte, 11)), "big.pdf")
	if !common.IsValidation(err) || !errors.Is(err, common.ErrFileTooLarge) {
		t.Fatalf("Save() error = %v, want file too large", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("oversize upload left files behind: %d entries", len(entries))
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := NewStore(t.TempDir(), 0, nil)
	path, err := s.Save(strings.NewReader("data"), "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Delete(path); err != nil {
			t.Fatalf("Delete() call %d error = %v", i+1, err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file still exists")
	}
	if err := s.Delete(""); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteDirectory(t *testing.T) {
	s := NewStore(t.TempDir(), 0, nil)
	dir := filepath.Join(s.Dir(), "pages")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "page-1.png"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("directory still exists")
	}
}

func TestSaveFileAndPurge(t *testing.T) {
	src := filepath.Join(t.TempDir(), "orig.jpeg")
	if err := os.WriteFile(src, []byte("jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewStore(filepath.Join(t.TempDir(), "scratch"), 0, nil)
	copyPath, err := s.SaveFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(copyPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("original must survive deleting the copy")
	}
	if err := s.Purge(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.Dir()); !os.IsNotExist(err) {
		t.Fatal("purge left the scratch dir")
	}
}
