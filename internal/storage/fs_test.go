package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/nbbadge/internal/apperr"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte(`{"cells": []}`)
	if err := s.Write("nb.ipynb", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("nb.ipynb")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("a/b/c.ipynb", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.ipynb")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWritePreservesMode(t *testing.T) {
	s := tempRoot(t)
	p := filepath.Join(s.Root(), "ro.ipynb")
	if err := os.WriteFile(p, []byte("old"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("ro.ipynb", []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(p)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestReadMissing(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("nope.ipynb")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, apperr.ErrFilesystem) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrFilesystem wrapping ErrNotExist", err)
	}
}

func seed(t *testing.T, s *FS, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := s.Write(p, []byte("x")); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}
}

func TestList_Recursive(t *testing.T) {
	s := tempRoot(t)
	seed(t, s,
		"b.ipynb",
		"a.ipynb",
		"sub/dir/nb.ipynb",
		"notes.txt",
		"fake.ipynb.bak",
		".ipynb_checkpoints/a-checkpoint.ipynb",
		"sub/.git/hooks.ipynb",
	)

	got, err := s.List(true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a.ipynb", "b.ipynb", "sub/dir/nb.ipynb"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List(true) (-want +got):\n%s", diff)
	}
}

func TestList_TopLevelOnly(t *testing.T) {
	s := tempRoot(t)
	seed(t, s, "a.ipynb", "sub/nested.ipynb", "readme.md")

	got, err := s.List(false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"a.ipynb"}, got); diff != "" {
		t.Errorf("List(false) (-want +got):\n%s", diff)
	}
}

func TestList_SkipsDirectoryNamedLikeNotebook(t *testing.T) {
	s := tempRoot(t)
	if err := os.Mkdir(filepath.Join(s.Root(), "dir.ipynb"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := s.List(true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List = %v, want empty", got)
	}
}

func TestList_SkipsSymlinkedNotebooks(t *testing.T) {
	s := tempRoot(t)
	seed(t, s, "real.ipynb")
	if err := os.Symlink(filepath.Join(s.Root(), "real.ipynb"), filepath.Join(s.Root(), "link.ipynb")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	for _, recursive := range []bool{true, false} {
		got, err := s.List(recursive)
		if err != nil {
			t.Fatalf("List(%v): %v", recursive, err)
		}
		if diff := cmp.Diff([]string{"real.ipynb"}, got); diff != "" {
			t.Errorf("List(%v) (-want +got):\n%s", recursive, diff)
		}
	}
}

func TestRel(t *testing.T) {
	s := tempRoot(t)
	got, err := s.Rel(filepath.Join(s.Root(), "sub", "nb.ipynb"))
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	if got != "sub/nb.ipynb" {
		t.Errorf("rel = %q", got)
	}
	if _, err := s.Rel(filepath.Dir(s.Root())); err == nil {
		t.Error("expected error for path outside root")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.ipynb",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.ipynb", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.ipynb", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.ipynb")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".nbbadge-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for non-existent dir")
	}
	if !errors.Is(err, apperr.ErrFilesystem) {
		t.Errorf("err = %v, want ErrFilesystem", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "nbbadge-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
