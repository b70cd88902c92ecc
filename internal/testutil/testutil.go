// Package testutil provides shared test helpers for notebook trees.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/nbbadge/internal/notebook"
	"github.com/starford/nbbadge/internal/storage"
)

// BaseURL is the repository base URL used across tests.
const BaseURL = "https://colab.research.google.com/github/owner/repo/blob/main"

// TestRoot creates a temporary notebook root with a storage provider.
func TestRoot(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// CodeCell returns the JSON of a code cell with the given source.
func CodeCell(source string) string {
	src, _ := json.Marshal(notebook.SplitLines(source))
	return `{"cell_type":"code","execution_count":null,"metadata":{},"outputs":[],"source":` + string(src) + `}`
}

// MarkdownCell returns the JSON of a markdown cell with the given source.
func MarkdownCell(source string) string {
	src, _ := json.Marshal(notebook.SplitLines(source))
	return `{"cell_type":"markdown","metadata":{},"source":` + string(src) + `}`
}

// Notebook returns an nbformat 4.minor notebook holding cells, formatted the
// way Jupyter writes it.
func Notebook(t *testing.T, minor int, cells ...string) []byte {
	t.Helper()
	raw := `{"metadata":{"kernelspec":{"display_name":"Python 3","language":"python","name":"python3"}},` +
		`"nbformat":4,"nbformat_minor":` + strconv.Itoa(minor) + `,"cells":[` + strings.Join(cells, ",") + `]}`
	doc, err := notebook.Decode([]byte(raw), notebook.Version)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	out, err := notebook.Encode(doc)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return out
}

// WriteFile writes data to rel under root, creating parent directories.
func WriteFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadFile reads rel under root.
func ReadFile(t *testing.T, root, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// ReadNotebook decodes the notebook at rel under root.
func ReadNotebook(t *testing.T, root, rel string) *notebook.Document {
	t.Helper()
	doc, err := notebook.Decode(ReadFile(t, root, rel), notebook.Version)
	if err != nil {
		t.Fatalf("decode %s: %v", rel, err)
	}
	return doc
}

// Eventually polls fn until it returns true or five seconds elapse.
func Eventually(t *testing.T, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error(msg)
}
