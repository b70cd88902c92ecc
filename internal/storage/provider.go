// Package storage discovers notebooks under a root directory and reads and
// writes them.
package storage

// Provider is the interface for notebook file operations. Paths are
// slash-separated and relative to the root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns every notebook under the root, in lexical walk order.
	// When recursive is false only the root directory itself is scanned.
	List(recursive bool) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
}
