// Package storage defines the workspace file-system abstraction.
package storage

import "github.com/starford/gebo/internal/models"

// Provider is the interface for workspace file operations. All paths are
// relative to the workspace root.
type Provider interface {
	// List walks dir and returns metadata for every .json graph document.
	List(dir string) ([]models.GraphFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Copy duplicates the bytes at src to dst verbatim, overwriting dst.
	Copy(src, dst string) error
	// Abs resolves path to its absolute form under the workspace root.
	// The result is stable across calls and suitable as a cache key.
	Abs(path string) (string, error)
}
