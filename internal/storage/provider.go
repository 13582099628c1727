// Package storage defines the course library file-system abstraction.
package storage

import "github.com/starford/coursemark/internal/models"

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every bundle file under dir (relative to the root).
	List(dir string) ([]models.BundleMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the root).
	Move(oldPath, newPath string) error
}
