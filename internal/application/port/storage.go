package port

import "context"

// FileStorage keeps receipt documents under slash-separated paths relative to the storage root
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	// Delete removes the document; a missing document is not an error
	Delete(ctx context.Context, path string) error
}

// FolderManager owns the per-trip folder that receipt paths live in
type FolderManager interface {
	// EnsureFolder creates the folder for tripNumber if needed and returns its relative name
	EnsureFolder(ctx context.Context, tripNumber string) (string, error)
	// RemoveFolder deletes the trip's folder with its contents; a missing folder is not an error
	RemoveFolder(ctx context.Context, tripNumber string) error
}
