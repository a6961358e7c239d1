package storage

import "time"

// FolderRecord is a watched folder as persisted in the database.
type FolderRecord struct {
	ID         int64
	Name       string
	RootPath   string
	ProviderID string // Bound embedding provider configuration
	IndexPath  string // Directory holding the folder's vector index
	// Binding is the signature (kind+model+dimensions) of the provider the
	// current index was built with. Empty when no index has been built.
	Binding      string
	LastSyncedAt *time.Time // Nil until an initial sync has completed
	CreatedAt    time.Time
}

// Ready reports whether the folder has completed an initial sync.
func (f FolderRecord) Ready() bool {
	return f.LastSyncedAt != nil
}

// FileRecord is one snapshot entry: the last indexed state of a file.
type FileRecord struct {
	FolderID    int64
	RelPath     string    // Forward-slash path relative to the folder root
	Fingerprint string    // SHA-256 hex of file content
	Size        int64     // Size in bytes when fingerprinted
	ModTime     time.Time // Modification time when fingerprinted
	SyncedAt    time.Time
}

// ChunkRecord is an indexed chunk. ID doubles as the vector store point ID.
type ChunkRecord struct {
	ID          string
	FolderID    int64
	RelPath     string // Source file
	Ordinal     int    // Position within the source file (starts at 0)
	ContentHash string // SHA-256 hex of Text
	Text        string
	Vector      []float32
}
