package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
//
// files holds the per-folder snapshot (path -> fingerprint). chunks holds the
// metadata and a copy of the vector of every indexed chunk; it references the
// folder rather than the file row because index mutations are written before
// the snapshot is committed.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS folders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			root_path TEXT NOT NULL,
			provider_id TEXT NOT NULL,
			index_path TEXT NOT NULL,
			binding TEXT NOT NULL DEFAULT '',
			last_synced_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS files (
			folder_id INTEGER NOT NULL,
			rel_path TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			size INTEGER NOT NULL,
			mod_time INTEGER NOT NULL,
			synced_at DATETIME NOT NULL,
			PRIMARY KEY (folder_id, rel_path),
			FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			folder_id INTEGER NOT NULL,
			rel_path TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			content_hash TEXT NOT NULL,
			text TEXT NOT NULL,
			vector BLOB NOT NULL,
			FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE,
			UNIQUE (folder_id, rel_path, ordinal)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_folder_path ON chunks (folder_id, rel_path);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
