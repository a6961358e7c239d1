package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// UpsertBatch inserts or replaces chunks in a single transaction.
	UpsertBatch(ctx context.Context, chunks []ChunkRecord) error
	// ListByFile returns the chunks of one source file ordered by ordinal.
	ListByFile(ctx context.Context, folderID int64, relPath string) ([]ChunkRecord, error)
	// ListByFolder returns every chunk of a folder ordered by path and ordinal.
	ListByFolder(ctx context.Context, folderID int64) ([]ChunkRecord, error)
	// GetByIDs returns the chunks with the given IDs keyed by ID. Missing IDs are skipped.
	GetByIDs(ctx context.Context, ids []string) (map[string]ChunkRecord, error)
	// DeleteByIDs deletes chunks by ID.
	DeleteByIDs(ctx context.Context, ids []string) error
	// DeleteByFile deletes all chunks of one source file.
	DeleteByFile(ctx context.Context, folderID int64, relPath string) error
	// SourceCounts returns the chunk count per source path.
	SourceCounts(ctx context.Context, folderID int64) (map[string]int, error)
	// DeleteByFolder deletes all chunks of a folder.
	DeleteByFolder(ctx context.Context, folderID int64) error
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

const chunkColumns = "id, folder_id, rel_path, ordinal, content_hash, text, vector"

// UpsertBatch inserts or replaces chunks in a single transaction.
func (r *ChunkRepo) UpsertBatch(ctx context.Context, chunks []ChunkRecord) (err error) {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO chunks ("+chunkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, c := range chunks {
		if _, err = stmt.ExecContext(ctx, c.ID, c.FolderID, c.RelPath, c.Ordinal, c.ContentHash, c.Text, EncodeVector(c.Vector)); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// ListByFile returns the chunks of one source file ordered by ordinal.
// Returns an empty slice if the file has no chunks (not an error).
func (r *ChunkRepo) ListByFile(ctx context.Context, folderID int64, relPath string) ([]ChunkRecord, error) {
	return r.query(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE folder_id = ? AND rel_path = ? ORDER BY ordinal",
		folderID, relPath)
}

// ListByFolder returns every chunk of a folder.
func (r *ChunkRepo) ListByFolder(ctx context.Context, folderID int64) ([]ChunkRecord, error) {
	return r.query(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE folder_id = ? ORDER BY rel_path, ordinal",
		folderID)
}

// GetByIDs returns the chunks with the given IDs keyed by ID.
func (r *ChunkRepo) GetByIDs(ctx context.Context, ids []string) (map[string]ChunkRecord, error) {
	out := make(map[string]ChunkRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	for _, batch := range batches(ids) {
		chunks, err := r.query(ctx,
			"SELECT "+chunkColumns+" FROM chunks WHERE id IN ("+placeholders(len(batch))+")",
			stringArgs(batch)...)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			out[c.ID] = c
		}
	}
	return out, nil
}

// DeleteByIDs deletes chunks by ID.
func (r *ChunkRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	for _, batch := range batches(ids) {
		_, err := r.db.ExecContext(ctx,
			"DELETE FROM chunks WHERE id IN ("+placeholders(len(batch))+")",
			stringArgs(batch)...)
		if err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
	}
	return nil
}

// DeleteByFile deletes all chunks of one source file.
func (r *ChunkRepo) DeleteByFile(ctx context.Context, folderID int64, relPath string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE folder_id = ? AND rel_path = ?", folderID, relPath)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by file: %w", err)
	}
	return nil
}

// SourceCounts returns the chunk count per source path.
func (r *ChunkRepo) SourceCounts(ctx context.Context, folderID int64) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT rel_path, COUNT(*) FROM chunks WHERE folder_id = ? GROUP BY rel_path",
		folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var path string
		var n int
		if err := rows.Scan(&path, &n); err != nil {
			return nil, fmt.Errorf("failed to scan chunk count: %w", err)
		}
		counts[path] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk counts: %w", err)
	}
	return counts, nil
}

// DeleteByFolder deletes all chunks of a folder.
func (r *ChunkRepo) DeleteByFolder(ctx context.Context, folderID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE folder_id = ?", folderID); err != nil {
		return fmt.Errorf("failed to delete chunks by folder: %w", err)
	}
	return nil
}

func (r *ChunkRepo) query(ctx context.Context, query string, args ...any) ([]ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		var blob []byte
		if err := rows.Scan(&c.ID, &c.FolderID, &c.RelPath, &c.Ordinal, &c.ContentHash, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.Vector = DecodeVector(blob)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}
	return chunks, nil
}

// EncodeVector serializes a vector as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

// maxQueryParams keeps IN clauses well below SQLite's variable limit.
const maxQueryParams = 500

func batches(ids []string) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += maxQueryParams {
		end := min(start+maxQueryParams, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
