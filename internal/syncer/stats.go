package syncer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"docsync-ai/internal/storage"
)

// TokensPerRune is an approximation for token counting (4 chars per token).
const TokensPerRune = 4.0

// BindingSignature identifies an index build: the provider's vector space
// plus the chunking settings. Indexes with different signatures must not
// be mixed.
func BindingSignature(providerSignature, chunkerSignature string) string {
	hash := sha256.Sum256([]byte(chunkerSignature + "|" + providerSignature))
	return hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits
}

// CoverageStats contains statistics about a folder's index.
type CoverageStats struct {
	// FilesTracked is the number of files in the committed snapshot.
	FilesTracked int `json:"files_tracked"`
	// FilesIndexed is the number of files with at least one chunk.
	FilesIndexed int `json:"files_indexed"`
	// ChunksIndexed is the number of chunks in the index.
	ChunksIndexed int `json:"chunks_indexed"`
	// ChunkTokenStats contains statistics about token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion identifies the chunking settings.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is the binding signature of the index build.
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// coverage computes index statistics for one folder from the database.
func coverage(ctx context.Context, chunks storage.ChunkStore, files storage.FileStore, folderID int64, chunkerVersion, indexVersion string) (*CoverageStats, error) {
	records, err := chunks.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	tracked, err := files.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	stats := &CoverageStats{
		FilesTracked:   len(tracked),
		ChunksIndexed:  len(records),
		ChunkerVersion: chunkerVersion,
		IndexVersion:   indexVersion,
	}

	sources := make(map[string]struct{})
	tokenCounts := make([]int, 0, len(records))
	for _, c := range records {
		sources[c.RelPath] = struct{}{}
		// Estimate tokens from rune count (approximation: ~4 chars per token)
		tokenCount := int(math.Round(float64(utf8.RuneCountInString(c.Text)) / TokensPerRune))
		if tokenCount < 1 {
			tokenCount = 1
		}
		tokenCounts = append(tokenCounts, tokenCount)
	}
	stats.FilesIndexed = len(sources)
	stats.ChunkTokenStats = computeTokenStats(tokenCounts)

	return stats, nil
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
