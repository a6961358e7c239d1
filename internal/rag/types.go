package rag

// RetrievedChunk is one search hit.
type RetrievedChunk struct {
	// ChunkID is the stable chunk identifier.
	ChunkID string `json:"chunk_id"`
	// RelPath is the source file relative to the folder root.
	RelPath string `json:"rel_path"`
	// Ordinal is the chunk position within its source file.
	Ordinal int `json:"ordinal"`
	// Text is the chunk text.
	Text string `json:"text"`
	// Score is the vector similarity score (higher is closer).
	Score float32 `json:"score"`
	// Rank is the 1-based position in the result.
	Rank int `json:"rank"`
}

// RetrievalResult is the ordered outcome of a query: score descending,
// ties broken by chunk ID.
type RetrievalResult struct {
	FolderID int64            `json:"folder_id"`
	Query    string           `json:"query"`
	K        int              `json:"k"`
	Chunks   []RetrievedChunk `json:"chunks"`
}

// AskRequest represents a RAG query request.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// K optionally specifies the desired chunk count (default 5, max 20).
	K int `json:"k,omitempty"`
	// Debug enables debug mode, returning detailed retrieval information.
	Debug bool `json:"debug,omitempty"`
}

// Source attributes part of an answer to a chunk.
type Source struct {
	ChunkID string  `json:"chunk_id"`
	RelPath string  `json:"rel_path"`
	Ordinal int     `json:"ordinal"`
	Score   float32 `json:"score"`
}

// Answer is the generated answer and the sources that were placed in the
// prompt.
type Answer struct {
	Text    string     `json:"answer"`
	Sources []Source   `json:"sources"`
	Debug   *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo contains retrieval details for debugging and evaluation.
type DebugInfo struct {
	// RetrievedChunks contains every retrieved chunk, including those
	// dropped to fit the context budget.
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
	// ContextChars is the size of the assembled context.
	ContextChars int `json:"context_chars"`
	// Dropped is the number of chunks left out to fit the budget.
	Dropped int `json:"dropped"`
	// ContextSkipped is set when the generator decided no context was needed.
	ContextSkipped bool `json:"context_skipped,omitempty"`
}
