package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks docsync-ai/internal/rag Engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/llm"
)

// DefaultContextBudget is the default number of context characters placed
// in a prompt.
const DefaultContextBudget = 12000

const noResultsAnswer = "I couldn't find any relevant information in this folder to answer the question."

const systemPrompt = "You are a helpful assistant that answers questions based on the provided context from the user's documents. " +
	"Answer the question using only the information from the context below. If the context doesn't contain " +
	"enough information to answer the question, say so. Cite the source paths you used."

const needContextPrompt = "Decide whether answering the question below requires looking up the user's documents. " +
	"Reply with exactly YES or NO.\n\nQuestion: %s"

// Engine answers questions about a folder: retrieve, assemble a prompt
// within the context budget, generate.
type Engine interface {
	Ask(ctx context.Context, folderID int64, req AskRequest) (Answer, error)
}

// Options tunes the engine.
type Options struct {
	// ContextBudget caps the context characters in a prompt. Zero selects
	// DefaultContextBudget.
	ContextBudget int
	// SkipRetrievalCheck asks the generator whether a question needs
	// document context before retrieving any.
	SkipRetrievalCheck bool
	// LexicalRerank blends a keyword overlap score into the vector score
	// before the budget is applied.
	LexicalRerank bool
}

type ragEngine struct {
	retriever Retriever
	generator llm.Generator
	opts      Options
}

// NewEngine creates a new RAG engine.
func NewEngine(retriever Retriever, generator llm.Generator, opts Options) Engine {
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = DefaultContextBudget
	}
	return &ragEngine{retriever: retriever, generator: generator, opts: opts}
}

// Ask answers a question using RAG.
func (e *ragEngine) Ask(ctx context.Context, folderID int64, req AskRequest) (Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Question) == "" {
		return Answer{}, &apperr.ValidationError{Field: "question", Message: "is required"}
	}
	logger.InfoContext(ctx, "RAG query started", "folder_id", folderID, "question_length", len(req.Question), "k", req.K)

	if e.opts.SkipRetrievalCheck && !e.needsContext(ctx, req.Question) {
		logger.InfoContext(ctx, "answering without document context")
		text, err := e.generator.Complete(ctx, req.Question)
		if err != nil {
			return Answer{}, fmt.Errorf("failed to get LLM response: %w", err)
		}
		ans := Answer{Text: text, Sources: []Source{}}
		if req.Debug {
			ans.Debug = &DebugInfo{RetrievedChunks: []RetrievedChunk{}, ContextSkipped: true}
		}
		return ans, nil
	}

	result, err := e.retriever.Retrieve(ctx, folderID, req.Question, req.K)
	if err != nil {
		return Answer{}, err
	}

	chunks := result.Chunks
	if e.opts.LexicalRerank {
		chunks = rerank(req.Question, chunks)
	}

	if len(chunks) == 0 {
		logger.InfoContext(ctx, "no search results found")
		ans := Answer{Text: noResultsAnswer, Sources: []Source{}}
		if req.Debug {
			ans.Debug = &DebugInfo{RetrievedChunks: []RetrievedChunk{}}
		}
		return ans, nil
	}

	included, contextString := BuildContext(chunks, e.opts.ContextBudget)
	logger.InfoContext(ctx, "context formatted for LLM",
		"context_length", len(contextString),
		"chunks_included", len(included),
		"chunks_dropped", len(chunks)-len(included),
	)
	logger.DebugContext(ctx, "full context being sent to LLM", "context", contextString)

	prompt := fmt.Sprintf("%s\n\n%s\n\nQuestion: %s", systemPrompt, contextString, req.Question)
	text, err := e.generator.Complete(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return Answer{}, fmt.Errorf("failed to get LLM response: %w", err)
	}
	logger.InfoContext(ctx, "received LLM response", "answer_length", len(text))

	sources := make([]Source, 0, len(included))
	for _, c := range included {
		sources = append(sources, Source{ChunkID: c.ChunkID, RelPath: c.RelPath, Ordinal: c.Ordinal, Score: c.Score})
	}

	ans := Answer{Text: text, Sources: sources}
	if req.Debug {
		ans.Debug = &DebugInfo{
			RetrievedChunks: chunks,
			ContextChars:    utf8.RuneCountInString(contextString),
			Dropped:         len(chunks) - len(included),
		}
	}
	return ans, nil
}

// needsContext asks the generator whether the question needs document
// context. Any failure or unclear reply means yes.
func (e *ragEngine) needsContext(ctx context.Context, question string) bool {
	reply, err := e.generator.Complete(ctx, fmt.Sprintf(needContextPrompt, question))
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "context check failed", "error", err)
		return true
	}
	return !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(reply)), "NO")
}

// BuildContext renders chunks (already ordered by score) into a context
// block of at most budget characters, dropping the lowest-scoring chunks
// first. When not even the best chunk fits, its text is truncated. It
// returns the chunks that were included.
func BuildContext(chunks []RetrievedChunk, budget int) ([]RetrievedChunk, string) {
	blocks := make([]string, len(chunks))
	total := 0
	for i, c := range chunks {
		blocks[i] = renderChunk(c.RelPath, c.Ordinal, c.Text)
		total += utf8.RuneCountInString(blocks[i])
	}

	n := len(chunks)
	for n > 1 && total > budget {
		n--
		total -= utf8.RuneCountInString(blocks[n])
	}
	if n == 1 && total > budget {
		header := renderChunk(chunks[0].RelPath, chunks[0].Ordinal, "")
		room := max(budget-utf8.RuneCountInString(header), 0)
		blocks[0] = renderChunk(chunks[0].RelPath, chunks[0].Ordinal, truncateRunes(chunks[0].Text, room))
	}

	var b strings.Builder
	b.WriteString("--- Context from documents ---\n\n")
	for _, block := range blocks[:n] {
		b.WriteString(block)
	}
	b.WriteString("--- End Context ---")
	return chunks[:n], b.String()
}

func renderChunk(relPath string, ordinal int, text string) string {
	return fmt.Sprintf("[source: %s#%d]\n%s\n\n", relPath, ordinal, text)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// rerank reorders chunks by vector score plus lexical score. Ties keep
// chunk ID order.
func rerank(question string, chunks []RetrievedChunk) []RetrievedChunk {
	type scored struct {
		chunk RetrievedChunk
		final float32
	}
	items := make([]scored, len(chunks))
	for i, c := range chunks {
		items[i] = scored{chunk: c, final: c.Score + lexicalScore(question, c.Text, c.RelPath)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].final != items[j].final {
			return items[i].final > items[j].final
		}
		return items[i].chunk.ChunkID < items[j].chunk.ChunkID
	})

	out := make([]RetrievedChunk, len(items))
	for i, it := range items {
		out[i] = it.chunk
		out[i].Rank = i + 1
	}
	return out
}
