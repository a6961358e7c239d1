package handlers

import (
	"net/http"
	"strings"

	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/rag"
)

// AskHandler handles HTTP requests for RAG queries.
type AskHandler struct {
	engine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine rag.Engine) *AskHandler {
	return &AskHandler{engine: engine}
}

// AskRequest represents the HTTP request payload for RAG queries.
//
// swagger:model AskRequest
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// ServeHTTP handles POST /api/folders/{id}/ask.
//
// swagger:route POST /api/folders/{id}/ask askQuestion
//
// # Ask a question using RAG
//
// Retrieves context from the folder's index and generates an answer with
// source attributions. Use the `debug=true` query parameter to include every
// retrieved chunk with its score and rank.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/AskRequest"
//   - in: query
//     name: debug
//     type: boolean
//     required: false
//
// responses:
//
//	'200':
//	  description: Answer with sources
//	'400':
//	  description: Bad request (empty question)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'409':
//	  description: Folder not ready
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding or LLM service unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "", "Method not allowed")
		return
	}

	id, err := folderID(r)
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}

	var req AskRequest
	if err := decode(r, &req); err != nil {
		writeAppError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "invalid_input", "Question is required")
		return
	}

	debug := false
	if debugParam := r.URL.Query().Get("debug"); debugParam != "" {
		debug = strings.ToLower(debugParam) == "true" || debugParam == "1"
	}

	answer, err := h.engine.Ask(ctx, id, rag.AskRequest{
		Question: req.Question,
		K:        req.K,
		Debug:    debug,
	})
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	if answer.Sources == nil {
		answer.Sources = []rag.Source{}
	}
	writeJSON(w, http.StatusOK, answer)
}
