package handlers

import (
	"net/http"

	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/rag"
)

// RetrieveHandler handles HTTP requests for raw retrieval.
type RetrieveHandler struct {
	retriever rag.Retriever
}

// NewRetrieveHandler creates a new RetrieveHandler.
func NewRetrieveHandler(retriever rag.Retriever) *RetrieveHandler {
	return &RetrieveHandler{retriever: retriever}
}

// RetrieveRequest is the HTTP payload for a retrieval query.
//
// swagger:model RetrieveRequest
type RetrieveRequest struct {
	Query string `json:"query"`
	// K is the number of chunks to return (default 5, max 20).
	K int `json:"k,omitempty"`
}

// ServeHTTP handles POST /api/folders/{id}/retrieve.
//
// swagger:route POST /api/folders/{id}/retrieve retrieveChunks
//
// # Retrieve the chunks nearest to a query
//
// Returns up to k chunks ordered by descending similarity. Folders that
// have not completed an initial sync under their current provider answer
// 409 with code "not_ready".
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Ordered retrieval result
//	'400':
//	  description: Empty query or malformed body
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Unknown folder
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'409':
//	  description: Folder not ready
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding provider unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *RetrieveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	var req RetrieveRequest
	if err := decode(r, &req); err != nil {
		writeAppError(ctx, w, err)
		return
	}

	result, err := h.retriever.Retrieve(ctx, id, req.Query, req.K)
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
