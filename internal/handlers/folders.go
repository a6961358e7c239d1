package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_folders.go -package=mocks docsync-ai/internal/handlers FolderService,FolderAdmin

import (
	"context"
	"net/http"

	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/folders"
	"docsync-ai/internal/syncer"
)

// FolderService is the read and trigger side of the sync engine.
type FolderService interface {
	List(ctx context.Context) []syncer.Status
	Status(ctx context.Context, id int64) (syncer.Status, error)
	Sync(ctx context.Context, id int64, mode syncer.Mode) error
	Coverage(ctx context.Context, id int64) (*syncer.CoverageStats, error)
}

// FolderAdmin applies folder lifecycle events.
type FolderAdmin interface {
	Apply(ctx context.Context, ev folders.Event) (int64, error)
}

// FoldersHandler serves the folder resources.
type FoldersHandler struct {
	service FolderService
	admin   FolderAdmin
}

// NewFoldersHandler creates a new FoldersHandler.
func NewFoldersHandler(service FolderService, admin FolderAdmin) *FoldersHandler {
	return &FoldersHandler{service: service, admin: admin}
}

// CreateFolderRequest registers a watched folder.
//
// swagger:model CreateFolderRequest
type CreateFolderRequest struct {
	Name       string `json:"name"`
	RootPath   string `json:"root_path"`
	ProviderID string `json:"provider_id"`
}

// SetProviderRequest rebinds a folder to another embedding provider.
//
// swagger:model SetProviderRequest
type SetProviderRequest struct {
	ProviderID string `json:"provider_id"`
}

// SyncResponse acknowledges an enqueued sync.
//
// swagger:model SyncResponse
type SyncResponse struct {
	FolderID int64       `json:"folder_id"`
	Mode     syncer.Mode `json:"mode"`
	Status   string      `json:"status"`
}

// FolderListResponse lists every folder.
//
// swagger:model FolderListResponse
type FolderListResponse struct {
	Folders []syncer.Status `json:"folders"`
}

// List handles GET /api/folders.
func (h *FoldersHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: h.service.List(r.Context())})
}

// Create handles POST /api/folders.
//
// swagger:route POST /api/folders createFolder
//
// Registers a folder and starts its initial sync. Registering an existing
// name reconciles it with the request.
func (h *FoldersHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateFolderRequest
	if err := decode(r, &req); err != nil {
		writeAppError(ctx, w, err)
		return
	}

	id, err := h.admin.Apply(ctx, folders.FolderCreated{Spec: syncer.FolderSpec{
		Name:       req.Name,
		RootPath:   req.RootPath,
		ProviderID: req.ProviderID,
	}})
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	h.writeStatus(ctx, w, id, http.StatusCreated)
}

// Status handles GET /api/folders/{id}/status.
func (h *FoldersHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := folderID(r)
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	h.writeStatus(ctx, w, id, http.StatusOK)
}

func (h *FoldersHandler) writeStatus(ctx context.Context, w http.ResponseWriter, id int64, code int) {
	st, err := h.service.Status(ctx, id)
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	writeJSON(w, code, st)
}

// Stats handles GET /api/folders/{id}/stats.
func (h *FoldersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := folderID(r)
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	stats, err := h.service.Coverage(ctx, id)
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Sync handles POST /api/folders/{id}/sync?mode=full|incremental.
//
// swagger:route POST /api/folders/{id}/sync syncFolder
//
// Enqueues a sync cycle and returns 202 without waiting for it.
func (h *FoldersHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := folderID(r)
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	mode, err := syncer.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	if err := h.service.Sync(ctx, id, mode); err != nil {
		writeAppError(ctx, w, err)
		return
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "sync requested", "folder_id", id, "mode", mode)
	writeJSON(w, http.StatusAccepted, SyncResponse{FolderID: id, Mode: mode, Status: "accepted"})
}

// SetProvider handles PUT /api/folders/{id}/provider. The folder reports
// not ready until the rebuild under the new provider completes.
func (h *FoldersHandler) SetProvider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := folderID(r)
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	var req SetProviderRequest
	if err := decode(r, &req); err != nil {
		writeAppError(ctx, w, err)
		return
	}
	if _, err := h.admin.Apply(ctx, folders.ProviderChanged{ID: id, ProviderID: req.ProviderID}); err != nil {
		writeAppError(ctx, w, err)
		return
	}
	h.writeStatus(ctx, w, id, http.StatusAccepted)
}

// Delete handles DELETE /api/folders/{id}.
func (h *FoldersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := folderID(r)
	if err != nil {
		writeAppError(ctx, w, err)
		return
	}
	if _, err := h.admin.Apply(ctx, folders.FolderDeleted{ID: id}); err != nil {
		writeAppError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
