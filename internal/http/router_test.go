package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"docsync-ai/internal/folders"
	handler_mocks "docsync-ai/internal/handlers/mocks"
	"docsync-ai/internal/rag"
	rag_mocks "docsync-ai/internal/rag/mocks"
	"docsync-ai/internal/syncer"
	vs_mocks "docsync-ai/internal/vectorstore/mocks"
)

type routerMocks struct {
	folders   *handler_mocks.MockFolderService
	admin     *handler_mocks.MockFolderAdmin
	retriever *rag_mocks.MockRetriever
	engine    *rag_mocks.MockEngine
	store     *vs_mocks.MockVectorStore
}

func newTestRouter(t *testing.T) (http.Handler, routerMocks) {
	ctrl := gomock.NewController(t)
	m := routerMocks{
		folders:   handler_mocks.NewMockFolderService(ctrl),
		admin:     handler_mocks.NewMockFolderAdmin(ctrl),
		retriever: rag_mocks.NewMockRetriever(ctrl),
		engine:    rag_mocks.NewMockEngine(ctrl),
		store:     vs_mocks.NewMockVectorStore(ctrl),
	}
	router := NewRouter(&Deps{
		Folders:     m.folders,
		Admin:       m.admin,
		Retriever:   m.retriever,
		Engine:      m.engine,
		VectorStore: m.store,
	})
	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
	return router, m
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func(m routerMocks)
		wantStatus int
	}{
		{
			name:   "GET /api/health",
			method: http.MethodGet,
			path:   "/api/health",
			setup: func(m routerMocks) {
				m.store.EXPECT().Ping(gomock.Any()).Return(nil)
				m.folders.EXPECT().List(gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "GET /api/folders",
			method: http.MethodGet,
			path:   "/api/folders",
			setup: func(m routerMocks) {
				m.folders.EXPECT().List(gomock.Any()).Return([]syncer.Status{{FolderID: 1}})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "GET /api/folders/{id}/status",
			method: http.MethodGet,
			path:   "/api/folders/1/status",
			setup: func(m routerMocks) {
				m.folders.EXPECT().Status(gomock.Any(), int64(1)).Return(syncer.Status{FolderID: 1}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "POST /api/folders/{id}/sync",
			method: http.MethodPost,
			path:   "/api/folders/1/sync?mode=full",
			setup: func(m routerMocks) {
				m.folders.EXPECT().Sync(gomock.Any(), int64(1), syncer.ModeFull).Return(nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:   "DELETE /api/folders/{id}",
			method: http.MethodDelete,
			path:   "/api/folders/1",
			setup: func(m routerMocks) {
				m.admin.EXPECT().Apply(gomock.Any(), folders.FolderDeleted{ID: 1}).Return(int64(1), nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:   "POST /api/folders/{id}/retrieve",
			method: http.MethodPost,
			path:   "/api/folders/1/retrieve",
			body:   `{"query":"hello"}`,
			setup: func(m routerMocks) {
				m.retriever.EXPECT().Retrieve(gomock.Any(), int64(1), "hello", 0).Return(rag.RetrievalResult{FolderID: 1}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/folders/{id}/ask with invalid body",
			method:     http.MethodPost,
			path:       "/api/folders/1/ask",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /api/folders/{id}/ask method not allowed",
			method:     http.MethodGet,
			path:       "/api/folders/1/ask",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/chat",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, m := newTestRouter(t)
			if tt.setup != nil {
				tt.setup(m)
			}

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v (body %s)", tt.method, tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	router, m := newTestRouter(t)
	m.folders.EXPECT().List(gomock.Any()).Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/folders", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}
