package httpjson

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"docsync-ai/internal/apperr"
)

func TestPost(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       error
		wantPermanent bool
	}{
		{name: "ok", status: http.StatusOK, body: `{"value":"x"}`},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: apperr.ErrProvider},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", wantErr: apperr.ErrProvider},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "no", wantErr: apperr.ErrProvider, wantPermanent: true},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: apperr.ErrProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
				}
				if r.Header.Get("X-Key") != "secret" {
					t.Errorf("X-Key = %q", r.Header.Get("X-Key"))
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var out struct {
				Value string `json:"value"`
			}
			err := Post(context.Background(), server.Client(), "test", server.URL, map[string]string{"X-Key": "secret"}, map[string]string{"q": "x"}, &out)

			if tt.wantErr == nil {
				if err != nil || out.Value != "x" {
					t.Fatalf("Post() = %q, %v", out.Value, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Post() error = %v, want %v", err, tt.wantErr)
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.Permanent() != tt.wantPermanent {
				t.Errorf("Permanent() = %v, want %v", statusErr.Permanent(), tt.wantPermanent)
			}
		})
	}
}

func TestPost_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Post(ctx, server.Client(), "test", server.URL, nil, struct{}{}, &struct{}{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Post() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, apperr.ErrProvider) {
		t.Error("a cancelled request is not a provider error")
	}
}
