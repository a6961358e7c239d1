package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/embedding"
	"docsync-ai/internal/httpjson"
)

type flakyGenerator struct {
	failures int
	err      error
	calls    int
}

func (g *flakyGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.calls <= g.failures {
		return "", g.err
	}
	return "reply to " + prompt, nil
}

func TestWithRetry(t *testing.T) {
	cfg := embedding.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	timeout := fmt.Errorf("%w: timeout", apperr.ErrProvider)

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{name: "succeeds first time", wantCalls: 1},
		{name: "transient failure is retried", failures: 1, err: timeout, wantCalls: 2},
		{name: "budget exhausted", failures: 5, err: timeout, wantCalls: 3, wantErr: true},
		{name: "permanent status stops", failures: 5, err: &httpjson.StatusError{Provider: "openai", Code: http.StatusUnauthorized}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &flakyGenerator{failures: tt.failures, err: tt.err}
			reply, err := WithRetry(inner, cfg).Complete(context.Background(), "hi")

			if inner.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", inner.calls, tt.wantCalls)
			}
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrProvider) {
					t.Errorf("Complete() error = %v, want ErrProvider", err)
				}
				return
			}
			if err != nil || reply != "reply to hi" {
				t.Errorf("Complete() = %q, %v", reply, err)
			}
		})
	}
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inner := &flakyGenerator{failures: 5, err: context.Canceled}

	_, err := WithRetry(inner, embedding.DefaultRetryConfig()).Complete(ctx, "hi")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
	if inner.calls > 1 {
		t.Errorf("calls = %d, want at most 1", inner.calls)
	}
}
