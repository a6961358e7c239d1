package embedding

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"docsync-ai/internal/apperr"
)

func TestRetry(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, Multiplier: 2, Jitter: true}
	transient := errors.New("transient")

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", failures: 0, err: transient, wantCalls: 1},
		{name: "recovers", failures: 2, err: transient, wantCalls: 3},
		{name: "exhausted", failures: 10, err: transient, wantCalls: 4, wantErr: true},
		{name: "config error stops", failures: 10, err: apperr.ErrConfig, wantCalls: 1, wantErr: true},
		{name: "permanent status stops", failures: 10, err: &StatusError{Code: http.StatusUnauthorized}, wantCalls: 1, wantErr: true},
		{name: "429 retries", failures: 1, err: &StatusError{Code: http.StatusTooManyRequests}, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Retry(context.Background(), cfg, func() (int, error) {
				calls++
				if calls <= tt.failures {
					return 0, tt.err
				}
				return 42, nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != 42 {
				t.Errorf("Retry() = %d, want 42", got)
			}
			if err != nil && !errors.Is(err, tt.err) {
				t.Errorf("Retry() error = %v, want wrapping %v", err, tt.err)
			}
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}

	calls := 0
	_, err := Retry(ctx, cfg, func() (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil, want: false},
		{err: context.Canceled, want: false},
		{err: context.DeadlineExceeded, want: false},
		{err: apperr.ErrConfig, want: false},
		{err: apperr.ErrProvider, want: true},
		{err: &StatusError{Code: http.StatusServiceUnavailable}, want: true},
		{err: &StatusError{Code: http.StatusRequestTimeout}, want: true},
		{err: &StatusError{Code: http.StatusForbidden}, want: false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
