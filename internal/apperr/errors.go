package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType is returned when no extractor handles a file extension.
	// The file is skipped and logged; it never fails a folder sync.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrRead is returned when a file vanished or was locked while being read.
	// It is transient: the file is retried on the next sync cycle.
	ErrRead = errors.New("read error")
	// ErrProvider is returned when an embedding or generation call failed or timed out.
	ErrProvider = errors.New("provider error")
	// ErrConfig is returned when the provider binding does not match an existing index.
	// It is fatal for the folder until an explicit rebuild.
	ErrConfig = errors.New("configuration error")
	// ErrRootUnavailable is returned when a watched root path is missing or inaccessible.
	ErrRootUnavailable = errors.New("root unavailable")
	// ErrNotReady is returned when a folder has never completed an initial sync.
	ErrNotReady = errors.New("folder not ready")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ValidationError against ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Code returns a stable, machine-readable code for err, or "internal" when
// err does not belong to the taxonomy.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrProvider):
		return "provider_error"
	case errors.Is(err, ErrConfig):
		return "config_error"
	case errors.Is(err, ErrRootUnavailable):
		return "root_unavailable"
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ErrRead):
		return "read_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
