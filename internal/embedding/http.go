package embedding

import "docsync-ai/internal/httpjson"

// StatusError is a non-2xx provider response.
type StatusError = httpjson.StatusError
