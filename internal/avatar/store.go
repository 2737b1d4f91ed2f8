package avatar

import (
	"context"
	"io"
)

// Store persists a processed avatar and returns the URL clients load it
// from.
type Store interface {
	Put(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error)
}
