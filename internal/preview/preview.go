package preview

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("preview not found")

// Store keeps preview bytes for the image the session currently holds.
type Store interface {
	Save(ctx context.Context, mediaType string, r io.Reader) (handle string, err error)
	Open(ctx context.Context, handle string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, handle string) error
}
