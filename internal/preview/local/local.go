package local

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/petalscope/internal/preview"
)

// Store writes previews as files under a single directory. Handles are bare
// file names.
type Store struct {
	basePath string
}

func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) Save(ctx context.Context, mediaType string, r io.Reader) (string, error) {
	handle := "preview_" + uuid.NewString() + mediaTypeToExt(mediaType)
	filePath := filepath.Join(s.basePath, handle)

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create preview file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close preview after write error", "error", cerr)
		}
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove preview after write error", "error", rerr)
		}
		return "", fmt.Errorf("failed to write preview: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove preview after close error", "error", rerr)
		}
		return "", fmt.Errorf("failed to close preview: %w", err)
	}
	return handle, nil
}

func (s *Store) Open(ctx context.Context, handle string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(handle)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", preview.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open preview: %w", err)
	}
	return f, extToMediaType(filePath), nil
}

func (s *Store) Delete(ctx context.Context, handle string) error {
	filePath, err := s.safeJoin(handle)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return preview.ErrNotFound
		}
		return fmt.Errorf("failed to delete preview: %w", err)
	}
	return nil
}

// safeJoin resolves handle relative to basePath and rejects directory traversal.
func (s *Store) safeJoin(handle string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, handle))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

func mediaTypeToExt(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func extToMediaType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
