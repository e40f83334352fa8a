package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"net/http"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/vbonduro/petalscope/internal/domain"
	"github.com/vbonduro/petalscope/internal/preview"
)

var (
	ErrEmptyImage        = errors.New("image is empty")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// allowedImageTypes is the set of media types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniffing algorithm (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// DetectImageType returns the sniffed media type and true if data is an
// accepted image format, or ("", false) otherwise.
func DetectImageType(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mediaType := http.DetectContentType(data)
	if allowedImageTypes[mediaType] {
		return mediaType, true
	}
	return "", false
}

type Ingestor struct {
	previews preview.Store
	logger   *slog.Logger
}

func NewIngestor(previews preview.Store, logger *slog.Logger) *Ingestor {
	return &Ingestor{previews: previews, logger: logger}
}

// Ingest reads r once and returns the encoded image. The preview is written
// from the same byte slice that becomes Data. Every failure is a read error
// and leaves nothing behind.
func (i *Ingestor) Ingest(ctx context.Context, r io.Reader, declaredType string) (domain.EncodedImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.EncodedImage{}, domain.NewReadError("failed to read image", err)
	}
	if len(data) == 0 {
		return domain.EncodedImage{}, domain.NewReadError("no image data", ErrEmptyImage)
	}

	mediaType, ok := DetectImageType(data)
	if !ok {
		return domain.EncodedImage{}, domain.NewReadError("image type not accepted", ErrUnsupportedFormat)
	}
	if declaredType != "" && declaredType != mediaType {
		i.logger.Debug("declared media type differs from content", "declared", declaredType, "detected", mediaType)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.EncodedImage{}, domain.NewReadError("failed to decode image header", err)
	}

	handle, err := i.previews.Save(ctx, mediaType, bytes.NewReader(data))
	if err != nil {
		return domain.EncodedImage{}, domain.NewReadError("failed to store preview", err)
	}

	i.logger.Info("image ingested",
		"media_type", mediaType,
		"format", format,
		"width", cfg.Width,
		"height", cfg.Height,
		"bytes", len(data),
	)
	return domain.EncodedImage{
		MediaType:     mediaType,
		Data:          data,
		PreviewHandle: handle,
	}, nil
}

// Release drops the preview of an image the session no longer holds.
func (i *Ingestor) Release(ctx context.Context, img domain.EncodedImage) error {
	if img.PreviewHandle == "" {
		return nil
	}
	if err := i.previews.Delete(ctx, img.PreviewHandle); err != nil && !errors.Is(err, preview.ErrNotFound) {
		return err
	}
	return nil
}
