// Package media prepares product images and sends them to the image host.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

var (
	ErrNoFiles           = errors.New("no images selected")
	ErrTooManyFiles      = errors.New("too many images")
	ErrFileTooLarge      = errors.New("image too large")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

const (
	MaxFiles    = 5
	MaxFileSize = 5 << 20
	MaxWidth    = 1200
	jpegQuality = 80
)

// Uploader stores one image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// File is an image as received from the form.
type File struct {
	Name string
	Data []byte
}

// Progress is told how many of total uploads have finished.
type Progress func(done, total int)

// Check applies the count and size limits without touching the network.
func Check(files []File) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	if len(files) > MaxFiles {
		return fmt.Errorf("%d selected, max %d: %w", len(files), MaxFiles, ErrTooManyFiles)
	}
	for _, f := range files {
		if len(f.Data) > MaxFileSize {
			return fmt.Errorf("%s: %w", f.Name, ErrFileTooLarge)
		}
	}
	return nil
}

// UploadAll checks the batch, then prepares and uploads each file in order.
// The first failure stops the batch and no URLs are returned.
func UploadAll(ctx context.Context, up Uploader, files []File, progress Progress) ([]string, error) {
	if err := Check(files); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(files))
	for i, f := range files {
		data, err := Prepare(f.Name, f.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		url, err := up.Upload(ctx, jpegName(f.Name), bytes.NewReader(data))
		if err != nil {
			slog.Error("Image upload failed", "file", f.Name, "error", err)
			return nil, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		urls = append(urls, url)
		if progress != nil {
			progress(i+1, len(files))
		}
	}
	slog.Info("Images uploaded", "count", len(urls))
	return urls, nil
}

// Prepare decodes a PNG or JPEG, scales it down to MaxWidth and re-encodes
// it as JPEG.
func Prepare(name string, data []byte) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		img, err = png.Decode(bytes.NewReader(data))
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func jpegName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + ".jpg"
}
