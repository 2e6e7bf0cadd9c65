package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

const (
	MaxUploadBytes = 8 << 20
	MaxImageSide   = 1600
	jpegQuality    = 85

	// bounds on the decoded source, checked from the header before decoding
	MaxSourceSide   = 8000
	MaxSourcePixels = 40_000_000
)

var (
	ErrTooLarge         = errors.New("file too large")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrEmptyUpload      = errors.New("empty upload")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PutImage validates an upload by its sniffed content, normalizes it to an
// auto-oriented JPEG no larger than MaxImageSide and stores it under folder.
func PutImage(ctx context.Context, s Storage, r io.Reader, folder string) (PutResult, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return PutResult{}, err
	}
	if len(raw) == 0 {
		return PutResult{}, ErrEmptyUpload
	}
	if len(raw) > MaxUploadBytes {
		return PutResult{}, ErrTooLarge
	}

	mt := mimetype.Detect(raw)
	if !allowedImageTypes[mt.String()] {
		return PutResult{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxSourceSide || cfg.Height > MaxSourceSide ||
		cfg.Width*cfg.Height > MaxSourcePixels {
		return PutResult{}, fmt.Errorf("%w: %dx%d exceeds the allowed dimensions", ErrUnsupportedImage, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	b := img.Bounds()
	if b.Dx() > MaxImageSide || b.Dy() > MaxImageSide {
		img = imaging.Fit(img, MaxImageSide, MaxImageSide, imaging.Lanczos)
		b = img.Bounds()
	}
	// JPEG has no alpha; transparent areas become white instead of black
	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return PutResult{}, err
	}

	return s.Put(ctx, &buf, PutInput{
		Folder:      folder,
		Filename:    "image.jpg",
		ContentType: "image/jpeg",
		Size:        int64(buf.Len()),
	})
}
