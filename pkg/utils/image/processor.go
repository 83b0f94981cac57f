package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
)

const (
	MaxImageSize = 10 * 1024 * 1024 // 10MB
)

var ErrInvalidImageData = errors.New("upload a valid image. The file you uploaded was either not an image or a corrupted image")

var (
	AllowedImageTypes = map[string]string{
		"jpeg": "image/jpeg",
		"png":  "image/png",
		"gif":  "image/gif",
		"webp": "image/webp",
	}

	extensions = map[string]string{
		"jpeg": ".jpg",
		"png":  ".png",
		"gif":  ".gif",
		"webp": ".webp",
	}
)

// Decoded is a verified image payload ready to be written to blob storage.
type Decoded struct {
	Data        []byte
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Ext returns the file extension for the detected format.
func (d *Decoded) Ext() string {
	return extensions[d.Format]
}

// ProcessBytes verifies that data holds a supported image and detects its
// format from the content, not the filename.
func ProcessBytes(data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidImageData)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: file size exceeds limit of 10MB", ErrInvalidImageData)
	}

	var (
		cfg    image.Config
		format string
		err    error
	)
	if isWebP(data) {
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
		format = "webp"
	} else {
		cfg, format, err = image.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageData, err)
	}

	contentType, ok := AllowedImageTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image format: %s", ErrInvalidImageData, format)
	}

	return &Decoded{
		Data:        data,
		Format:      format,
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// ProcessBase64 decodes a base64 image, optionally prefixed with a
// "data:image/...;base64," header. Missing padding is tolerated.
func ProcessBase64(encoded string) (*Decoded, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ",")
		if i == -1 || !strings.Contains(payload[:i], ";base64") {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidImageData)
		}
		payload = payload[i+1:]
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	payload = strings.TrimRight(payload, "=")

	data, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawURLEncoding.DecodeString(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 encoding", ErrInvalidImageData)
	}
	return ProcessBytes(data)
}

// ProcessImage reads and verifies a multipart upload.
func ProcessImage(file *multipart.FileHeader) (*Decoded, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: no file provided", ErrInvalidImageData)
	}
	if file.Size > MaxImageSize {
		return nil, fmt.Errorf("%w: file size exceeds limit of 10MB", ErrInvalidImageData)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("could not read file: %w", err)
	}
	return ProcessBytes(data)
}

// UniqueFilename builds a dated, collision-free object key that keeps the
// detected extension, e.g. ads/2024/05/01/<uuid>.png.
func UniqueFilename(prefix string, d *Decoded, now time.Time) string {
	return path.Join(prefix, now.Format("2006/01/02"), uuid.NewString()+d.Ext())
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
