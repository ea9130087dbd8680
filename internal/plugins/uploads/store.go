package uploads

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// Register the WebP decoder.
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/stackhouselabs/taskloop/internal/apperror"
)

// maxPictureDim is the longest edge a stored profile picture may have.
// Larger images are downscaled before writing.
const maxPictureDim = 512

// urlPrefix is the public path the media directory is served under.
const urlPrefix = "/images"

// Store writes profile pictures to disk and hands back their public path.
type Store struct {
	mediaPath string // Root directory for file storage.
	maxSize   int64  // Maximum file size in bytes.
}

// NewStore creates a picture store rooted at mediaPath.
func NewStore(mediaPath string, maxSize int64) *Store {
	return &Store{mediaPath: mediaPath, maxSize: maxSize}
}

// Save validates and stores a picture, returning the relative URL to
// persist (e.g. "/images/avatars/2026/08/<uuid>.jpg").
func (s *Store) Save(input SaveInput) (string, error) {
	if !AllowedMimeTypes[input.MimeType] {
		return "", apperror.NewBadRequest("unsupported file type: " + input.MimeType)
	}

	if int64(len(input.FileBytes)) > s.maxSize {
		return "", apperror.NewBadRequest(fmt.Sprintf("file too large; maximum size is %d MB", s.maxSize/(1024*1024)))
	}

	// The declared Content-Type header is attacker-controlled; check the
	// actual file content against it.
	if !validateMagicBytes(input.FileBytes, input.MimeType) {
		return "", apperror.NewBadRequest("file content does not match declared type")
	}

	data := input.FileBytes
	ext := MimeToExtension[input.MimeType]

	// Downscale oversized images. Animated GIFs are stored as-is; resizing
	// would flatten them to a single frame.
	if input.MimeType != "image/gif" {
		if resized, err := downscale(data, ext); err == nil {
			data = resized
			// WebP has no stdlib encoder, so a resized WebP comes back
			// as JPEG. Name the file accordingly.
			if input.MimeType == "image/webp" {
				ext = ".jpg"
			}
		}
	}

	now := time.Now().UTC()
	relDir := filepath.Join("avatars", now.Format("2006/01"))
	dir := filepath.Join(s.mediaPath, relDir)
	filename := uuid.NewString() + ext

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("creating media directory: %w", err))
	}

	fullPath := filepath.Join(dir, filename)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("writing picture file: %w", err))
	}

	slog.Info("profile picture stored",
		slog.String("file", filename),
		slog.String("mime_type", input.MimeType),
		slog.Int("size", len(data)),
	)

	return urlPrefix + "/" + filepath.ToSlash(filepath.Join(relDir, filename)), nil
}

// downscale resizes an image so its longest edge is at most maxPictureDim.
// Returns an error when the image is already small enough or cannot be
// decoded; callers then keep the original bytes.
func downscale(data []byte, ext string) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxPictureDim && h <= maxPictureDim {
		return nil, fmt.Errorf("image already smaller than %d", maxPictureDim)
	}

	newW, newH := maxPictureDim, maxPictureDim
	if w > h {
		newH = h * maxPictureDim / w
	} else {
		newW = w * maxPictureDim / h
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch ext {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	case ".png":
		err = png.Encode(&buf, dst)
	case ".gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		// WebP has no stdlib encoder; store the downscaled copy as JPEG
		// quality 85 instead.
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding resized image: %w", err)
	}

	return buf.Bytes(), nil
}

// validateMagicBytes checks that the file content's magic bytes match the
// declared MIME type. Prevents uploading arbitrary files with a spoofed
// Content-Type header.
func validateMagicBytes(data []byte, declaredMIME string) bool {
	if len(data) < 4 {
		return false
	}
	switch declaredMIME {
	case "image/jpeg":
		return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
	case "image/png":
		return len(data) >= 8 &&
			data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
			data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A
	case "image/gif":
		return len(data) >= 6 && string(data[:3]) == "GIF"
	case "image/webp":
		return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP"
	default:
		return false
	}
}
