package uploads

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stackhouselabs/taskloop/internal/apperror"
)

// pngBytes encodes a solid image of the given size as PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func assertBadRequest(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != 400 {
		t.Errorf("expected status 400, got %d", appErr.Code)
	}
}

func TestSave_Success(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, 5*1024*1024)

	url, err := store.Save(SaveInput{
		OriginalName: "avatar.png",
		MimeType:     "image/png",
		FileBytes:    pngBytes(t, 64, 64),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(url, "/images/avatars/") {
		t.Errorf("expected url under /images/avatars/, got %s", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("expected .png extension, got %s", url)
	}

	// The file exists on disk under the media root.
	rel := strings.TrimPrefix(url, "/images/")
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
		t.Errorf("expected stored file on disk: %v", err)
	}
}

func TestSave_DownscalesLargeImage(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, 5*1024*1024)

	url, err := store.Save(SaveInput{
		OriginalName: "big.png",
		MimeType:     "image/png",
		FileBytes:    pngBytes(t, 1600, 800),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rel := strings.TrimPrefix(url, "/images/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding stored file: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > 512 || bounds.Dy() > 512 {
		t.Errorf("expected longest edge <= 512, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	// Aspect ratio is preserved: 1600x800 scales to 512x256.
	if bounds.Dx() != 512 || bounds.Dy() != 256 {
		t.Errorf("expected 512x256, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestSave_UnsupportedMimeType(t *testing.T) {
	store := NewStore(t.TempDir(), 5*1024*1024)

	_, err := store.Save(SaveInput{
		OriginalName: "doc.pdf",
		MimeType:     "application/pdf",
		FileBytes:    []byte("%PDF-1.4"),
	})
	assertBadRequest(t, err)
}

func TestSave_TooLarge(t *testing.T) {
	store := NewStore(t.TempDir(), 128)

	_, err := store.Save(SaveInput{
		OriginalName: "avatar.png",
		MimeType:     "image/png",
		FileBytes:    pngBytes(t, 64, 64),
	})
	assertBadRequest(t, err)
}

func TestSave_SpoofedContentType(t *testing.T) {
	store := NewStore(t.TempDir(), 5*1024*1024)

	// Declared PNG, actual content is not.
	_, err := store.Save(SaveInput{
		OriginalName: "fake.png",
		MimeType:     "image/png",
		FileBytes:    []byte("#!/bin/sh\necho pwned"),
	})
	assertBadRequest(t, err)
}

func TestValidateMagicBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mime string
		want bool
	}{
		{"valid jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg", true},
		{"valid gif", []byte("GIF89a"), "image/gif", true},
		{"valid webp", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...), "image/webp", true},
		{"jpeg declared as png", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x00, 0x00, 0x00}, "image/png", false},
		{"truncated", []byte{0xFF}, "image/jpeg", false},
		{"unknown mime", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/bmp", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateMagicBytes(tt.data, tt.mime); got != tt.want {
				t.Errorf("validateMagicBytes() = %v, want %v", got, tt.want)
			}
		})
	}
}
