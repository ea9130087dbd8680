// Package uploads stores profile pictures on the local filesystem. Files
// are validated (MIME type, magic bytes, size), downscaled when large, and
// written under a date-based directory. Only the resulting relative URL is
// persisted on the user record; the files themselves are served by the
// static /images route.
package uploads

// SaveInput holds the validated input for storing a picture.
type SaveInput struct {
	OriginalName string
	MimeType     string
	FileBytes    []byte
}

// AllowedMimeTypes defines which MIME types are accepted for upload.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MimeToExtension maps MIME types to file extensions.
var MimeToExtension = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}
