package mediatypes

import (
	"path/filepath"
	"strings"
)

// ImageExtensions maps file extensions to whether they are supported
// image formats. Extensions include the leading dot and are lowercase.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
}

// DefaultAllowedExtensions returns the extension set scanned when the
// configuration does not override it. Entries have no leading dot, to
// match the ALLOWED_EXTENSIONS environment variable format.
func DefaultAllowedExtensions() map[string]bool {
	exts := make(map[string]bool, len(ImageExtensions))
	for ext := range ImageExtensions {
		exts[strings.TrimPrefix(ext, ".")] = true
	}
	return exts
}

// GetMimeType returns the MIME type for a file path based on its
// extension, or "application/octet-stream" when unknown.
func GetMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsImage reports whether the path has a supported image extension.
func IsImage(path string) bool {
	return ImageExtensions[strings.ToLower(filepath.Ext(path))]
}
