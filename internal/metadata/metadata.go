package metadata

import "path/filepath"

// ImageMetadata is the unit of indexing: one logical image, identified by
// its content hash. Byte-identical files at different paths collapse into
// a single record, with the first-seen path as FilePath and every later
// path appended to DuplicatePaths.
type ImageMetadata struct {
	// FilePath is the first path at which this content was observed.
	FilePath string `json:"file_path"`
	// FileHash is the SHA-256 digest of the file content, hex encoded.
	// It is the record's identity key and is unique across the store.
	FileHash string `json:"file_hash"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`

	// Descriptive fields are best-effort; absent when the source lacks
	// them or extraction failed.
	CameraMake   string   `json:"camera_make,omitempty"`
	CameraModel  string   `json:"camera_model,omitempty"`
	DateTaken    string   `json:"date_taken,omitempty"`
	GPSLatitude  *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `json:"gps_longitude,omitempty"`

	// ThumbnailPath is derived from FileHash, never from FilePath, so
	// duplicates share one thumbnail.
	ThumbnailPath string `json:"thumbnail_path"`

	// DuplicatePaths lists secondary paths carrying the same content, in
	// discovery order. It never contains FilePath and never contains the
	// same entry twice.
	DuplicatePaths []string `json:"duplicate_paths"`
}

// ThumbnailFileName returns the file name of the thumbnail for a content
// hash. Callers derive thumbnail locations from the hash alone, so this
// naming must not change.
func ThumbnailFileName(hash string) string {
	return hash + ".jpg"
}

// ThumbnailPath returns the full thumbnail path for a content hash within
// the given thumbnail directory.
func ThumbnailPath(thumbnailDir, hash string) string {
	return filepath.Join(thumbnailDir, ThumbnailFileName(hash))
}

// AllPaths returns every filesystem location known to carry this content:
// the primary path followed by the duplicates.
func (m *ImageMetadata) AllPaths() []string {
	paths := make([]string, 0, len(m.DuplicatePaths)+1)
	paths = append(paths, m.FilePath)
	paths = append(paths, m.DuplicatePaths...)
	return paths
}

// HasPath reports whether p is the primary path or a known duplicate.
func (m *ImageMetadata) HasPath(p string) bool {
	if m.FilePath == p {
		return true
	}
	for _, dup := range m.DuplicatePaths {
		if dup == p {
			return true
		}
	}
	return false
}
