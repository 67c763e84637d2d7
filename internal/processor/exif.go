package processor

import (
	"os"
	"strings"

	"image-indexer/internal/logging"
	"image-indexer/internal/metadata"

	"github.com/rwcarlsen/goexif/exif"
)

// extractEXIF fills the descriptive metadata fields from the file's EXIF
// container. Every field is independent: a field that cannot be parsed is
// left absent, and a file with no EXIF data at all is not an error.
func extractEXIF(path string, meta *metadata.ImageMetadata) {
	f, err := os.Open(path)
	if err != nil {
		logging.Debug("Cannot open %s for EXIF: %v", path, err)
		return
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		logging.Debug("No EXIF data in %s: %v", path, err)
		return
	}

	meta.CameraMake = exifString(x, exif.Make)
	meta.CameraModel = exifString(x, exif.Model)

	if date := exifString(x, exif.DateTimeOriginal); date != "" {
		meta.DateTaken = date
	} else {
		meta.DateTaken = exifString(x, exif.DateTime)
	}

	if lat, long, err := x.LatLong(); err == nil {
		meta.GPSLatitude = &lat
		meta.GPSLongitude = &long
	}
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
