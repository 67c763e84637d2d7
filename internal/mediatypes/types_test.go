package mediatypes

import "testing"

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"photo.jpg", "image/jpeg"},
		{"photo.JPEG", "image/jpeg"},
		{"/some/dir/pic.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"scan.tiff", "image/tiff"},
		{"unknown.xyz", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := GetMimeType(tt.path); got != tt.want {
			t.Errorf("GetMimeType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestIsImage(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.jpg", true},
		{"a.WEBP", true},
		{"a.mp4", false},
		{"a", false},
	}

	for _, tt := range tests {
		if got := IsImage(tt.path); got != tt.want {
			t.Errorf("IsImage(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDefaultAllowedExtensions(t *testing.T) {
	exts := DefaultAllowedExtensions()
	if len(exts) != len(ImageExtensions) {
		t.Fatalf("got %d extensions, want %d", len(exts), len(ImageExtensions))
	}
	for _, ext := range []string{"jpg", "png", "webp"} {
		if !exts[ext] {
			t.Errorf("DefaultAllowedExtensions() missing %q", ext)
		}
	}
	if exts[".jpg"] {
		t.Error("DefaultAllowedExtensions() entries should not carry a leading dot")
	}
}
