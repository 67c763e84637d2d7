package search

import (
	"context"
	"path/filepath"
	"testing"

	"image-indexer/internal/metadata"
)

func newTestSearcher(t *testing.T) *BleveSearcher {
	t.Helper()

	s, err := NewBleveSearcher(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("NewBleveSearcher() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func testMeta(hash, path string) metadata.ImageMetadata {
	return metadata.ImageMetadata{
		FilePath:       path,
		FileHash:       hash,
		Width:          640,
		Height:         480,
		CameraMake:     "Canon",
		CameraModel:    "EOS R5",
		DateTaken:      "2023:06:15 10:30:00",
		ThumbnailPath:  "/thumbs/" + hash + ".jpg",
		DuplicatePaths: []string{},
	}
}

func mustGet(t *testing.T, s *BleveSearcher, hash string) metadata.ImageMetadata {
	t.Helper()
	meta, err := s.getByHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("getByHash(%q) error = %v", hash, err)
	}
	if meta == nil {
		t.Fatalf("getByHash(%q) = nil, want document", hash)
	}
	return *meta
}

func TestIndexMetadataNewDocument(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	if err := s.IndexMetadata(ctx, testMeta("hash1", "/photos/a.jpg")); err != nil {
		t.Fatalf("IndexMetadata() error = %v", err)
	}

	count, err := s.CountImages(ctx)
	if err != nil {
		t.Fatalf("CountImages() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountImages() = %d, want 1", count)
	}

	got := mustGet(t, s, "hash1")
	if got.FilePath != "/photos/a.jpg" {
		t.Errorf("FilePath = %q, want /photos/a.jpg", got.FilePath)
	}
	if got.Width != 640 || got.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", got.Width, got.Height)
	}
	if got.CameraMake != "Canon" || got.CameraModel != "EOS R5" {
		t.Errorf("camera = %q/%q, want Canon/EOS R5", got.CameraMake, got.CameraModel)
	}
	if len(got.DuplicatePaths) != 0 {
		t.Errorf("DuplicatePaths = %v, want empty", got.DuplicatePaths)
	}
}

func TestIdentityCollapse(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	// Two byte-identical files at different paths share one hash.
	if err := s.IndexMetadata(ctx, testMeta("dup", "/photos/a.jpg")); err != nil {
		t.Fatal(err)
	}
	if err := s.IndexMetadata(ctx, testMeta("dup", "/photos/b.jpg")); err != nil {
		t.Fatal(err)
	}

	count, err := s.CountImages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("CountImages() = %d, want 1 after merging duplicates", count)
	}

	got := mustGet(t, s, "dup")
	if got.FilePath != "/photos/a.jpg" {
		t.Errorf("FilePath = %q, want first-seen path", got.FilePath)
	}
	if len(got.DuplicatePaths) != 1 || got.DuplicatePaths[0] != "/photos/b.jpg" {
		t.Errorf("DuplicatePaths = %v, want [/photos/b.jpg]", got.DuplicatePaths)
	}
}

func TestIdempotentReindex(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.IndexMetadata(ctx, testMeta("h", "/photos/a.jpg")); err != nil {
			t.Fatal(err)
		}
	}
	got := mustGet(t, s, "h")
	if len(got.DuplicatePaths) != 0 {
		t.Errorf("DuplicatePaths = %v after re-indexing primary path, want empty", got.DuplicatePaths)
	}

	// Re-indexing a known duplicate path must not grow the list either.
	for i := 0; i < 3; i++ {
		if err := s.IndexMetadata(ctx, testMeta("h", "/photos/b.jpg")); err != nil {
			t.Fatal(err)
		}
	}
	got = mustGet(t, s, "h")
	if len(got.DuplicatePaths) != 1 {
		t.Errorf("DuplicatePaths = %v, want exactly one entry", got.DuplicatePaths)
	}
	if got.FilePath != "/photos/a.jpg" {
		t.Errorf("FilePath = %q changed by re-indexing", got.FilePath)
	}
}

func TestFirstSeenMetadataWins(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/a.jpg")); err != nil {
		t.Fatal(err)
	}

	second := testMeta("h", "/photos/b.jpg")
	second.CameraMake = "Nikon"
	second.Width = 1
	if err := s.IndexMetadata(ctx, second); err != nil {
		t.Fatal(err)
	}

	got := mustGet(t, s, "h")
	if got.CameraMake != "Canon" {
		t.Errorf("CameraMake = %q, want first-seen value Canon", got.CameraMake)
	}
	if got.Width != 640 {
		t.Errorf("Width = %d, want first-seen value 640", got.Width)
	}
}

func TestSearchImages(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	a := testMeta("hasha", "/photos/beach.jpg")
	b := testMeta("hashb", "/photos/mountain.jpg")
	b.CameraMake = "Sony"
	for _, m := range []metadata.ImageMetadata{a, b} {
		if err := s.IndexMetadata(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	// Empty query matches everything.
	all, err := s.SearchImages(ctx, "")
	if err != nil {
		t.Fatalf("SearchImages(\"\") error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("SearchImages(\"\") returned %d results, want 2", len(all))
	}

	// Camera make is searchable.
	sony, err := s.SearchImages(ctx, "Sony")
	if err != nil {
		t.Fatal(err)
	}
	if len(sony) != 1 || sony[0].FileHash != "hashb" {
		t.Errorf("SearchImages(Sony) = %v, want the Sony record", sony)
	}

	// The full hash is searchable as an exact token.
	byHash, err := s.SearchImages(ctx, "hasha")
	if err != nil {
		t.Fatal(err)
	}
	if len(byHash) != 1 || byHash[0].FileHash != "hasha" {
		t.Errorf("SearchImages(hasha) = %v, want the hasha record", byHash)
	}
}

func TestDeleteDocument(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/a.jpg")); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDocument(ctx, "h"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	count, err := s.CountImages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("CountImages() = %d after delete, want 0", count)
	}

	meta, err := s.getByHash(ctx, "h")
	if err != nil {
		t.Fatal(err)
	}
	if meta != nil {
		t.Errorf("getByHash() = %v after delete, want nil", meta)
	}
}

func TestDeleteMissingIsNoError(t *testing.T) {
	s := newTestSearcher(t)
	if err := s.DeleteDocument(context.Background(), "never-indexed"); err != nil {
		t.Errorf("DeleteDocument(missing) error = %v, want nil", err)
	}
}

func TestUpdateDocument(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/a.jpg")); err != nil {
		t.Fatal(err)
	}
	if err := s.IndexMetadata(ctx, testMeta("h", "/photos/b.jpg")); err != nil {
		t.Fatal(err)
	}

	updated := mustGet(t, s, "h")
	updated.DuplicatePaths = []string{}
	if err := s.UpdateDocument(ctx, updated); err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}

	got := mustGet(t, s, "h")
	if len(got.DuplicatePaths) != 0 {
		t.Errorf("DuplicatePaths = %v after update, want empty", got.DuplicatePaths)
	}
	if got.FilePath != "/photos/a.jpg" {
		t.Errorf("FilePath = %q after update, want unchanged", got.FilePath)
	}

	count, err := s.CountImages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("CountImages() = %d after update, want 1", count)
	}
}

func TestKnownHashes(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	for _, hash := range []string{"h1", "h2", "h3"} {
		if err := s.IndexMetadata(ctx, testMeta(hash, "/photos/"+hash+".jpg")); err != nil {
			t.Fatal(err)
		}
	}

	hashes, err := s.KnownHashes(ctx)
	if err != nil {
		t.Fatalf("KnownHashes() error = %v", err)
	}
	if len(hashes) != 3 {
		t.Fatalf("KnownHashes() returned %d hashes, want 3", len(hashes))
	}
	for _, hash := range []string{"h1", "h2", "h3"} {
		if _, ok := hashes[hash]; !ok {
			t.Errorf("KnownHashes() missing %q", hash)
		}
	}
}

func TestGPSRoundTrip(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	lat, long := 48.8584, 2.2945
	meta := testMeta("gps", "/photos/tower.jpg")
	meta.GPSLatitude = &lat
	meta.GPSLongitude = &long
	if err := s.IndexMetadata(ctx, meta); err != nil {
		t.Fatal(err)
	}

	got := mustGet(t, s, "gps")
	if got.GPSLatitude == nil || *got.GPSLatitude != lat {
		t.Errorf("GPSLatitude = %v, want %v", got.GPSLatitude, lat)
	}
	if got.GPSLongitude == nil || *got.GPSLongitude != long {
		t.Errorf("GPSLongitude = %v, want %v", got.GPSLongitude, long)
	}

	// Records without coordinates stay without them.
	if err := s.IndexMetadata(ctx, testMeta("nogps", "/photos/indoor.jpg")); err != nil {
		t.Fatal(err)
	}
	plain := mustGet(t, s, "nogps")
	if plain.GPSLatitude != nil || plain.GPSLongitude != nil {
		t.Errorf("GPS fields = %v/%v for record without coordinates, want nil",
			plain.GPSLatitude, plain.GPSLongitude)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, err := NewBleveSearcher(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("NewBleveSearcher() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}
