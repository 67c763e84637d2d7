package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"image-indexer/internal/metadata"
)

// writeTestPNG writes a small solid-color PNG and returns its path and
// content hash.
func writeTestPNG(t *testing.T, dir, name string, c color.Color, w, h int) (string, string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(data)
	return path, hex.EncodeToString(sum[:])
}

func runProcessor(t *testing.T, p *Processor, paths ...string) []metadata.ImageMetadata {
	t.Helper()

	in := make(chan string, len(paths))
	for _, path := range paths {
		in <- path
	}
	close(in)

	out := make(chan metadata.ImageMetadata, len(paths))
	p.Run(context.Background(), in, out)

	var records []metadata.ImageMetadata
	for meta := range out {
		records = append(records, meta)
	}
	return records
}

func TestProcessImage(t *testing.T) {
	srcDir := t.TempDir()
	thumbDir := t.TempDir()
	path, wantHash := writeTestPNG(t, srcDir, "red.png", color.RGBA{R: 255, A: 255}, 40, 30)

	records := runProcessor(t, New(thumbDir, 2), path)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	got := records[0]
	if got.FilePath != path {
		t.Errorf("FilePath = %q, want %q", got.FilePath, path)
	}
	if got.FileHash != wantHash {
		t.Errorf("FileHash = %q, want %q", got.FileHash, wantHash)
	}
	if got.Width != 40 || got.Height != 30 {
		t.Errorf("dimensions = %dx%d, want 40x30", got.Width, got.Height)
	}
	if len(got.DuplicatePaths) != 0 {
		t.Errorf("DuplicatePaths = %v, want empty", got.DuplicatePaths)
	}

	wantThumb := filepath.Join(thumbDir, wantHash+".jpg")
	if got.ThumbnailPath != wantThumb {
		t.Errorf("ThumbnailPath = %q, want %q", got.ThumbnailPath, wantThumb)
	}
	if _, err := os.Stat(wantThumb); err != nil {
		t.Errorf("thumbnail not written: %v", err)
	}
}

func TestThumbnailDeterminism(t *testing.T) {
	srcDir := t.TempDir()
	thumbDir := t.TempDir()
	path, _ := writeTestPNG(t, srcDir, "pic.png", color.RGBA{G: 255, A: 255}, 20, 20)

	first := runProcessor(t, New(thumbDir, 1), path)
	second := runProcessor(t, New(thumbDir, 1), path)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("got %d and %d records, want 1 each", len(first), len(second))
	}
	if first[0].ThumbnailPath != second[0].ThumbnailPath {
		t.Errorf("thumbnail path changed across runs: %q vs %q",
			first[0].ThumbnailPath, second[0].ThumbnailPath)
	}
}

func TestIdenticalContentSharesThumbnail(t *testing.T) {
	srcDir := t.TempDir()
	thumbDir := t.TempDir()
	a, hashA := writeTestPNG(t, srcDir, "a.png", color.RGBA{B: 255, A: 255}, 16, 16)

	// Byte-identical copy at a second path.
	data, err := os.ReadFile(a)
	if err != nil {
		t.Fatal(err)
	}
	b := filepath.Join(srcDir, "b.png")
	if err := os.WriteFile(b, data, 0o644); err != nil {
		t.Fatal(err)
	}

	records := runProcessor(t, New(thumbDir, 2), a, b)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.FileHash != hashA {
			t.Errorf("FileHash = %q, want %q", r.FileHash, hashA)
		}
		if r.ThumbnailPath != filepath.Join(thumbDir, hashA+".jpg") {
			t.Errorf("ThumbnailPath = %q, want shared hash-derived path", r.ThumbnailPath)
		}
	}
}

func TestUndecodableFileSkipped(t *testing.T) {
	srcDir := t.TempDir()
	thumbDir := t.TempDir()

	bogus := filepath.Join(srcDir, "broken.jpg")
	if err := os.WriteFile(bogus, []byte("this is not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	good, _ := writeTestPNG(t, srcDir, "good.png", color.RGBA{A: 255}, 8, 8)

	// The broken file must not prevent the good one from being processed.
	records := runProcessor(t, New(thumbDir, 2), bogus, good)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].FilePath != good {
		t.Errorf("FilePath = %q, want %q", records[0].FilePath, good)
	}
}

func TestMissingFileSkipped(t *testing.T) {
	records := runProcessor(t, New(t.TempDir(), 1), "/does/not/exist.jpg")
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestSkipHashes(t *testing.T) {
	srcDir := t.TempDir()
	thumbDir := t.TempDir()
	path, hash := writeTestPNG(t, srcDir, "known.png", color.RGBA{R: 1, A: 255}, 8, 8)

	p := New(thumbDir, 1)
	p.SetSkipHashes(map[string]struct{}{hash: {}})

	records := runProcessor(t, p, path)
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0 for already-indexed hash", len(records))
	}
	// Skipped before thumbnail generation.
	if _, err := os.Stat(filepath.Join(thumbDir, hash+".jpg")); err == nil {
		t.Error("thumbnail generated for skipped file")
	}
}
