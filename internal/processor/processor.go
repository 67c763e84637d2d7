package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"image-indexer/internal/logging"
	"image-indexer/internal/metadata"
	"image-indexer/internal/metrics"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp" // webp decode support for imaging.Open
)

const (
	// Thumbnails fit inside this bounding box, aspect preserved.
	thumbnailMaxSize = 256

	// JPEG quality for thumbnail encoding.
	thumbnailQuality = 80
)

// Processor converts file paths into ImageMetadata records using a fixed
// pool of parallel workers.
type Processor struct {
	thumbnailDir string
	numWorkers   int

	// skipHashes contains content hashes already present in the index.
	// Files hashing to one of these are skipped after the hash step.
	skipHashes map[string]struct{}
}

// New creates a Processor writing thumbnails into thumbnailDir with
// numWorkers parallel workers.
func New(thumbnailDir string, numWorkers int) *Processor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Processor{
		thumbnailDir: thumbnailDir,
		numWorkers:   numWorkers,
	}
}

// SetSkipHashes installs the set of already-indexed content hashes for an
// incremental rescan. Files must still be hashed before the skip decision
// can be made; only the metadata and thumbnail work is avoided.
func (p *Processor) SetSkipHashes(hashes map[string]struct{}) {
	p.skipHashes = hashes
}

// Run consumes paths from in until it is closed and emits at most one
// metadata record per path on out. Items are processed independently and
// in parallel; no item's failure affects any other item. Run closes out
// after all workers have finished.
func (p *Processor) Run(ctx context.Context, in <-chan string, out chan<- metadata.ImageMetadata) {
	defer close(out)

	logging.Info("Starting image processing with %d workers", p.numWorkers)

	if err := os.MkdirAll(p.thumbnailDir, 0o755); err != nil {
		logging.Warn("Failed to create thumbnail directory %s: %v", p.thumbnailDir, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < p.numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id, in, out)
		}(i)
	}
	wg.Wait()

	logging.Info("Image processing complete")
}

func (p *Processor) worker(ctx context.Context, id int, in <-chan string, out chan<- metadata.ImageMetadata) {
	logging.Debug("Processor worker %d started", id)

	for path := range in {
		select {
		case <-ctx.Done():
			return
		default:
		}

		meta, err := p.processImage(path)
		if err != nil {
			logging.Warn("Failed to process image %s: %v", path, err)
			metrics.ProcessingErrors.Inc()
			continue
		}
		if meta == nil {
			// Content already indexed; skipped.
			continue
		}

		select {
		case out <- *meta:
			metrics.FilesProcessed.Inc()
		case <-ctx.Done():
			return
		}
	}

	logging.Debug("Processor worker %d finished", id)
}

// processImage runs the per-item pipeline: hash, EXIF, dimensions,
// thumbnail. A nil, nil return means the item was skipped because its
// content hash is already indexed.
func (p *Processor) processImage(path string) (*metadata.ImageMetadata, error) {
	hash, err := hashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hashing: %w", err)
	}
	logging.Debug("Hash for %s: %s", path, hash)

	if _, known := p.skipHashes[hash]; known {
		logging.Debug("Skipping %s: hash %s already indexed", path, hash)
		metrics.FilesSkipped.Inc()
		return nil, nil
	}

	meta := &metadata.ImageMetadata{
		FilePath:       path,
		FileHash:       hash,
		DuplicatePaths: []string{},
	}

	// EXIF is best-effort: fields that cannot be read stay absent.
	extractEXIF(path, meta)

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	bounds := img.Bounds()
	meta.Width = bounds.Dx()
	meta.Height = bounds.Dy()
	logging.Debug("Dimensions for %s: %dx%d", path, meta.Width, meta.Height)

	thumbPath := metadata.ThumbnailPath(p.thumbnailDir, hash)
	thumb := imaging.Fit(img, thumbnailMaxSize, thumbnailMaxSize, imaging.Lanczos)
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, fmt.Errorf("saving thumbnail: %w", err)
	}
	meta.ThumbnailPath = thumbPath
	metrics.ThumbnailsGenerated.Inc()
	logging.Debug("Thumbnail saved to %s", thumbPath)

	return meta, nil
}

// hashFile computes the hex-encoded SHA-256 digest of the file content.
// The file is streamed through the hash in fixed-size chunks, so memory
// use is independent of file size.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
