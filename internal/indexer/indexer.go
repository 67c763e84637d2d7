package indexer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"image-indexer/internal/logging"
	"image-indexer/internal/metadata"
	"image-indexer/internal/metrics"
	"image-indexer/internal/processor"
	"image-indexer/internal/search"
	"image-indexer/internal/walker"
)

// channelBuffer bounds the queues between pipeline stages. A slow stage
// blocks its producers instead of letting the queues grow without limit
// on large trees.
const channelBuffer = 256

// Config carries the pipeline parameters, fixed for the process lifetime.
type Config struct {
	// ScanDir is the root of the tree to index.
	ScanDir string
	// ThumbnailDir receives hash-named thumbnails.
	ThumbnailDir string
	// AllowedExtensions holds lowercase extensions without the dot.
	AllowedExtensions map[string]bool
	// NumWorkers sizes the processing pool.
	NumWorkers int
	// Incremental skips files whose content hash is already indexed.
	// Files are still hashed; only metadata extraction, thumbnailing
	// and the merge round trip are avoided.
	Incremental bool
}

// Indexer runs indexing jobs against a shared Searcher.
type Indexer struct {
	searcher search.Searcher
	config   Config

	runMu      sync.Mutex
	isIndexing bool
	cancelRun  context.CancelFunc
	runDone    chan struct{}

	stateMu       sync.Mutex
	lastIndexTime time.Time
	lastDuration  time.Duration
	lastError     error

	documentsIndexed atomic.Int64
	startTime        time.Time
}

// Status is a snapshot of the indexer for the status endpoint.
type Status struct {
	Indexing         bool   `json:"indexing"`
	LastIndexed      string `json:"last_indexed,omitempty"`
	LastRunDuration  string `json:"last_run_duration,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	DocumentsIndexed int64  `json:"documents_indexed"`
	Uptime           string `json:"uptime"`
}

// New creates an Indexer. The searcher is shared with the web layer;
// see the package comment for the write-serialization contract.
func New(searcher search.Searcher, config Config) *Indexer {
	return &Indexer{
		searcher:  searcher,
		config:    config,
		startTime: time.Now(),
	}
}

// Run executes one full indexing job: walk, process, merge. It returns
// nil when the tree has been fully drained, or the first store-level
// error, which aborts the job (records already merged stay committed).
// A Run while another is in progress returns immediately.
func (idx *Indexer) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if !idx.tryStartIndexing(cancel) {
		logging.Info("Indexing already in progress, skipping")
		return nil
	}
	defer idx.finishIndexing()

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)
	metrics.IndexerRunsTotal.Inc()

	startTime := time.Now()
	logging.Info("Starting indexing run for %s", idx.config.ScanDir)

	err := idx.runPipeline(ctx, cancel)

	duration := time.Since(startTime)
	idx.stateMu.Lock()
	idx.lastIndexTime = time.Now()
	idx.lastDuration = duration
	idx.lastError = err
	idx.stateMu.Unlock()

	metrics.IndexerLastRunDuration.Set(duration.Seconds())
	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))

	if err != nil {
		logging.Error("Indexing run failed after %v: %v", duration, err)
		return err
	}
	logging.Info("Indexing run complete in %v", duration)
	return nil
}

func (idx *Indexer) runPipeline(ctx context.Context, cancel context.CancelFunc) error {
	if err := idx.searcher.EnsureIndexExists(ctx); err != nil {
		return fmt.Errorf("ensuring index exists: %w", err)
	}

	proc := processor.New(idx.config.ThumbnailDir, idx.config.NumWorkers)

	if idx.config.Incremental {
		known, err := idx.searcher.KnownHashes(ctx)
		if err != nil {
			// Fall back to a full run: re-merging known content is a
			// no-op, just slower.
			logging.Warn("Could not load known hashes, running full index: %v", err)
		} else {
			logging.Info("Incremental rescan: %d hashes already indexed", len(known))
			proc.SetSkipHashes(known)
		}
	}

	paths := make(chan string, channelBuffer)
	records := make(chan metadata.ImageMetadata, channelBuffer)

	go func() {
		if err := walker.Walk(ctx, idx.config.ScanDir, idx.config.AllowedExtensions, paths); err != nil {
			logging.Error("Walker stopped: %v", err)
		}
	}()
	go proc.Run(ctx, paths, records)

	// Records are applied strictly sequentially; this is what satisfies
	// the backend's single-writer constraint.
	for meta := range records {
		if err := idx.searcher.IndexMetadata(ctx, meta); err != nil {
			// A store fault is fatal to the job, unlike per-item
			// processing faults. Cancel the upstream stages and drain
			// the queue so their goroutines can exit.
			cancel()
			for range records {
			}
			return fmt.Errorf("indexing %s: %w", meta.FilePath, err)
		}
		idx.documentsIndexed.Add(1)
		metrics.DocumentsIndexed.Inc()
	}
	return nil
}

// Trigger starts a Run in the background, for the re-index endpoint.
func (idx *Indexer) Trigger() {
	go func() {
		if err := idx.Run(context.Background()); err != nil {
			logging.Error("Triggered re-index failed: %v", err)
		}
	}()
}

// IsIndexing reports whether a job is currently running.
func (idx *Indexer) IsIndexing() bool {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	return idx.isIndexing
}

// Status returns a snapshot for the status endpoint.
func (idx *Indexer) Status() Status {
	idx.stateMu.Lock()
	lastIndexed := idx.lastIndexTime
	lastDuration := idx.lastDuration
	lastErr := idx.lastError
	idx.stateMu.Unlock()

	status := Status{
		Indexing:         idx.IsIndexing(),
		DocumentsIndexed: idx.documentsIndexed.Load(),
		Uptime:           time.Since(idx.startTime).Round(time.Second).String(),
	}
	if !lastIndexed.IsZero() {
		status.LastIndexed = lastIndexed.Format(time.RFC3339)
		status.LastRunDuration = lastDuration.String()
	}
	if lastErr != nil {
		status.LastError = lastErr.Error()
	}
	return status
}

func (idx *Indexer) tryStartIndexing(cancel context.CancelFunc) bool {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	idx.cancelRun = cancel
	idx.runDone = make(chan struct{})
	return true
}

func (idx *Indexer) finishIndexing() {
	idx.runMu.Lock()
	idx.isIndexing = false
	idx.cancelRun = nil
	done := idx.runDone
	idx.runMu.Unlock()
	close(done)
}

// Stop cancels an in-flight job and blocks until it has wound down.
// Records merged before the cancellation stay committed. Stop on an
// idle indexer returns immediately. After Stop returns, no further
// writes are issued to the backend, so it is safe to close.
func (idx *Indexer) Stop() {
	idx.runMu.Lock()
	running := idx.isIndexing
	cancel := idx.cancelRun
	done := idx.runDone
	idx.runMu.Unlock()

	if !running {
		return
	}
	logging.Info("Stopping in-flight indexing run")
	cancel()
	<-done
}
