package walker

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"image-indexer/internal/logging"
	"image-indexer/internal/metrics"
)

// Walk traverses the tree rooted at root and sends the path of every
// regular file whose extension (without the leading dot, lowercased) is
// in allowedExts to out. Traversal order is unspecified. Per-entry errors
// are logged and the entry skipped; they never abort the traversal.
//
// Walk closes out before returning, signalling downstream stages that no
// more input will arrive.
func Walk(ctx context.Context, root string, allowedExts map[string]bool, out chan<- string) error {
	defer close(out)

	logging.Info("Starting file discovery in %s", root)
	logging.Debug("Allowed extensions: %v", allowedExts)

	discovered := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		if d.IsDir() {
			return nil
		}
		// Skip irregular entries (sockets, devices, dangling symlinks)
		if !d.Type().IsRegular() {
			logging.Debug("Skipping non-regular entry: %s", path)
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if ext == "" || !allowedExts[ext] {
			return nil
		}

		select {
		case out <- path:
			discovered++
			metrics.FilesDiscovered.Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil {
		logging.Warn("File discovery stopped early: %v", err)
		return err
	}

	logging.Info("File discovery complete: %d candidate files", discovered)
	return nil
}
