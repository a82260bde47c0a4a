package fetcher

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FetchCached downloads url to path unless a file already exists there.
// Cached files are trusted as-is; set refresh to force a new download.
// Reports whether the cached copy was used.
func FetchCached(ctx context.Context, f Fetcher, url, path string, refresh bool) (bool, error) {
	log := zap.L().With(zap.String("component", "fetcher"), zap.String("path", path))

	if !refresh {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			log.Info("using cached archive", zap.Int64("bytes", info.Size()))
			return true, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, eris.Wrapf(err, "fetcher: create cache dir for %s", path)
	}

	log.Info("downloading archive", zap.String("url", url))
	n, err := f.DownloadToFile(ctx, url, path)
	if err != nil {
		return false, eris.Wrapf(err, "fetcher: fetch %s", url)
	}

	log.Info("archive downloaded", zap.Int64("bytes", n))
	return false, nil
}
