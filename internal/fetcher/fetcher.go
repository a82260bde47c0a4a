// Package fetcher downloads and streams the SEC bulk archives.
package fetcher

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
)

// ErrNetwork marks a failed archive download.
var ErrNetwork = eris.New("fetcher: network error")

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
