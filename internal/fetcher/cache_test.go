package fetcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls   int
	content string
	err     error
}

func (s *stubFetcher) Download(_ context.Context, _ string) (io.ReadCloser, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func (s *stubFetcher) DownloadToFile(_ context.Context, _ string, path string) (int64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.content)), os.WriteFile(path, []byte(s.content), 0o644)
}

func TestFetchCached_DownloadsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "submissions.zip")
	f := &stubFetcher{content: "zip bytes"}

	cached, err := FetchCached(context.Background(), f, "https://example.com/a.zip", path, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, f.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(data))
}

func TestFetchCached_UsesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companyfacts.zip")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	f := &stubFetcher{content: "new"}

	cached, err := FetchCached(context.Background(), f, "https://example.com/a.zip", path, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Zero(t, f.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestFetchCached_RefreshForcesDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companyfacts.zip")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	f := &stubFetcher{content: "new"}

	cached, err := FetchCached(context.Background(), f, "https://example.com/a.zip", path, true)
	require.NoError(t, err)
	assert.False(t, cached)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFetchCached_PropagatesNetworkError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.zip")
	f := &stubFetcher{err: ErrNetwork}

	_, err := FetchCached(context.Background(), f, "https://example.com/a.zip", path, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
}
