package fetcher

import (
	"bytes"
	"context"
	"io"

	"github.com/klauspost/compress/zip"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrArchiveOpen marks an archive that could not be opened at all.
var ErrArchiveOpen = eris.New("fetcher: cannot open archive")

// EntryHandler processes the fully decompressed bytes of one archive entry.
type EntryHandler func(ctx context.Context, name string, data []byte) error

// StreamOptions tunes StreamZIP.
type StreamOptions struct {
	// StopOn reports whether a handler error must abort iteration. When nil,
	// every handler error is logged and iteration continues.
	StopOn func(err error) bool

	// MaxEntrySize rejects entries larger than this many uncompressed bytes.
	// Zero means no limit.
	MaxEntrySize uint64
}

// StreamResult counts the entries seen by StreamZIP.
type StreamResult struct {
	Matched int
	Failed  int
}

// StreamZIP iterates the archive entries whose names satisfy match, one at a
// time. Each matching entry is decompressed into memory and passed to handle;
// the next entry is not read until handle returns. Handler failures are
// logged and skipped unless opts.StopOn says otherwise.
func StreamZIP(ctx context.Context, path string, match func(name string) bool, handle EntryHandler, opts StreamOptions) (StreamResult, error) {
	log := zap.L().With(zap.String("component", "fetcher.zip"), zap.String("archive", path))

	var res StreamResult

	r, err := zip.OpenReader(path)
	if err != nil {
		return res, eris.Wrapf(ErrArchiveOpen, "%s: %v", path, err)
	}
	defer r.Close() //nolint:errcheck

	log.Info("streaming archive", zap.Int("entries", len(r.File)))

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if f.FileInfo().IsDir() || !match(f.Name) {
			continue
		}
		res.Matched++

		data, err := readEntry(f, opts.MaxEntrySize)
		if err != nil {
			res.Failed++
			log.Warn("skip unreadable entry", zap.String("entry", f.Name), zap.Error(err))
			continue
		}

		if err := handle(ctx, f.Name, data); err != nil {
			if opts.StopOn != nil && opts.StopOn(err) {
				return res, err
			}
			res.Failed++
			log.Warn("entry handler failed", zap.String("entry", f.Name), zap.Error(err))
		}
	}

	return res, nil
}

func readEntry(f *zip.File, maxSize uint64) ([]byte, error) {
	if maxSize > 0 && f.UncompressedSize64 > maxSize {
		return nil, eris.Errorf("zip: entry %s is %d bytes, limit %d", f.Name, f.UncompressedSize64, maxSize)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	buf := bytes.NewBuffer(make([]byte, 0, int(f.UncompressedSize64)))
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, eris.Wrap(err, "zip: read entry")
	}
	return buf.Bytes(), nil
}
