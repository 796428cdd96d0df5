// Package snapshot downloads the daily ID export files and keeps them in a
// local directory, optionally mirrored to an S3-compatible bucket.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/CHRISHLOH/tmdb-etl/internal/fileutil"
	"github.com/CHRISHLOH/tmdb-etl/internal/ratelimit"
)

// ErrNotPublished means no export exists for the requested date.
var ErrNotPublished = errors.New("export not published")

// Export kinds as they appear in file names.
const (
	KindMovie    = "movie"
	KindTVSeries = "tv_series"
	KindPerson   = "person"
)

// FileName returns the export file name for kind on date,
// e.g. movie_ids_05_15_2024.json.gz.
func FileName(kind string, date time.Time) string {
	return fmt.Sprintf("%s_ids_%s.json.gz", kind, date.Format("01_02_2006"))
}

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Mirror is a secondary store for export files.
type Mirror interface {
	// Get copies name into dst. It returns false when the mirror lacks the file.
	Get(ctx context.Context, name, dst string) (bool, error)
	Put(ctx context.Context, name, src string) error
}

// Downloader fetches export files into a local directory, reusing files that
// are already there.
type Downloader struct {
	baseURL    string
	dir        string
	httpClient HTTPDoer
	limiter    *ratelimit.Limiter
	mirror     Mirror
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(d *Downloader) {
		if c != nil {
			d.httpClient = c
		}
	}
}

// WithLimiter paces requests to the file server.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(d *Downloader) {
		d.limiter = l
	}
}

// WithMirror enables the object store mirror.
func WithMirror(m Mirror) Option {
	return func(d *Downloader) {
		d.mirror = m
	}
}

// NewDownloader creates a downloader for files under baseURL stored in dir.
func NewDownloader(baseURL, dir string, opts ...Option) *Downloader {
	d := &Downloader{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		dir:        dir,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		limiter:    ratelimit.NewEvery("TMDB exports", 500*time.Millisecond),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch returns the local path of the export file name, downloading it when
// it is not already present. ErrNotPublished is returned when the file
// server does not have it.
func (d *Downloader) Fetch(ctx context.Context, name string) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	localPath := filepath.Join(d.dir, name)
	if fileutil.FileExists(localPath) {
		slog.Debug("Export already downloaded, reusing", "path", localPath)
		return localPath, nil
	}

	if d.mirror != nil {
		ok, err := d.mirror.Get(ctx, name, localPath)
		if err != nil {
			slog.Warn("Failed to read export from mirror", "name", name, "error", err)
		} else if ok {
			slog.Info("Restored export from mirror", "path", localPath)
			return localPath, nil
		}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if err := d.download(ctx, name, localPath); err != nil {
		return "", err
	}

	if d.mirror != nil {
		if err := d.mirror.Put(ctx, name, localPath); err != nil {
			slog.Warn("Failed to mirror export", "name", name, "error", err)
		}
	}
	return localPath, nil
}

func (d *Downloader) download(ctx context.Context, name, localPath string) error {
	url := d.baseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download export: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", name, ErrNotPublished)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("unexpected status %d downloading export from %s", resp.StatusCode, url)
	}

	// Write to a temp file so an interrupted download is never reused.
	tmp, err := os.CreateTemp(d.dir, name+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	written, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to write export file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		return fmt.Errorf("failed to move export file into place: %w", err)
	}

	slog.Info("Downloaded export", "path", localPath, "size", humanize.Bytes(uint64(written)))
	return nil
}
