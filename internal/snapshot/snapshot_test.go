package snapshot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CHRISHLOH/tmdb-etl/internal/ratelimit"
	"github.com/CHRISHLOH/tmdb-etl/internal/testutil"
)

type fakeMirror struct {
	files map[string][]byte
	puts  []string
}

func (m *fakeMirror) Get(_ context.Context, name, dst string) (bool, error) {
	data, ok := m.files[name]
	if !ok {
		return false, nil
	}
	return true, os.WriteFile(dst, data, 0644)
}

func (m *fakeMirror) Put(_ context.Context, name, src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	m.files[name] = data
	m.puts = append(m.puts, name)
	return nil
}

func newServer(t *testing.T, hits *atomic.Int32, files map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, ok := files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFileName(t *testing.T) {
	date := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "movie_ids_05_03_2024.json.gz", FileName(KindMovie, date))
	assert.Equal(t, "tv_series_ids_05_03_2024.json.gz", FileName(KindTVSeries, date))
}

func TestFetchDownloadsAndReuses(t *testing.T) {
	env := testutil.NewTestEnv(t)
	var hits atomic.Int32
	server := newServer(t, &hits, map[string]string{"/movie_ids_01_02_2024.json.gz": "payload"})

	d := NewDownloader(server.URL, env.Path("data"), WithHTTPClient(server.Client()), WithLimiter(nil))

	path, err := d.Fetch(context.Background(), "movie_ids_01_02_2024.json.gz")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = d.Fetch(context.Background(), "movie_ids_01_02_2024.json.gz")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second fetch must reuse the local file")

	leftovers, err := filepath.Glob(filepath.Join(env.Path("data"), "*.part"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetchNotPublished(t *testing.T) {
	env := testutil.NewTestEnv(t)
	var hits atomic.Int32
	server := newServer(t, &hits, nil)

	d := NewDownloader(server.URL, env.Path("data"), WithHTTPClient(server.Client()), WithLimiter(nil))

	_, err := d.Fetch(context.Background(), "movie_ids_01_02_2024.json.gz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotPublished))
	assert.False(t, env.FileExists("data/movie_ids_01_02_2024.json.gz"))
}

func TestFetchUnexpectedStatus(t *testing.T) {
	env := testutil.NewTestEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewDownloader(server.URL, env.Path("data"), WithHTTPClient(server.Client()), WithLimiter(nil))
	_, err := d.Fetch(context.Background(), "x.json.gz")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotPublished))
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestFetchUsesMirror(t *testing.T) {
	env := testutil.NewTestEnv(t)
	var hits atomic.Int32
	server := newServer(t, &hits, map[string]string{"/fresh.json.gz": "fresh"})
	mirror := &fakeMirror{files: map[string][]byte{"cached.json.gz": []byte("mirrored")}}

	d := NewDownloader(server.URL, env.Path("data"), WithHTTPClient(server.Client()), WithLimiter(nil), WithMirror(mirror))

	path, err := d.Fetch(context.Background(), "cached.json.gz")
	require.NoError(t, err)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "mirrored", string(data))
	assert.Equal(t, int32(0), hits.Load())

	_, err = d.Fetch(context.Background(), "fresh.json.gz")
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh.json.gz"}, mirror.puts)
}

func TestFetchHonoursLimiterContext(t *testing.T) {
	env := testutil.NewTestEnv(t)
	d := NewDownloader("http://example.test", env.Path("data"), WithLimiter(ratelimit.NewEvery("test", time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Fetch(ctx, "x.json.gz")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMinioMirrorValidation(t *testing.T) {
	_, err := NewMinioMirror(MinioConfig{Bucket: "b"})
	assert.Error(t, err)
	_, err = NewMinioMirror(MinioConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	m, err := NewMinioMirror(MinioConfig{Endpoint: "http://localhost:9000", Bucket: "exports", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "tmdb-exports/movie_ids_01_02_2024.json.gz", m.key("movie_ids_01_02_2024.json.gz"))
}
