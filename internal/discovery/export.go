package discovery

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	etlerrors "github.com/CHRISHLOH/tmdb-etl/internal/errors"
	"github.com/CHRISHLOH/tmdb-etl/internal/snapshot"
	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// ErrSnapshotUnavailable is returned when no export could be found within
// the lookback window.
var ErrSnapshotUnavailable = errors.New("export snapshot unavailable")

// DefaultLookbackDays is how many daily exports are tried, newest first.
const DefaultLookbackDays = 7

const maxLineSize = 1 << 20

// SnapshotSource resolves an export file name to a local path.
// *snapshot.Downloader implements it.
type SnapshotSource interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// BulkExportConfig configures the BulkExport strategy.
type BulkExportConfig struct {
	Media         tmdb.MediaType
	Target        int
	MinPopularity float64
	IncludeAdult  bool
	IncludeVideo  bool
	LookbackDays  int
	// Now anchors the lookback dates. Defaults to time.Now.
	Now func() time.Time
}

// BulkExport ranks the entries of the newest daily ID export.
type BulkExport struct {
	cfg    BulkExportConfig
	source SnapshotSource
}

// NewBulkExport validates cfg and returns a BulkExport strategy.
func NewBulkExport(cfg BulkExportConfig, source SnapshotSource) (*BulkExport, error) {
	if err := validateTarget(cfg.Target); err != nil {
		return nil, err
	}
	if !cfg.Media.Valid() {
		return nil, etlerrors.NewConfigurationError("media", fmt.Sprintf("unknown media type %q", cfg.Media))
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &BulkExport{cfg: cfg, source: source}, nil
}

func (b *BulkExport) Kind() Kind { return KindBulkExport }

func (b *BulkExport) sealed() {}

func (b *BulkExport) exportKind() string {
	if b.cfg.Media == tmdb.MediaTV {
		return snapshot.KindTVSeries
	}
	return snapshot.KindMovie
}

// Discover locates the newest export, parses it and returns the most popular
// matching IDs.
func (b *BulkExport) Discover(ctx context.Context) ([]int64, error) {
	path, err := b.locate(ctx)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, stats, err := ParseExport(f, b.filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse export %s: %w", path, err)
	}
	if stats.Malformed > 0 {
		slog.Warn("Skipped malformed export lines", "path", path, "count", stats.Malformed)
	}

	ids := RankExport(entries, b.cfg.Target)
	slog.Info("Export discovery finished",
		"path", path,
		"lines", humanize.Comma(int64(stats.Lines)),
		"matched", humanize.Comma(int64(len(entries))),
		"ids", len(ids))
	return ids, nil
}

// locate checks one export per day going back LookbackDays days.
func (b *BulkExport) locate(ctx context.Context) (string, error) {
	now := b.cfg.Now()
	for daysBack := 0; daysBack < b.cfg.LookbackDays; daysBack++ {
		name := snapshot.FileName(b.exportKind(), now.AddDate(0, 0, -daysBack))
		path, err := b.source.Fetch(ctx, name)
		if err == nil {
			return path, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, snapshot.ErrNotPublished) {
			slog.Debug("Export not available", "name", name)
		} else {
			slog.Warn("Failed to fetch export", "name", name, "error", err)
		}
	}
	return "", fmt.Errorf("%w: no %s export in the last %d days", ErrSnapshotUnavailable, b.exportKind(), b.cfg.LookbackDays)
}

func (b *BulkExport) filter(e ExportEntry) bool {
	if e.Adult && !b.cfg.IncludeAdult {
		return false
	}
	if e.Video && !b.cfg.IncludeVideo {
		return false
	}
	return e.Popularity >= b.cfg.MinPopularity
}

// ExportEntry is one line of a daily ID export.
type ExportEntry struct {
	ID         int64   `json:"id"`
	Adult      bool    `json:"adult"`
	Video      bool    `json:"video"`
	Popularity float64 `json:"popularity"`
}

// ExportStats counts what ParseExport saw.
type ExportStats struct {
	Lines     int
	Malformed int
}

// ParseExport streams a gzip-compressed NDJSON export and returns the entries
// accepted by keep. Malformed lines are counted and skipped.
func ParseExport(r io.Reader, keep func(ExportEntry) bool) ([]ExportEntry, ExportStats, error) {
	var stats ExportStats

	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var entries []ExportEntry
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var e ExportEntry
		if err := json.Unmarshal(line, &e); err != nil || e.ID <= 0 {
			stats.Malformed++
			slog.Debug("Malformed export line", "line", stats.Lines, "error", err)
			continue
		}
		if keep == nil || keep(e) {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, err
	}
	return entries, stats, nil
}

// RankExport orders entries by popularity, highest first, and returns up to
// target distinct IDs.
func RankExport(entries []ExportEntry, target int) []int64 {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Popularity != entries[j].Popularity {
			return entries[i].Popularity > entries[j].Popularity
		}
		return entries[i].ID < entries[j].ID
	})

	seen := NewIDSet()
	ids := make([]int64, 0, min(target, len(entries)))
	for _, e := range entries {
		if len(ids) >= target {
			break
		}
		if seen.Add(e.ID) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
