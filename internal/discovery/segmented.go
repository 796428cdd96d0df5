package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	etlerrors "github.com/CHRISHLOH/tmdb-etl/internal/errors"
	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// SegmentedConfig configures the Segmented strategy.
type SegmentedConfig struct {
	Media    tmdb.MediaType
	Target   int
	YearFrom int
	YearTo   int
	Filters  url.Values
}

// Segmented partitions the listing by release year, newest first, so the
// per-query page ceiling applies to each year instead of the whole run.
type Segmented struct {
	cfg    SegmentedConfig
	source PageSource
}

// NewSegmented validates cfg and returns a Segmented strategy.
func NewSegmented(cfg SegmentedConfig, source PageSource) (*Segmented, error) {
	if err := validateTarget(cfg.Target); err != nil {
		return nil, err
	}
	if !cfg.Media.Valid() {
		return nil, etlerrors.NewConfigurationError("media", fmt.Sprintf("unknown media type %q", cfg.Media))
	}
	if cfg.YearFrom <= 0 || cfg.YearTo <= 0 || cfg.YearFrom > cfg.YearTo {
		return nil, etlerrors.NewConfigurationError("year-range",
			fmt.Sprintf("year-from %d must not be after year-to %d", cfg.YearFrom, cfg.YearTo))
	}
	return &Segmented{cfg: cfg, source: source}, nil
}

func (s *Segmented) Kind() Kind { return KindSegmented }

func (s *Segmented) sealed() {}

// yearKey returns the discover parameter that pins a release year.
func yearKey(media tmdb.MediaType) string {
	if media == tmdb.MediaTV {
		return "first_air_date_year"
	}
	return "primary_release_year"
}

// partition tracks one year's progress across passes.
type partition struct {
	year       int
	totalPages int // -1 until page 1 has been read
	nextPage   int
	// pending holds items fetched but not yet consumed.
	pending []tmdb.ListItem
}

func (p *partition) exhausted() bool {
	return p.totalPages >= 0 && p.nextPage > p.totalPages && len(p.pending) == 0
}

// Discover walks the years newest first. Each year first gets a fair share
// of the remaining target; years that came up short leave budget that a
// top-up pass hands back to the years that still have pages.
func (s *Segmented) Discover(ctx context.Context) ([]int64, error) {
	parts := make([]*partition, 0, s.cfg.YearTo-s.cfg.YearFrom+1)
	for year := s.cfg.YearTo; year >= s.cfg.YearFrom; year-- {
		parts = append(parts, &partition{year: year, totalPages: -1, nextPage: 1})
	}

	seen := NewIDSet()
	ids := make([]int64, 0, s.cfg.Target)

	for i, p := range parts {
		remaining := s.cfg.Target - len(ids)
		if remaining <= 0 {
			break
		}
		share := (remaining + len(parts) - i - 1) / (len(parts) - i)
		taken, err := s.take(ctx, p, share, seen)
		if err != nil {
			return nil, err
		}
		ids = append(ids, taken...)
		slog.Debug("Partition processed", "year", p.year, "share", share, "taken", len(taken))
	}

	for len(ids) < s.cfg.Target {
		progress := false
		for _, p := range parts {
			remaining := s.cfg.Target - len(ids)
			if remaining <= 0 {
				break
			}
			if p.exhausted() {
				continue
			}
			taken, err := s.take(ctx, p, remaining, seen)
			if err != nil {
				return nil, err
			}
			if len(taken) > 0 {
				progress = true
				ids = append(ids, taken...)
				slog.Debug("Partition topped up", "year", p.year, "taken", len(taken))
			}
		}
		if !progress {
			break
		}
	}

	if len(ids) > s.cfg.Target {
		ids = ids[:s.cfg.Target]
	}
	slog.Info("Segmented discovery finished",
		"media", s.cfg.Media,
		"years", len(parts),
		"ids", len(ids),
		"target", s.cfg.Target)
	return ids, nil
}

// take consumes up to want new IDs from p, fetching further pages as needed.
// Items beyond want stay pending for a later pass.
func (s *Segmented) take(ctx context.Context, p *partition, want int, seen *IDSet) ([]int64, error) {
	var taken []int64
	consume := func() {
		i := 0
		for ; i < len(p.pending) && len(taken) < want; i++ {
			if id := p.pending[i].ID; seen.Add(id) {
				taken = append(taken, id)
			}
		}
		p.pending = p.pending[i:]
	}

	if p.totalPages < 0 {
		first, ok := s.source.FetchPage(ctx, tmdb.DiscoverPath(s.cfg.Media), 1, s.filters(p.year))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.nextPage = 2
		if !ok {
			slog.Warn("Skipping year, first page failed", "year", p.year)
			p.totalPages = 0
			return nil, nil
		}
		p.totalPages = first.TotalPages
		p.pending = append(p.pending, first.Items...)
	}

	consume()
	for len(taken) < want && p.nextPage <= p.totalPages {
		count := pagesFor(want - len(taken))
		if last := p.nextPage + count - 1; last > p.totalPages {
			count = p.totalPages - p.nextPage + 1
		}
		items, err := s.fetchPages(ctx, p.year, p.nextPage, count)
		if err != nil {
			return nil, err
		}
		p.nextPage += count
		p.pending = append(p.pending, items...)
		consume()
	}
	return taken, nil
}

// fetchPages fetches count pages starting at from concurrently and returns
// their items in page order. Failed pages are skipped.
func (s *Segmented) fetchPages(ctx context.Context, year, from, count int) ([]tmdb.ListItem, error) {
	results := make([][]tmdb.ListItem, count)
	filters := s.filters(year)
	path := tmdb.DiscoverPath(s.cfg.Media)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		page := from + i
		g.Go(func() error {
			result, ok := s.source.FetchPage(gctx, path, page, filters)
			if ok {
				results[i] = result.Items
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []tmdb.ListItem
	for _, r := range results {
		items = append(items, r...)
	}
	return items, nil
}

func (s *Segmented) filters(year int) url.Values {
	filters := url.Values{}
	for k, v := range s.cfg.Filters {
		filters[k] = append([]string(nil), v...)
	}
	filters.Set(yearKey(s.cfg.Media), strconv.Itoa(year))
	return filters
}
