package discovery

import (
	"context"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// DirectConfig configures the Direct strategy.
type DirectConfig struct {
	// Path is the listing endpoint, e.g. tmdb.DiscoverMoviePath or tmdb.PopularPersonPath.
	Path    string
	Target  int
	Filters url.Values
	// MinPopularity drops listing items below the threshold. Zero keeps all.
	MinPopularity float64
}

// Direct reads pages 1..ceil(target/PageSize) of a single listing query.
type Direct struct {
	cfg    DirectConfig
	source PageSource
}

// NewDirect validates cfg and returns a Direct strategy.
func NewDirect(cfg DirectConfig, source PageSource) (*Direct, error) {
	if err := validateTarget(cfg.Target); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		cfg.Path = tmdb.DiscoverMoviePath
	}
	return &Direct{cfg: cfg, source: source}, nil
}

func (d *Direct) Kind() Kind { return KindDirect }

func (d *Direct) sealed() {}

// Discover fetches every needed page concurrently and concatenates the
// results in page order.
func (d *Direct) Discover(ctx context.Context) ([]int64, error) {
	pages := pagesFor(d.cfg.Target)
	results := make([][]tmdb.ListItem, pages)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < pages; i++ {
		page := i + 1
		g.Go(func() error {
			result, ok := d.source.FetchPage(gctx, d.cfg.Path, page, d.cfg.Filters)
			if !ok {
				slog.Debug("Skipping failed listing page", "path", d.cfg.Path, "page", page)
				return nil
			}
			results[page-1] = result.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := NewIDSet()
	ids := make([]int64, 0, d.cfg.Target)
	for _, items := range results {
		for _, item := range items {
			if len(ids) >= d.cfg.Target {
				break
			}
			if item.Popularity < d.cfg.MinPopularity {
				continue
			}
			if seen.Add(item.ID) {
				ids = append(ids, item.ID)
			}
		}
	}

	slog.Info("Direct discovery finished", "path", d.cfg.Path, "pages", pages, "ids", len(ids))
	return ids, nil
}
