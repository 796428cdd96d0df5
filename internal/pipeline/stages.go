package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/CHRISHLOH/tmdb-etl/internal/detail"
	"github.com/CHRISHLOH/tmdb-etl/internal/discovery"
	"github.com/CHRISHLOH/tmdb-etl/internal/loader"
	"github.com/CHRISHLOH/tmdb-etl/internal/metrics"
	"github.com/CHRISHLOH/tmdb-etl/internal/store"
	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
	"github.com/CHRISHLOH/tmdb-etl/internal/transform"
)

// errNoMovies means the persons stage was asked to rank credits before
// any movie was loaded.
var errNoMovies = errors.New("no movies loaded; run the movies stage first")

func (r *Runner) fetcher(loadEpisodes bool) *detail.Fetcher {
	return detail.NewFetcher(r.api,
		detail.WithWorkers(r.workers),
		detail.WithEpisodeTranslations(loadEpisodes),
		detail.WithEstimateRate(r.rps),
		detail.WithProgress(r.progress),
	)
}

func (r *Runner) load(ctx context.Context, plan loader.Plan, result *StageResult) error {
	report, err := loader.New(r.store, r.chunkSize).Load(ctx, plan)
	if err != nil {
		return err
	}
	result.Loaded = report.Loaded()
	result.Dropped = report.Dropped()
	result.Tables = report.Tables
	return nil
}

func (r *Runner) discover(ctx context.Context, media string, strategy discovery.Strategy, result *StageResult) ([]int64, error) {
	ids, err := strategy.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	metrics.DiscoveredIDs.WithLabelValues(media, string(strategy.Kind())).Add(float64(len(ids)))
	result.Discovered = len(ids)
	slog.Info("Discovered IDs", "media", media, "strategy", strategy.Kind(), "ids", humanize.Comma(int64(len(ids))))
	return ids, nil
}

func recordBatch[T any](result *StageResult, batch detail.Batch[T]) {
	result.Fetched = len(batch.Items)
	result.NotFound = batch.NotFound
	result.Failed = batch.Failed
	if batch.Failed > 0 {
		slog.Warn("Dropped failed fetches", "stage", result.Stage, "failed", batch.Failed, "not_found", batch.NotFound)
	}
}

// dictionaries loads genres, countries, languages and careers. Countries
// and languages fall back to what the transform can build without them.
func (r *Runner) dictionaries(ctx context.Context, result *StageResult) error {
	byLocale := make(map[string][]tmdb.Genre, len(r.locales))
	for _, locale := range r.locales {
		for _, media := range []tmdb.MediaType{tmdb.MediaMovie, tmdb.MediaTV} {
			genres, err := r.api.Genres(ctx, media, locale)
			if err != nil {
				return fmt.Errorf("failed to fetch %s genres (%s): %w", media, locale, err)
			}
			byLocale[locale] = append(byLocale[locale], genres...)
		}
	}

	countries, err := r.api.Countries(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("Using built-in countries", "error", err)
	}
	languages, err := r.api.Languages(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("Skipping languages", "error", err)
	}

	rows := transform.DictionaryRows{
		Genres:    transform.Genres(byLocale),
		Countries: transform.Countries(countries),
		Languages: transform.Languages(languages),
		Careers:   transform.Careers(),
	}
	result.Fetched = len(rows.Genres) + len(rows.Countries) + len(rows.Languages) + len(rows.Careers)
	return r.load(ctx, loader.DictionaryPlan(rows), result)
}

func (r *Runner) transformer(ctx context.Context) (*transform.Transformer, error) {
	refs, err := store.LoadReferenceMaps(ctx, r.store)
	if err != nil {
		return nil, err
	}
	if len(refs.Genres) == 0 {
		slog.Warn("Reference tables are empty; run the dictionaries stage first")
	}
	return transform.New(refs, r.locales), nil
}

func (r *Runner) movies(ctx context.Context, strategy discovery.Strategy, result *StageResult) error {
	tr, err := r.transformer(ctx)
	if err != nil {
		return err
	}
	ids, err := r.discover(ctx, "movie", strategy, result)
	if err != nil || len(ids) == 0 {
		return err
	}

	est := detail.EstimateMovies(len(ids), r.rps)
	slog.Info("Fetching movie details",
		"ids", humanize.Comma(int64(len(ids))),
		"requests", humanize.Comma(est.Requests),
		"estimate", est.Duration.Round(time.Second),
	)
	batch, err := r.fetcher(false).Movies(ctx, ids)
	if err != nil {
		return err
	}
	recordBatch(result, batch)

	return r.load(ctx, loader.MoviePlan(tr.Movies(batch.Items)), result)
}

func (r *Runner) series(ctx context.Context, strategy discovery.Strategy, loadEpisodes bool, result *StageResult) error {
	tr, err := r.transformer(ctx)
	if err != nil {
		return err
	}
	ids, err := r.discover(ctx, "tv", strategy, result)
	if err != nil || len(ids) == 0 {
		return err
	}

	batch, err := r.fetcher(loadEpisodes).Series(ctx, ids)
	if err != nil {
		return err
	}
	recordBatch(result, batch)

	return r.load(ctx, loader.SeriesPlan(tr.Series(batch.Items)), result)
}

func (r *Runner) persons(ctx context.Context, opts Options, strategy discovery.Strategy, result *StageResult) error {
	tr, err := r.transformer(ctx)
	if err != nil {
		return err
	}

	var ids []int64
	if opts.PersonsSource == PersonsFromContent {
		movieIDs, err := store.ContentIDs(ctx, r.store, transform.ContentMovie, detail.MaxCreditSources)
		if err != nil {
			return err
		}
		if len(movieIDs) == 0 {
			return errNoMovies
		}
		if ids, err = r.fetcher(false).Credits(ctx, movieIDs, opts.TargetCount); err != nil {
			return err
		}
		metrics.DiscoveredIDs.WithLabelValues("person", "credits").Add(float64(len(ids)))
		result.Discovered = len(ids)
	} else {
		if ids, err = r.discover(ctx, "person", strategy, result); err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return nil
	}

	batch, err := r.fetcher(false).Persons(ctx, ids)
	if err != nil {
		return err
	}
	recordBatch(result, batch)

	return r.load(ctx, loader.PersonPlan(tr.Persons(batch.Items)), result)
}
