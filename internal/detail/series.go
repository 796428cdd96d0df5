package detail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

type seasonRef struct {
	series *tmdb.Series
	number int
}

type episodeRef struct {
	seriesID int64
	episode  *tmdb.Episode
}

// Series fetches series details, then one season request per regular
// season for the episode stubs. With episode translations enabled every
// episode gets one more request for its translations.
func (f *Fetcher) Series(ctx context.Context, ids []int64) (Batch[tmdb.Series], error) {
	est := EstimateSeries(len(ids), f.loadEpisodes, f.estimateRate)
	if f.loadEpisodes {
		slog.Warn("Episode translations enabled, this is by far the slowest stage",
			"series", len(ids),
			"requests", humanize.Comma(est.Requests),
			"estimate", est.Duration.Round(time.Second))
	} else {
		slog.Info("Fetching series",
			"series", len(ids),
			"requests", humanize.Comma(est.Requests),
			"estimate", est.Duration.Round(time.Second))
	}

	batch, err := fetchAll[tmdb.Series](ctx, f, "series", ids, tmdb.SeriesRequest)
	if err != nil {
		return batch, err
	}

	if err := f.fetchSeasons(ctx, batch.Items); err != nil {
		return batch, err
	}
	if f.loadEpisodes {
		if err := f.fetchEpisodeTranslations(ctx, batch.Items); err != nil {
			return batch, err
		}
	}
	return batch, nil
}

// fetchSeasons fills Series.Episodes. Season 0 holds specials and is skipped.
func (f *Fetcher) fetchSeasons(ctx context.Context, series []tmdb.Series) error {
	var refs []seasonRef
	for i := range series {
		s := &series[i]
		s.Episodes = make(map[int][]tmdb.Episode)
		for _, season := range s.Seasons {
			if season.SeasonNumber > 0 {
				refs = append(refs, seasonRef{series: s, number: season.SeasonNumber})
			}
		}
	}

	var mu sync.Mutex
	counts, err := f.fanOut(ctx, "season", len(refs), func(ctx context.Context, i int) tmdb.OutcomeKind {
		ref := refs[i]
		var season tmdb.Season
		kind := f.fetchOne(ctx, "season", tmdb.SeasonRequest(ref.series.ID, ref.number), &season)
		if kind == tmdb.OutcomeSuccess {
			mu.Lock()
			ref.series.Episodes[ref.number] = season.Episodes
			mu.Unlock()
		}
		return kind
	})
	if err != nil {
		return err
	}

	slog.Info("Fetched seasons",
		"seasons", counts.succeeded,
		"requested", len(refs),
		"dropped", counts.notFound+counts.failed)
	return nil
}

// fetchEpisodeTranslations fills Episode.Translations for every fetched episode.
func (f *Fetcher) fetchEpisodeTranslations(ctx context.Context, series []tmdb.Series) error {
	var refs []episodeRef
	for i := range series {
		for _, episodes := range series[i].Episodes {
			for j := range episodes {
				refs = append(refs, episodeRef{seriesID: series[i].ID, episode: &episodes[j]})
			}
		}
	}
	slog.Info("Fetching episode translations",
		"episodes", humanize.Comma(int64(len(refs))),
		"estimate", requestDuration(int64(len(refs)), f.estimateRate).Round(time.Second))

	// Each task writes a distinct episode, so no lock is needed.
	counts, err := f.fanOut(ctx, "episode", len(refs), func(ctx context.Context, i int) tmdb.OutcomeKind {
		ref := refs[i]
		var list tmdb.TranslationList
		req := tmdb.EpisodeTranslationsRequest(ref.seriesID, ref.episode.SeasonNumber, ref.episode.EpisodeNumber)
		kind := f.fetchOne(ctx, "episode_translations", req, &list)
		if kind == tmdb.OutcomeSuccess {
			ref.episode.Translations = list.Translations
		}
		return kind
	})
	if err != nil {
		return err
	}

	slog.Info("Fetched episode translations",
		"episodes", counts.succeeded,
		"requested", len(refs),
		"dropped", counts.notFound+counts.failed)
	return nil
}
