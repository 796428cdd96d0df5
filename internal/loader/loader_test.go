package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CHRISHLOH/tmdb-etl/internal/store"
	"github.com/CHRISHLOH/tmdb-etl/internal/transform"
)

func newStore(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "etl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strPtr(s string) *string { return &s }

func seriesRows(title string) transform.SeriesRows {
	return transform.SeriesRows{
		Content: []transform.ContentRow{
			{ID: 5, OriginalTitle: title, ContentType: transform.ContentSeries, Status: transform.StatusPublished},
		},
		Details: []transform.SeriesDetailsRow{
			{ContentID: 5, TotalSeasons: 1, TotalEpisodes: 2, SeriesStatus: transform.SeriesOngoing},
		},
		Translations: []transform.ContentTranslationRow{
			{ContentID: 5, Locale: "en", Title: title},
		},
		Seasons: []transform.SeasonRow{
			{ContentID: 5, SeasonNumber: 1, ReleaseDate: strPtr("2020-01-01"), EpisodesCount: 2},
		},
		SeasonTranslations: []transform.SeasonTranslationRow{
			{ContentID: 5, SeasonNumber: 1, Locale: "en", Title: "Season 1"},
		},
		Episodes: []transform.EpisodeRow{
			{ContentID: 5, SeasonNumber: 1, EpisodeNumber: 1},
			{ContentID: 5, SeasonNumber: 1, EpisodeNumber: 2},
			// Season 99 never made it into the seasons table.
			{ContentID: 5, SeasonNumber: 99, EpisodeNumber: 1},
		},
		EpisodeTranslations: []transform.EpisodeTranslationRow{
			{ContentID: 5, SeasonNumber: 1, EpisodeNumber: 1, Locale: "en", Title: "Pilot"},
		},
	}
}

func movieRows(title string) transform.MovieRows {
	return transform.MovieRows{
		Content: []transform.ContentRow{
			{ID: 550, OriginalTitle: title, ContentType: transform.ContentMovie, Status: transform.StatusPublished},
		},
		Details: []transform.MovieDetailsRow{
			{ContentID: 550, DurationMinutes: 139, CinemaReleaseDate: strPtr("1999-10-15")},
		},
		Translations: []transform.ContentTranslationRow{
			{ContentID: 550, Locale: "en", Title: title},
			{ContentID: 550, Locale: "ru", Title: "Бойцовский клуб"},
		},
	}
}

func TestKeyMap(t *testing.T) {
	m := NewKeyMap[SeasonKey]()
	m.Put(SeasonKey{ContentID: 1, SeasonNumber: 2}, 10)

	id, ok := m.Get(SeasonKey{ContentID: 1, SeasonNumber: 2})
	assert.True(t, ok)
	assert.Equal(t, int64(10), id)

	_, ok = m.Get(SeasonKey{ContentID: 1, SeasonNumber: 3})
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestSeriesPlanDropsOrphanedEpisode(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	report, err := New(s, 0).Load(ctx, SeriesPlan(seriesRows("Show")))
	require.NoError(t, err)

	episodes := report.Table("episodes")
	assert.Equal(t, 2, episodes.Loaded)
	assert.Equal(t, 1, episodes.Dropped)
	assert.Equal(t, 1, report.Dropped())
	assert.Equal(t, 1, report.Table("episode_translations").Loaded)

	n, err := s.Count(ctx, "episodes")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestLoadIsIdempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	l := New(s, 0)

	load := func(title string) map[string]int64 {
		t.Helper()
		_, err := l.Load(ctx, MoviePlan(movieRows(title)))
		require.NoError(t, err)
		_, err = l.Load(ctx, SeriesPlan(seriesRows(title)))
		require.NoError(t, err)
		counts, err := store.TableCounts(ctx, s)
		require.NoError(t, err)
		return counts
	}

	first := load("Original")
	second := load("Renamed")
	assert.Equal(t, first, second)
	assert.Equal(t, int64(2), first["content"])
	assert.Equal(t, int64(3), first["content_translations"])

	titles, err := s.QueryKeys(ctx, "SELECT id, original_title FROM content")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Renamed": 5}, filterSeries(titles))
}

// filterSeries keeps the title keyed to the series row.
func filterSeries(titles map[string]int64) map[string]int64 {
	out := make(map[string]int64)
	for title, id := range titles {
		if id == 5 {
			out[title] = id
		}
	}
	return out
}

func TestSmallChunksKeepGeneratedKeys(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rows := transform.SeriesRows{
		Content: []transform.ContentRow{
			{ID: 7, OriginalTitle: "Long", ContentType: transform.ContentSeries, Status: transform.StatusPublished},
		},
	}
	for season := 1; season <= 5; season++ {
		rows.Seasons = append(rows.Seasons, transform.SeasonRow{ContentID: 7, SeasonNumber: season})
		rows.Episodes = append(rows.Episodes, transform.EpisodeRow{ContentID: 7, SeasonNumber: season, EpisodeNumber: 1})
		rows.EpisodeTranslations = append(rows.EpisodeTranslations, transform.EpisodeTranslationRow{
			ContentID: 7, SeasonNumber: season, EpisodeNumber: 1, Locale: "en", Title: fmt.Sprintf("S%dE1", season),
		})
	}

	report, err := New(s, 2).Load(ctx, SeriesPlan(rows))
	require.NoError(t, err)
	assert.Equal(t, 5, report.Table("seasons").Loaded)
	assert.Equal(t, 5, report.Table("episodes").Loaded)
	assert.Equal(t, 5, report.Table("episode_translations").Loaded)
	assert.Zero(t, report.Dropped())

	// Each episode points at its own season.
	pairs, err := s.QueryKeys(ctx, `SELECT e.season_id, CAST(s.season_number AS TEXT)
		FROM episodes e JOIN seasons s ON s.id = e.season_id`)
	require.NoError(t, err)
	assert.Len(t, pairs, 5)
}

func TestFailedChunkRollsBackPlan(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rows := movieRows("Fight Club")
	rows.Genres = []transform.ContentGenreRow{{ContentID: 550, GenreID: 999}}

	_, err := New(s, 0).Load(ctx, MoviePlan(rows))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content_genres")

	n, err := s.Count(ctx, "content")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDictionaryPlanFeedsReferenceMaps(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rows := transform.DictionaryRows{
		Genres: []transform.GenreRow{
			{Genre: "drama", Translations: map[string]string{"ru": "драма", "en": "Drama"}},
		},
		Countries: []transform.CountryRow{{ISOCode: "US", Translations: map[string]string{"en": "United States"}}},
		Languages: []transform.LanguageRow{{ISOCode: "en", NativeName: "English"}},
		Careers:   transform.Careers(),
	}
	report, err := New(s, 0).Load(ctx, DictionaryPlan(rows))
	require.NoError(t, err)
	assert.Equal(t, 1+1+1+len(rows.Careers), report.Loaded())

	refs, err := store.LoadReferenceMaps(ctx, s)
	require.NoError(t, err)
	assert.Contains(t, refs.Genres, "drama")
	assert.Contains(t, refs.Countries, "US")
	assert.Contains(t, refs.Careers, "actor")

	stored, err := s.QueryKeys(ctx, "SELECT id, translations FROM genres")
	require.NoError(t, err)
	assert.Contains(t, stored, `{"en":"Drama","ru":"драма"}`)
}

func TestReportTotals(t *testing.T) {
	r := Report{Plan: "movies", Tables: []TableReport{
		{Table: "content", Loaded: 3},
		{Table: "content_genres", Loaded: 4, Dropped: 2},
	}}
	assert.Equal(t, 7, r.Loaded())
	assert.Equal(t, 2, r.Dropped())
	assert.Equal(t, TableReport{Table: "persons"}, r.Table("persons"))
}
