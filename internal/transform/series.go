package transform

import (
	"fmt"
	"strings"

	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// Series builds the series row set including the season and episode
// hierarchy. Season 0 (specials) is skipped.
func (t *Transformer) Series(series []tmdb.Series) SeriesRows {
	var rows SeriesRows
	for _, s := range series {
		original := s.OriginalName
		if original == "" {
			original = s.Name
		}

		rows.Content = append(rows.Content, ContentRow{
			ID:            s.ID,
			OriginalTitle: original,
			ContentType:   ContentSeries,
			PosterURL:     nullString(s.PosterPath),
			ReleaseDate:   nullString(s.FirstAirDate),
			Status:        StatusPublished,
		})

		var regular []tmdb.SeasonSummary
		for _, season := range s.Seasons {
			if season.SeasonNumber > 0 {
				regular = append(regular, season)
			}
		}

		rows.Details = append(rows.Details, SeriesDetailsRow{
			ContentID:              s.ID,
			TotalSeasons:           len(regular),
			TotalEpisodes:          s.NumberOfEpisodes,
			AverageEpisodeDuration: averageRuntime(s.EpisodeRunTime),
			EndDate:                nullString(s.LastAirDate),
			SeriesStatus:           SeriesStatus(s.Status),
		})

		translations := t.translationsByLocale(s.Translations.Translations)
		for _, locale := range t.orderedLocales(translations) {
			data := translations[locale]
			title := data.Name
			if title == "" {
				title = original
			}
			rows.Translations = append(rows.Translations, ContentTranslationRow{
				ContentID:   s.ID,
				Locale:      locale,
				Title:       title,
				Description: nullString(data.Overview),
			})
		}

		rows.Genres = append(rows.Genres, t.genres(s.ID, s.Genres)...)
		rows.Countries = append(rows.Countries, t.countries(s.ID, s.ProductionCountries)...)

		for _, season := range regular {
			t.season(&rows, s, season)
		}
	}
	return rows
}

func (t *Transformer) season(rows *SeriesRows, s tmdb.Series, season tmdb.SeasonSummary) {
	rows.Seasons = append(rows.Seasons, SeasonRow{
		ContentID:     s.ID,
		SeasonNumber:  season.SeasonNumber,
		PosterURL:     nullString(season.PosterPath),
		ReleaseDate:   nullString(season.AirDate),
		EpisodesCount: season.EpisodeCount,
	})

	title := season.Name
	if title == "" {
		title = fmt.Sprintf("Season %d", season.SeasonNumber)
	}
	for _, locale := range t.locales {
		rows.SeasonTranslations = append(rows.SeasonTranslations, SeasonTranslationRow{
			ContentID:    s.ID,
			SeasonNumber: season.SeasonNumber,
			Locale:       locale,
			Title:        title,
			Description:  nullString(season.Overview),
		})
	}

	for _, ep := range s.Episodes[season.SeasonNumber] {
		rows.Episodes = append(rows.Episodes, EpisodeRow{
			ContentID:       s.ID,
			SeasonNumber:    season.SeasonNumber,
			EpisodeNumber:   ep.EpisodeNumber,
			DurationMinutes: nullInt(ep.Runtime),
			AirDate:         nullString(ep.AirDate),
		})
		rows.EpisodeTranslations = append(rows.EpisodeTranslations,
			t.episodeTranslations(s.ID, season.SeasonNumber, ep)...)
	}
}

// episodeTranslations uses the fetched translations when there are any.
// The default locale always gets a row, falling back to the stub text.
func (t *Transformer) episodeTranslations(contentID int64, seasonNumber int, ep tmdb.Episode) []EpisodeTranslationRow {
	stubTitle := ep.Name
	if stubTitle == "" {
		stubTitle = fmt.Sprintf("Episode %d", ep.EpisodeNumber)
	}
	row := func(locale, title, overview string) EpisodeTranslationRow {
		if title == "" {
			title = stubTitle
		}
		return EpisodeTranslationRow{
			ContentID:     contentID,
			SeasonNumber:  seasonNumber,
			EpisodeNumber: ep.EpisodeNumber,
			Locale:        locale,
			Title:         title,
			Description:   nullString(overview),
		}
	}

	fallback := t.defaultLocale()
	translations := t.translationsByLocale(ep.Translations)
	var out []EpisodeTranslationRow
	for _, locale := range t.locales {
		if data, ok := translations[locale]; ok {
			out = append(out, row(locale, data.Name, data.Overview))
		} else if locale == fallback {
			out = append(out, row(locale, ep.Name, ep.Overview))
		}
	}
	if len(t.locales) == 0 {
		out = append(out, row(fallback, ep.Name, ep.Overview))
	}
	return out
}

// SeriesStatus maps a TMDB status onto finished or ongoing.
func SeriesStatus(status string) string {
	status = strings.ToLower(status)
	if strings.Contains(status, "ended") || strings.Contains(status, "canceled") {
		return SeriesFinished
	}
	return SeriesOngoing
}

func averageRuntime(runtimes []int) *int {
	if len(runtimes) == 0 {
		return nil
	}
	sum := 0
	for _, r := range runtimes {
		sum += r
	}
	return nullInt(sum / len(runtimes))
}
