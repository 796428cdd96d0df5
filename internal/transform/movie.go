package transform

import "github.com/CHRISHLOH/tmdb-etl/internal/tmdb"

// Movies builds the movie row set.
func (t *Transformer) Movies(movies []tmdb.Movie) MovieRows {
	var rows MovieRows
	for _, m := range movies {
		original := m.OriginalTitle
		if original == "" {
			original = m.Title
		}

		rows.Content = append(rows.Content, ContentRow{
			ID:            m.ID,
			OriginalTitle: original,
			ContentType:   ContentMovie,
			PosterURL:     nullString(m.PosterPath),
			ReleaseDate:   nullString(m.ReleaseDate),
			Status:        StatusPublished,
			Budget:        nullInt64(m.Budget),
			BoxOffice:     nullInt64(m.Revenue),
		})

		if m.Runtime > 0 {
			rows.Details = append(rows.Details, MovieDetailsRow{
				ContentID:         m.ID,
				DurationMinutes:   m.Runtime,
				CinemaReleaseDate: nullString(m.ReleaseDate),
			})
		}

		translations := t.translationsByLocale(m.Translations.Translations)
		for _, locale := range t.orderedLocales(translations) {
			data := translations[locale]
			title := data.Title
			if title == "" {
				title = original
			}
			rows.Translations = append(rows.Translations, ContentTranslationRow{
				ContentID:   m.ID,
				Locale:      locale,
				Title:       title,
				Description: nullString(data.Overview),
			})
		}

		rows.Genres = append(rows.Genres, t.genres(m.ID, m.Genres)...)
		rows.Countries = append(rows.Countries, t.countries(m.ID, m.ProductionCountries)...)
	}
	return rows
}
