package loader

import (
	"encoding/json"

	"github.com/CHRISHLOH/tmdb-etl/internal/transform"
)

// rowsStep builds a step whose rows need no key lookup.
func rowsStep[T any](table, sql string, rows []T, args func(T) []any) Step {
	return Step{
		Table: table,
		SQL:   sql,
		Rows:  len(rows),
		Args: func(i int) ([]any, bool) {
			return args(rows[i]), true
		},
	}
}

// translationsJSON encodes a locale map for the JSON translations columns.
func translationsJSON(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	// Marshalling a map[string]string cannot fail.
	b, _ := json.Marshal(m)
	return string(b)
}

// DictionaryPlan upserts the reference tables.
func DictionaryPlan(rows transform.DictionaryRows) Plan {
	return Plan{
		Name: "dictionaries",
		Steps: []Step{
			rowsStep("genres", upsertGenre, rows.Genres, func(r transform.GenreRow) []any {
				return []any{r.Genre, translationsJSON(r.Translations)}
			}),
			rowsStep("countries", upsertCountry, rows.Countries, func(r transform.CountryRow) []any {
				return []any{r.ISOCode, translationsJSON(r.Translations)}
			}),
			rowsStep("languages", upsertLanguage, rows.Languages, func(r transform.LanguageRow) []any {
				return []any{r.ISOCode, r.NativeName, translationsJSON(r.Translations)}
			}),
			rowsStep("careers", upsertCareer, rows.Careers, func(r transform.CareerRow) []any {
				return []any{r.Career, translationsJSON(r.Translations)}
			}),
		},
	}
}

func contentSteps(content []transform.ContentRow, translations []transform.ContentTranslationRow,
	genres []transform.ContentGenreRow, countries []transform.ContentCountryRow) (parent Step, children []Step) {
	parent = rowsStep("content", upsertContent, content, func(r transform.ContentRow) []any {
		return []any{r.ID, r.OriginalTitle, r.ContentType, r.PosterURL, r.ReleaseDate,
			r.Status, r.AgeRating, r.Budget, r.BoxOffice}
	})
	children = []Step{
		rowsStep("content_translations", upsertContentTranslation, translations, func(r transform.ContentTranslationRow) []any {
			return []any{r.ContentID, r.Locale, r.Title, r.Description, r.PlotSummary}
		}),
		rowsStep("content_genres", upsertContentGenre, genres, func(r transform.ContentGenreRow) []any {
			return []any{r.ContentID, r.GenreID, r.DisplayOrder}
		}),
		rowsStep("content_countries", upsertContentCountry, countries, func(r transform.ContentCountryRow) []any {
			return []any{r.ContentID, r.CountryID}
		}),
	}
	return parent, children
}

// MoviePlan upserts a movie batch.
func MoviePlan(rows transform.MovieRows) Plan {
	parent, children := contentSteps(rows.Content, rows.Translations, rows.Genres, rows.Countries)
	details := rowsStep("movie_details", upsertMovieDetails, rows.Details, func(r transform.MovieDetailsRow) []any {
		return []any{r.ContentID, r.DurationMinutes, r.CinemaReleaseDate, r.DigitalReleaseDate}
	})
	return Plan{
		Name:  "movies",
		Steps: append([]Step{parent, details}, children...),
	}
}

// SeriesPlan upserts a series batch. Seasons and episodes capture their
// generated ids; a child whose parent is missing from the key map is dropped.
func SeriesPlan(rows transform.SeriesRows) Plan {
	seasonIDs := NewKeyMap[SeasonKey]()
	episodeIDs := NewKeyMap[EpisodeKey]()

	parent, children := contentSteps(rows.Content, rows.Translations, rows.Genres, rows.Countries)
	details := rowsStep("series_details", upsertSeriesDetails, rows.Details, func(r transform.SeriesDetailsRow) []any {
		return []any{r.ContentID, r.TotalSeasons, r.TotalEpisodes, r.AverageEpisodeDuration, r.EndDate, r.SeriesStatus}
	})

	seasons := Step{
		Table: "seasons",
		SQL:   upsertSeason,
		Rows:  len(rows.Seasons),
		Args: func(i int) ([]any, bool) {
			r := rows.Seasons[i]
			return []any{r.ContentID, r.SeasonNumber, r.PosterURL, r.ReleaseDate, r.EpisodesCount}, true
		},
		Returning: func(i int, id int64) {
			r := rows.Seasons[i]
			seasonIDs.Put(SeasonKey{r.ContentID, r.SeasonNumber}, id)
		},
	}

	seasonTranslations := Step{
		Table: "season_translations",
		SQL:   upsertSeasonTranslation,
		Rows:  len(rows.SeasonTranslations),
		Args: func(i int) ([]any, bool) {
			r := rows.SeasonTranslations[i]
			seasonID, ok := seasonIDs.Get(SeasonKey{r.ContentID, r.SeasonNumber})
			if !ok {
				return nil, false
			}
			return []any{seasonID, r.Locale, r.Title, r.Description}, true
		},
	}

	episodes := Step{
		Table: "episodes",
		SQL:   upsertEpisode,
		Rows:  len(rows.Episodes),
		Args: func(i int) ([]any, bool) {
			r := rows.Episodes[i]
			seasonID, ok := seasonIDs.Get(SeasonKey{r.ContentID, r.SeasonNumber})
			if !ok {
				return nil, false
			}
			return []any{seasonID, r.EpisodeNumber, r.DurationMinutes, r.AirDate}, true
		},
		Returning: func(i int, id int64) {
			r := rows.Episodes[i]
			episodeIDs.Put(EpisodeKey{r.ContentID, r.SeasonNumber, r.EpisodeNumber}, id)
		},
	}

	episodeTranslations := Step{
		Table: "episode_translations",
		SQL:   upsertEpisodeTranslation,
		Rows:  len(rows.EpisodeTranslations),
		Args: func(i int) ([]any, bool) {
			r := rows.EpisodeTranslations[i]
			episodeID, ok := episodeIDs.Get(EpisodeKey{r.ContentID, r.SeasonNumber, r.EpisodeNumber})
			if !ok {
				return nil, false
			}
			return []any{episodeID, r.Locale, r.Title, r.Description, r.PlotSummary}, true
		},
	}

	steps := append([]Step{parent, details}, children...)
	steps = append(steps, seasons, seasonTranslations, episodes, episodeTranslations)
	return Plan{Name: "series", Steps: steps}
}

// PersonPlan upserts a person batch.
func PersonPlan(rows transform.PersonRows) Plan {
	return Plan{
		Name: "persons",
		Steps: []Step{
			rowsStep("persons", upsertPerson, rows.Persons, func(r transform.PersonRow) []any {
				return []any{r.ID, r.OriginalName, r.OriginalLastname, r.BirthDate, r.DeathDate,
					r.Gender, r.CountryID, r.CityID, r.PhotoURL}
			}),
			rowsStep("person_translations", upsertPersonTranslation, rows.Translations, func(r transform.PersonTranslationRow) []any {
				return []any{r.PersonID, r.Locale, r.LocaleName, r.LocaleLastname, r.Biography}
			}),
			rowsStep("person_careers", upsertPersonCareer, rows.Careers, func(r transform.PersonCareerRow) []any {
				return []any{r.PersonID, r.CareerID, r.DisplayOrder}
			}),
			rowsStep("person_countries", upsertPersonCountry, rows.Countries, func(r transform.PersonCountryRow) []any {
				return []any{r.PersonID, r.CountryID}
			}),
		},
	}
}
