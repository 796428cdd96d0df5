// Package transform turns fetched records into typed rows, one row type
// per target table. Row sets list their tables in load order.
package transform

// Content types and statuses.
const (
	ContentMovie  = "movie"
	ContentSeries = "series"

	StatusPublished = "published"

	SeriesFinished = "finished"
	SeriesOngoing  = "ongoing"
)

type ContentRow struct {
	ID            int64
	OriginalTitle string
	ContentType   string
	PosterURL     *string
	ReleaseDate   *string
	Status        string
	AgeRating     *string
	Budget        *int64
	BoxOffice     *int64
}

type MovieDetailsRow struct {
	ContentID          int64
	DurationMinutes    int
	CinemaReleaseDate  *string
	DigitalReleaseDate *string
}

type SeriesDetailsRow struct {
	ContentID              int64
	TotalSeasons           int
	TotalEpisodes          int
	AverageEpisodeDuration *int
	EndDate                *string
	SeriesStatus           string
}

type ContentTranslationRow struct {
	ContentID   int64
	Locale      string
	Title       string
	Description *string
	PlotSummary *string
}

type ContentGenreRow struct {
	ContentID    int64
	GenreID      int64
	DisplayOrder int
}

type ContentCountryRow struct {
	ContentID int64
	CountryID int64
}

// SeasonRow is keyed by (ContentID, SeasonNumber); the store generates its id.
type SeasonRow struct {
	ContentID     int64
	SeasonNumber  int
	PosterURL     *string
	ReleaseDate   *string
	EpisodesCount int
}

// SeasonTranslationRow references its season by natural key.
type SeasonTranslationRow struct {
	ContentID    int64
	SeasonNumber int
	Locale       string
	Title        string
	Description  *string
}

// EpisodeRow references its season by natural key.
type EpisodeRow struct {
	ContentID       int64
	SeasonNumber    int
	EpisodeNumber   int
	DurationMinutes *int
	AirDate         *string
}

// EpisodeTranslationRow references its episode by natural key.
type EpisodeTranslationRow struct {
	ContentID     int64
	SeasonNumber  int
	EpisodeNumber int
	Locale        string
	Title         string
	Description   *string
	PlotSummary   *string
}

type PersonRow struct {
	ID               int64
	OriginalName     string
	OriginalLastname *string
	BirthDate        *string
	DeathDate        *string
	Gender           *string
	CountryID        *int64
	CityID           *int64
	PhotoURL         *string
}

type PersonTranslationRow struct {
	PersonID       int64
	Locale         string
	LocaleName     string
	LocaleLastname *string
	Biography      *string
}

type PersonCareerRow struct {
	PersonID     int64
	CareerID     int64
	DisplayOrder int
}

type PersonCountryRow struct {
	PersonID  int64
	CountryID int64
}

// Reference data rows. Translations map a locale to a display name.

type GenreRow struct {
	Genre        string
	Translations map[string]string
}

type CountryRow struct {
	ISOCode      string
	Translations map[string]string
}

type LanguageRow struct {
	ISOCode      string
	NativeName   string
	Translations map[string]string
}

type CareerRow struct {
	Career       string
	Translations map[string]string
}

// MovieRows holds every table a movie batch produces.
type MovieRows struct {
	Content      []ContentRow
	Details      []MovieDetailsRow
	Translations []ContentTranslationRow
	Genres       []ContentGenreRow
	Countries    []ContentCountryRow
}

// SeriesRows holds every table a series batch produces, parents first.
type SeriesRows struct {
	Content             []ContentRow
	Details             []SeriesDetailsRow
	Translations        []ContentTranslationRow
	Genres              []ContentGenreRow
	Countries           []ContentCountryRow
	Seasons             []SeasonRow
	SeasonTranslations  []SeasonTranslationRow
	Episodes            []EpisodeRow
	EpisodeTranslations []EpisodeTranslationRow
}

// PersonRows holds every table a person batch produces.
type PersonRows struct {
	Persons      []PersonRow
	Translations []PersonTranslationRow
	Careers      []PersonCareerRow
	Countries    []PersonCountryRow
}

// DictionaryRows holds the reference data tables.
type DictionaryRows struct {
	Genres    []GenreRow
	Countries []CountryRow
	Languages []LanguageRow
	Careers   []CareerRow
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func nullInt64(n int64) *int64 {
	if n <= 0 {
		return nil
	}
	return &n
}
