package tmdb

import "encoding/json"

// MediaType selects the movie or tv flavour of an endpoint.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Valid reports whether m is a known media type.
func (m MediaType) Valid() bool {
	return m == MediaMovie || m == MediaTV
}

// Genre is a TMDB genre reference.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProductionCountry is a country attached to a movie or series.
type ProductionCountry struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}

// TranslationData holds the localized fields. Movies use Title, series and
// episodes use Name.
type TranslationData struct {
	Title     string `json:"title"`
	Name      string `json:"name"`
	Overview  string `json:"overview"`
	Biography string `json:"biography"`
}

// Translation is one locale entry of a translations list.
type Translation struct {
	ISO6391  string          `json:"iso_639_1"`
	ISO31661 string          `json:"iso_3166_1"`
	Data     TranslationData `json:"data"`
}

// TranslationList is the payload of a translations sub-resource.
type TranslationList struct {
	Translations []Translation `json:"translations"`
}

// ByLocale returns the first translation for locale.
func (l TranslationList) ByLocale(locale string) (Translation, bool) {
	for _, tr := range l.Translations {
		if tr.ISO6391 == locale {
			return tr, true
		}
	}
	return Translation{}, false
}

// CastMember is a cast entry of a credits payload.
type CastMember struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Character          string  `json:"character"`
	Order              int     `json:"order"`
	Popularity         float64 `json:"popularity"`
	KnownForDepartment string  `json:"known_for_department"`
}

// CrewMember is a crew entry of a credits payload.
type CrewMember struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Job        string  `json:"job"`
	Department string  `json:"department"`
	Popularity float64 `json:"popularity"`
}

// Credits is the cast and crew of a title.
type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Movie is the movie detail payload with translations and credits appended.
type Movie struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	Overview            string              `json:"overview"`
	PosterPath          string              `json:"poster_path"`
	ReleaseDate         string              `json:"release_date"`
	Runtime             int                 `json:"runtime"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	Popularity          float64             `json:"popularity"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	Adult               bool                `json:"adult"`
	Video               bool                `json:"video"`
	Genres              []Genre             `json:"genres"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	Translations        TranslationList     `json:"translations"`
	Credits             *Credits            `json:"credits,omitempty"`
}

// SeasonSummary is a season entry embedded in the series payload.
type SeasonSummary struct {
	ID           int64  `json:"id"`
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	AirDate      string `json:"air_date"`
	EpisodeCount int    `json:"episode_count"`
}

// Episode is an episode stub from a season payload. Translations are
// filled by the episode translations fan-out.
type Episode struct {
	ID            int64         `json:"id"`
	EpisodeNumber int           `json:"episode_number"`
	SeasonNumber  int           `json:"season_number"`
	Name          string        `json:"name"`
	Overview      string        `json:"overview"`
	AirDate       string        `json:"air_date"`
	Runtime       int           `json:"runtime"`
	Translations  []Translation `json:"-"`
}

// Season is the payload of /tv/{id}/season/{n}.
type Season struct {
	ID           int64     `json:"id"`
	SeasonNumber int       `json:"season_number"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview"`
	AirDate      string    `json:"air_date"`
	Episodes     []Episode `json:"episodes"`
}

// Series is the tv detail payload with translations appended, plus the
// seasons fetched by the fan-out.
type Series struct {
	ID                  int64               `json:"id"`
	Name                string              `json:"name"`
	OriginalName        string              `json:"original_name"`
	Overview            string              `json:"overview"`
	PosterPath          string              `json:"poster_path"`
	FirstAirDate        string              `json:"first_air_date"`
	LastAirDate         string              `json:"last_air_date"`
	Status              string              `json:"status"`
	NumberOfEpisodes    int                 `json:"number_of_episodes"`
	EpisodeRunTime      []int               `json:"episode_run_time"`
	Popularity          float64             `json:"popularity"`
	Genres              []Genre             `json:"genres"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	Seasons             []SeasonSummary     `json:"seasons"`
	Translations        TranslationList     `json:"translations"`

	// Episodes per season number, populated by the season fan-out.
	Episodes map[int][]Episode `json:"-"`
}

// Person is the person detail payload.
type Person struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Biography          string          `json:"biography"`
	Birthday           string          `json:"birthday"`
	Deathday           string          `json:"deathday"`
	Gender             int             `json:"gender"`
	PlaceOfBirth       string          `json:"place_of_birth"`
	ProfilePath        string          `json:"profile_path"`
	KnownForDepartment string          `json:"known_for_department"`
	Popularity         float64         `json:"popularity"`
	Translations       TranslationList `json:"translations"`
	CombinedCredits    json.RawMessage `json:"combined_credits,omitempty"`
}

// ListItem is one entry of a paginated listing.
type ListItem struct {
	ID         int64   `json:"id"`
	Popularity float64 `json:"popularity"`
}

// CountryInfo is an entry of /configuration/countries.
type CountryInfo struct {
	ISO31661    string `json:"iso_3166_1"`
	EnglishName string `json:"english_name"`
	NativeName  string `json:"native_name"`
}

// LanguageInfo is an entry of /configuration/languages.
type LanguageInfo struct {
	ISO6391     string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}
