package tmdb

import (
	"fmt"
	"net/url"
)

// Listing paths.
const (
	DiscoverMoviePath = "/discover/movie"
	DiscoverTVPath    = "/discover/tv"
	PopularPersonPath = "/person/popular"
)

// DiscoverPath returns the discover listing for media.
func DiscoverPath(media MediaType) string {
	if media == MediaTV {
		return DiscoverTVPath
	}
	return DiscoverMoviePath
}

// MovieRequest fetches a movie with translations and credits appended.
func MovieRequest(id int64) Request {
	return Request{
		Path: fmt.Sprintf("/movie/%d", id),
		Query: url.Values{
			"language":           {"en"},
			"append_to_response": {"translations,credits"},
		},
		Hint:      fmt.Sprintf("movie %d", id),
		Cacheable: true,
	}
}

// SeriesRequest fetches a series with translations appended.
func SeriesRequest(id int64) Request {
	return Request{
		Path: fmt.Sprintf("/tv/%d", id),
		Query: url.Values{
			"language":           {"en"},
			"append_to_response": {"translations"},
		},
		Hint:      fmt.Sprintf("series %d", id),
		Cacheable: true,
	}
}

// SeasonRequest fetches the episode stubs of one season.
func SeasonRequest(seriesID int64, season int) Request {
	return Request{
		Path:      fmt.Sprintf("/tv/%d/season/%d", seriesID, season),
		Query:     url.Values{"language": {"en"}},
		Hint:      fmt.Sprintf("series %d season %d", seriesID, season),
		Cacheable: true,
	}
}

// EpisodeTranslationsRequest fetches every translation of one episode.
func EpisodeTranslationsRequest(seriesID int64, season, episode int) Request {
	return Request{
		Path:      fmt.Sprintf("/tv/%d/season/%d/episode/%d/translations", seriesID, season, episode),
		Hint:      fmt.Sprintf("series %d s%02de%02d translations", seriesID, season, episode),
		Cacheable: true,
	}
}

// PersonRequest fetches a person with translations and combined credits.
func PersonRequest(id int64) Request {
	return Request{
		Path:      fmt.Sprintf("/person/%d", id),
		Query:     url.Values{"append_to_response": {"translations,combined_credits"}},
		Hint:      fmt.Sprintf("person %d", id),
		Cacheable: true,
	}
}

// CreditsRequest fetches the cast and crew of a movie.
func CreditsRequest(movieID int64) Request {
	return Request{
		Path:      fmt.Sprintf("/movie/%d/credits", movieID),
		Query:     url.Values{"language": {"en"}},
		Hint:      fmt.Sprintf("movie %d credits", movieID),
		Cacheable: true,
	}
}
