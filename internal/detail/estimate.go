package detail

import (
	"time"

	"github.com/CHRISHLOH/tmdb-etl/internal/ratelimit"
	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// Averages used when the real season and episode counts are not known yet.
const (
	AvgSeasonsPerSeries  = 5
	AvgEpisodesPerSeason = 10
)

const defaultEstimateRate = ratelimit.DefaultRequestsPerSecond

// Estimate is the expected request volume of a harvest.
type Estimate struct {
	Requests int64
	Duration time.Duration
}

// EstimateMovies estimates discovering and fetching count movies.
func EstimateMovies(count, rps int) Estimate {
	n := int64(count)
	requests := listingPages(n) + n
	return Estimate{Requests: requests, Duration: requestDuration(requests, rps)}
}

// EstimateSeries estimates discovering and fetching count series with their
// seasons, plus the per-episode translations when withEpisodes is set.
func EstimateSeries(count int, withEpisodes bool, rps int) Estimate {
	n := int64(count)
	seasons := n * AvgSeasonsPerSeries
	requests := listingPages(n) + n + seasons
	if withEpisodes {
		requests += seasons * AvgEpisodesPerSeason
	}
	return Estimate{Requests: requests, Duration: requestDuration(requests, rps)}
}

func listingPages(n int64) int64 {
	return (n + tmdb.PageSize - 1) / tmdb.PageSize
}

func requestDuration(requests int64, rps int) time.Duration {
	if rps <= 0 {
		rps = defaultEstimateRate
	}
	return time.Duration(requests) * time.Second / time.Duration(rps)
}
