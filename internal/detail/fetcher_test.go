package detail

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// fakeSource answers requests from a path -> outcome table. Unknown paths
// are not found.
type fakeSource struct {
	mu        sync.Mutex
	responses map[string]tmdb.Outcome
	paths     []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{responses: make(map[string]tmdb.Outcome)}
}

func (s *fakeSource) ok(path, payload string) {
	s.responses[path] = tmdb.Outcome{Kind: tmdb.OutcomeSuccess, Status: 200, Payload: json.RawMessage(payload)}
}

func (s *fakeSource) fail(path string, status int) {
	s.responses[path] = tmdb.Outcome{Kind: tmdb.OutcomePermanent, Status: status, URL: path}
}

func (s *fakeSource) Fetch(_ context.Context, req tmdb.Request) tmdb.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, req.Path)
	if out, ok := s.responses[req.Path]; ok {
		return out
	}
	return tmdb.Outcome{Kind: tmdb.OutcomeNotFound, Status: 404, URL: req.Path}
}

func (s *fakeSource) requested(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.paths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func TestMoviesDropsFailures(t *testing.T) {
	source := newFakeSource()
	source.ok("/movie/1", `{"id":1,"title":"One","runtime":90}`)
	source.ok("/movie/2", `{"id":2,"title":"Two"}`)
	source.fail("/movie/4", 500)
	source.ok("/movie/5", `{"id":"five"}`)

	batch, err := NewFetcher(source).Movies(context.Background(), []int64{1, 2, 3, 4, 5})
	require.NoError(t, err)

	require.Len(t, batch.Items, 2)
	titles := []string{batch.Items[0].Title, batch.Items[1].Title}
	sort.Strings(titles)
	assert.Equal(t, []string{"One", "Two"}, titles)
	assert.Equal(t, 5, batch.Requested)
	assert.Equal(t, 1, batch.NotFound)
	assert.Equal(t, 2, batch.Failed)
	assert.Equal(t, 3, batch.Dropped())
}

func TestPersonsReportsProgress(t *testing.T) {
	source := newFakeSource()
	for i := 1; i <= 10; i++ {
		source.ok(fmt.Sprintf("/person/%d", i), fmt.Sprintf(`{"id":%d,"name":"Person %d"}`, i, i))
	}

	var (
		mu    sync.Mutex
		calls int
		last  int
	)
	fetcher := NewFetcher(source, WithWorkers(3), WithProgress(func(label string, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "person", label)
		assert.Equal(t, 10, total)
		calls++
		last = max(last, done)
	}))

	batch, err := fetcher.Persons(context.Background(), []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	require.NoError(t, err)
	assert.Len(t, batch.Items, 10)
	assert.Equal(t, 10, calls)
	assert.Equal(t, 10, last)
}

func TestProgressRunsOutsideFanOutLock(t *testing.T) {
	const n = 4
	source := newFakeSource()
	for i := 1; i <= n; i++ {
		source.ok(fmt.Sprintf("/movie/%d", i), fmt.Sprintf(`{"id":%d}`, i))
	}

	// Every callback waits until all of them have started; that only
	// completes when callbacks can run concurrently.
	var entered sync.WaitGroup
	entered.Add(n)
	all := make(chan struct{})
	go func() {
		entered.Wait()
		close(all)
	}()

	var stalled atomic.Bool
	fetcher := NewFetcher(source, WithWorkers(n), WithProgress(func(string, int, int) {
		entered.Done()
		select {
		case <-all:
		case <-time.After(2 * time.Second):
			stalled.Store(true)
		}
	}))

	batch, err := fetcher.Movies(context.Background(), []int64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Len(t, batch.Items, n)
	assert.False(t, stalled.Load(), "progress callbacks were serialized")
}

// cancellingSource cancels the run on its first request and reports every
// request as abandoned.
type cancellingSource struct {
	cancel context.CancelFunc
}

func (s *cancellingSource) Fetch(_ context.Context, req tmdb.Request) tmdb.Outcome {
	s.cancel()
	return tmdb.Outcome{Kind: tmdb.OutcomePermanent, URL: req.Path, Cause: context.Canceled}
}

func TestCancelledFetchesAreNotFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := NewFetcher(&cancellingSource{cancel: cancel}, WithWorkers(1))
	batch, err := fetcher.Movies(ctx, []int64{1, 2, 3, 4, 5})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch.Items)
	assert.Equal(t, 0, batch.Failed)
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	source := newFakeSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(source).Movies(ctx, []int64{1, 2, 3})
	require.ErrorIs(t, err, context.Canceled)
}

func seriesSource() *fakeSource {
	source := newFakeSource()
	source.ok("/tv/10", `{"id":10,"name":"Show","seasons":[
		{"season_number":0,"episode_count":3},
		{"season_number":1,"episode_count":2},
		{"season_number":2,"episode_count":1}]}`)
	source.ok("/tv/10/season/1", `{"season_number":1,"episodes":[
		{"episode_number":1,"season_number":1,"name":"Pilot"},
		{"episode_number":2,"season_number":1,"name":"Second"}]}`)
	source.fail("/tv/10/season/2", 500)
	source.ok("/tv/10/season/1/episode/1/translations",
		`{"translations":[{"iso_639_1":"ru","iso_3166_1":"RU","data":{"name":"Пилот","overview":"Начало"}}]}`)
	return source
}

func TestSeriesFetchesSeasonsWithoutEpisodeTranslations(t *testing.T) {
	source := seriesSource()

	batch, err := NewFetcher(source).Series(context.Background(), []int64{10})
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)

	series := batch.Items[0]
	assert.Equal(t, []string{"/tv/10/season/1", "/tv/10/season/2"}, source.requested("/tv/10/season/"))
	require.Contains(t, series.Episodes, 1)
	assert.NotContains(t, series.Episodes, 2)
	assert.NotContains(t, series.Episodes, 0)
	assert.Len(t, series.Episodes[1], 2)
	assert.Empty(t, series.Episodes[1][0].Translations)
}

func TestSeriesFetchesEpisodeTranslationsWhenEnabled(t *testing.T) {
	source := seriesSource()

	batch, err := NewFetcher(source, WithEpisodeTranslations(true)).Series(context.Background(), []int64{10})
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)

	assert.Equal(t, []string{
		"/tv/10/season/1/episode/1/translations",
		"/tv/10/season/1/episode/2/translations",
	}, source.requested("/tv/10/season/1/episode/"))

	episodes := batch.Items[0].Episodes[1]
	require.Len(t, episodes, 2)
	byNumber := map[int]tmdb.Episode{}
	for _, ep := range episodes {
		byNumber[ep.EpisodeNumber] = ep
	}
	require.Len(t, byNumber[1].Translations, 1)
	assert.Equal(t, "Пилот", byNumber[1].Translations[0].Data.Name)
	assert.Empty(t, byNumber[2].Translations)
}

func TestCreditsCapsSourcesAndRanks(t *testing.T) {
	source := newFakeSource()
	source.ok("/movie/1/credits", `{"id":1,"cast":[{"id":100,"popularity":10},{"id":101,"popularity":50}],"crew":[{"id":102,"popularity":3}]}`)
	source.ok("/movie/2/credits", `{"id":2,"cast":[{"id":100,"popularity":10}],"crew":[{"id":100,"popularity":10,"department":"Directing"}]}`)
	source.ok("/movie/3/credits", `{"id":3,"cast":[{"id":100,"popularity":10}]}`)

	ids := make([]int64, MaxCreditSources+5)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	persons, err := NewFetcher(source).Credits(context.Background(), ids, 2)
	require.NoError(t, err)

	assert.Len(t, source.requested("/movie/"), MaxCreditSources)
	// 101: 1 title x 50 = 50, 100: 3 titles x 10 = 30, 102: 1 x 3 = 3.
	assert.Equal(t, []int64{101, 100}, persons)
}

func TestScorePersons(t *testing.T) {
	credits := []tmdb.Credits{
		{ID: 1, Cast: []tmdb.CastMember{{ID: 7, Popularity: 2}, {ID: 8, Popularity: 4}}},
		{ID: 2, Cast: []tmdb.CastMember{{ID: 7, Popularity: 2}}, Crew: []tmdb.CrewMember{{ID: 9, Popularity: 4}}},
	}

	// 7 and 8 tie at 4, 9 also scores 4: ties break on the lower ID.
	assert.Equal(t, []int64{7, 8, 9}, ScorePersons(credits, 10))
	assert.Equal(t, []int64{7}, ScorePersons(credits, 1))
	assert.Empty(t, ScorePersons(nil, 5))
}

func TestEstimates(t *testing.T) {
	movies := EstimateMovies(20, 1)
	assert.Equal(t, int64(21), movies.Requests)
	assert.Equal(t, 21*time.Second, movies.Duration)

	series := EstimateSeries(100, false, 45)
	assert.Equal(t, int64(5+100+500), series.Requests)

	withEpisodes := EstimateSeries(100, true, 45)
	assert.Equal(t, int64(5+100+500+5000), withEpisodes.Requests)
	assert.Greater(t, withEpisodes.Duration, 2*time.Minute)

	assert.Equal(t, EstimateMovies(45, 0), EstimateMovies(45, 45))
}
