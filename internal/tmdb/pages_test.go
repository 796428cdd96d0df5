package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CHRISHLOH/tmdb-etl/internal/testutil"
)

func TestFetchPageClampsTotalPagesAndForwardsFilters(t *testing.T) {
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DiscoverMoviePath, r.URL.Path)
		query = r.URL.Query()
		_, _ = fmt.Fprint(w, `{"page":3,"results":[{"id":10,"popularity":5.5},{"id":11}],"total_pages":1200,"total_results":24000}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, testutil.NewFakeClock(time.Unix(0, 0)))
	filters := url.Values{"sort_by": {"popularity.desc"}, "vote_count.gte": {"100"}}

	page, ok := client.FetchPage(context.Background(), DiscoverMoviePath, 3, filters)
	require.True(t, ok)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, MaxPages, page.TotalPages)
	assert.Equal(t, []int64{10, 11}, page.IDs())
	assert.Equal(t, 5.5, page.Items[0].Popularity)

	assert.Equal(t, "3", query.Get("page"))
	assert.Equal(t, "popularity.desc", query.Get("sort_by"))
	assert.Equal(t, "100", query.Get("vote_count.gte"))
	assert.Empty(t, filters.Get("page"), "caller filters must not be mutated")
}

func TestFetchPageRejectsOutOfRangePages(t *testing.T) {
	client := NewClient("key", WithHTTPClient(&flakyDoer{}))

	_, ok := client.FetchPage(context.Background(), DiscoverMoviePath, 0, nil)
	assert.False(t, ok)
	_, ok = client.FetchPage(context.Background(), DiscoverMoviePath, MaxPages+1, nil)
	assert.False(t, ok)
}

func TestFetchPageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server, testutil.NewFakeClock(time.Unix(0, 0)))
	_, ok := client.FetchPage(context.Background(), DiscoverTVPath, 1, nil)
	assert.False(t, ok)
}

func TestReferenceEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/genre/tv/list":
			assert.Equal(t, "ru", r.URL.Query().Get("language"))
			_, _ = fmt.Fprint(w, `{"genres":[{"id":18,"name":"Драма"}]}`)
		case "/configuration/countries":
			_, _ = fmt.Fprint(w, `[{"iso_3166_1":"US","english_name":"United States of America","native_name":"United States"}]`)
		case "/configuration/languages":
			_, _ = fmt.Fprint(w, `[{"iso_639_1":"ru","english_name":"Russian","name":"Pусский"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, testutil.NewFakeClock(time.Unix(0, 0)))
	ctx := context.Background()

	genres, err := client.Genres(ctx, MediaTV, "ru")
	require.NoError(t, err)
	assert.Equal(t, []Genre{{ID: 18, Name: "Драма"}}, genres)

	countries, err := client.Countries(ctx)
	require.NoError(t, err)
	require.Len(t, countries, 1)
	assert.Equal(t, "US", countries[0].ISO31661)

	languages, err := client.Languages(ctx)
	require.NoError(t, err)
	require.Len(t, languages, 1)
	assert.Equal(t, "Russian", languages[0].EnglishName)

	_, err = client.Genres(ctx, MediaType("anime"), "en")
	assert.Error(t, err)
}

func TestEndpointBuilders(t *testing.T) {
	req := MovieRequest(550)
	assert.Equal(t, "/movie/550", req.Path)
	assert.Equal(t, "translations,credits", req.Query.Get("append_to_response"))
	assert.True(t, req.Cacheable)

	assert.Equal(t, "/tv/1399/season/3", SeasonRequest(1399, 3).Path)
	assert.Equal(t, "/tv/1399/season/3/episode/9/translations", EpisodeTranslationsRequest(1399, 3, 9).Path)
	assert.Equal(t, "translations,combined_credits", PersonRequest(287).Query.Get("append_to_response"))
	assert.Equal(t, DiscoverTVPath, DiscoverPath(MediaTV))
	assert.Equal(t, DiscoverMoviePath, DiscoverPath(MediaMovie))

	client := NewClient("key", WithBaseURL("https://example.test/3/"))
	assert.Equal(t, "https://example.test/3/tv/5?append_to_response=translations&language=en", client.endpoint(SeriesRequest(5)))
}
