// Package discovery produces the candidate ID list for a run. Strategies
// are a closed set: Direct, Segmented and BulkExport.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	etlerrors "github.com/CHRISHLOH/tmdb-etl/internal/errors"
	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// Kind names a discovery strategy.
type Kind string

const (
	KindDirect     Kind = "direct"
	KindSegmented  Kind = "segmented"
	KindBulkExport Kind = "export"
)

// Kinds lists every strategy in CLI order.
var Kinds = []Kind{KindDirect, KindSegmented, KindBulkExport}

// ParseKind maps a CLI name onto a Kind.
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case KindDirect:
		return KindDirect, nil
	case KindSegmented, "discover-segmented":
		return KindSegmented, nil
	case KindBulkExport:
		return KindBulkExport, nil
	}
	return "", etlerrors.NewConfigurationError("strategy", fmt.Sprintf("unknown strategy %q", name))
}

// Strategy produces a deduplicated list of at most the configured target
// number of IDs. Implementations live in this package only.
type Strategy interface {
	Kind() Kind
	Discover(ctx context.Context) ([]int64, error)
	sealed()
}

// PageSource fetches one listing page. *tmdb.Client implements it.
type PageSource interface {
	FetchPage(ctx context.Context, path string, page int, filters url.Values) (tmdb.PageResult, bool)
}

// IDSet is a concurrency-safe set of seen IDs. Its lifetime is one Discover call.
type IDSet struct {
	mu   sync.Mutex
	seen map[int64]struct{}
}

// NewIDSet creates an empty set.
func NewIDSet() *IDSet {
	return &IDSet{seen: make(map[int64]struct{})}
}

// Add inserts id and reports whether it was not already present.
func (s *IDSet) Add(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Contains reports whether id has been added.
func (s *IDSet) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of distinct IDs.
func (s *IDSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// ListingFilters builds the discover query shared by Direct and Segmented.
func ListingFilters(media tmdb.MediaType, minVotes int, minVoteAverage float64) url.Values {
	filters := url.Values{
		"sort_by":       {"popularity.desc"},
		"include_adult": {"false"},
	}
	if media == tmdb.MediaMovie {
		filters.Set("include_video", "false")
	}
	if minVotes > 0 {
		filters.Set("vote_count.gte", strconv.Itoa(minVotes))
	}
	if minVoteAverage > 0 {
		filters.Set("vote_average.gte", strconv.FormatFloat(minVoteAverage, 'f', -1, 64))
	}
	return filters
}

// pagesFor returns how many pages hold n items, capped at the listing limit.
func pagesFor(n int) int {
	pages := (n + tmdb.PageSize - 1) / tmdb.PageSize
	if pages > tmdb.MaxPages {
		return tmdb.MaxPages
	}
	return pages
}

func validateTarget(target int) error {
	if target <= 0 {
		return etlerrors.NewConfigurationError("target-count", "must be positive")
	}
	return nil
}
