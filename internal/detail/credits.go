package detail

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// MaxCreditSources caps how many stored movies are scanned for credits.
const MaxCreditSources = 1000

// Credits fetches the credits of up to MaxCreditSources movies and returns
// the top persons ranked by ScorePersons.
func (f *Fetcher) Credits(ctx context.Context, movieIDs []int64, top int) ([]int64, error) {
	if len(movieIDs) > MaxCreditSources {
		movieIDs = movieIDs[:MaxCreditSources]
	}

	var (
		mu      sync.Mutex
		credits []tmdb.Credits
	)
	counts, err := f.fanOut(ctx, "credits", len(movieIDs), func(ctx context.Context, i int) tmdb.OutcomeKind {
		var c tmdb.Credits
		kind := f.fetchOne(ctx, "credits", tmdb.CreditsRequest(movieIDs[i]), &c)
		if kind == tmdb.OutcomeSuccess {
			c.ID = movieIDs[i]
			mu.Lock()
			credits = append(credits, c)
			mu.Unlock()
		}
		return kind
	})
	if err != nil {
		return nil, err
	}

	ids := ScorePersons(credits, top)
	slog.Info("Collected persons from credits",
		"movies", len(movieIDs),
		"credits_dropped", counts.notFound+counts.failed,
		"persons", len(ids))
	return ids, nil
}

type personScore struct {
	id         int64
	popularity float64
	titles     map[int64]struct{}
}

// ScorePersons ranks everyone in credits by distinct titles times
// popularity and returns at most top IDs. A person's popularity is taken
// from their first appearance.
func ScorePersons(credits []tmdb.Credits, top int) []int64 {
	scores := make(map[int64]*personScore)
	add := func(personID, titleID int64, popularity float64) {
		s, ok := scores[personID]
		if !ok {
			s = &personScore{id: personID, popularity: popularity, titles: make(map[int64]struct{})}
			scores[personID] = s
		}
		s.titles[titleID] = struct{}{}
	}

	for _, c := range credits {
		for _, member := range c.Cast {
			add(member.ID, c.ID, member.Popularity)
		}
		for _, member := range c.Crew {
			add(member.ID, c.ID, member.Popularity)
		}
	}

	ranked := make([]*personScore, 0, len(scores))
	for _, s := range scores {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si := float64(len(ranked[i].titles)) * ranked[i].popularity
		sj := float64(len(ranked[j].titles)) * ranked[j].popularity
		if si != sj {
			return si > sj
		}
		return ranked[i].id < ranked[j].id
	})

	if top >= 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	ids := make([]int64, len(ranked))
	for i, s := range ranked {
		ids[i] = s.id
	}
	return ids
}
