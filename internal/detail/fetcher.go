// Package detail fetches full records for discovered IDs. Failures are
// dropped per item so one bad ID never sinks a batch.
package detail

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CHRISHLOH/tmdb-etl/internal/metrics"
	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// defaultWorkers bounds spawned goroutines. The connection gate inside the
// client is what bounds requests actually in flight.
const defaultWorkers = 64

// Source performs one gated, retried request. *tmdb.Client implements it.
type Source interface {
	Fetch(ctx context.Context, req tmdb.Request) tmdb.Outcome
}

// ProgressFunc is told how far a fan-out has come.
type ProgressFunc func(label string, done, total int)

// Fetcher issues detail requests concurrently.
type Fetcher struct {
	source       Source
	workers      int
	loadEpisodes bool
	estimateRate int
	progress     ProgressFunc
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithWorkers sets how many goroutines a fan-out may run at once.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithEpisodeTranslations enables the per-episode translation fan-out.
func WithEpisodeTranslations(enabled bool) Option {
	return func(f *Fetcher) {
		f.loadEpisodes = enabled
	}
}

// WithEstimateRate sets the request rate used for time estimates.
func WithEstimateRate(rps int) Option {
	return func(f *Fetcher) {
		if rps > 0 {
			f.estimateRate = rps
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(f *Fetcher) {
		f.progress = fn
	}
}

// NewFetcher creates a Fetcher reading from source.
func NewFetcher(source Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:       source,
		workers:      defaultWorkers,
		estimateRate: defaultEstimateRate,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Batch is the result of one fan-out. Items carry no ordering guarantee.
type Batch[T any] struct {
	Items     []T
	Requested int
	NotFound  int
	Failed    int
}

// Dropped returns how many requested items are missing from Items.
func (b Batch[T]) Dropped() int {
	return b.NotFound + b.Failed
}

// Movies fetches movie details with translations and credits.
func (f *Fetcher) Movies(ctx context.Context, ids []int64) (Batch[tmdb.Movie], error) {
	return fetchAll[tmdb.Movie](ctx, f, "movie", ids, tmdb.MovieRequest)
}

// Persons fetches person details with translations and combined credits.
func (f *Fetcher) Persons(ctx context.Context, ids []int64) (Batch[tmdb.Person], error) {
	return fetchAll[tmdb.Person](ctx, f, "person", ids, tmdb.PersonRequest)
}

// fetchAll issues one request per ID and keeps what decodes.
func fetchAll[T any](ctx context.Context, f *Fetcher, entity string, ids []int64, build func(int64) tmdb.Request) (Batch[T], error) {
	batch := Batch[T]{Requested: len(ids), Items: make([]T, 0, len(ids))}
	var mu sync.Mutex

	counts, err := f.fanOut(ctx, entity, len(ids), func(ctx context.Context, i int) tmdb.OutcomeKind {
		var item T
		kind := f.fetchOne(ctx, entity, build(ids[i]), &item)
		if kind == tmdb.OutcomeSuccess {
			mu.Lock()
			batch.Items = append(batch.Items, item)
			mu.Unlock()
		}
		return kind
	})
	batch.NotFound = counts.notFound
	batch.Failed = counts.failed
	if err != nil {
		return batch, err
	}

	if batch.Dropped() > 0 {
		slog.Warn("Dropped items from fan-out",
			"entity", entity,
			"requested", batch.Requested,
			"not_found", batch.NotFound,
			"failed", batch.Failed)
	}
	slog.Info("Fetched details", "entity", entity, "fetched", len(batch.Items), "requested", batch.Requested)
	return batch, nil
}

type fanOutCounts struct {
	succeeded int
	notFound  int
	failed    int
	cancelled int
}

// fanOut runs task for every index in 0..n-1 on the worker pool. Tasks
// report their outcome kind; nothing a task does aborts its siblings.
func (f *Fetcher) fanOut(ctx context.Context, label string, n int, task func(ctx context.Context, i int) tmdb.OutcomeKind) (fanOutCounts, error) {
	var (
		mu     sync.Mutex
		counts fanOutCounts
		done   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			kind := task(gctx, i)

			mu.Lock()
			switch {
			case kind == tmdb.OutcomeSuccess:
				counts.succeeded++
			case kind == tmdb.OutcomeNotFound:
				counts.notFound++
			case gctx.Err() != nil:
				// Interrupted, not failed upstream.
				counts.cancelled++
			default:
				counts.failed++
			}
			done++
			finished := done
			mu.Unlock()

			f.report(label, finished, n)
			return nil
		})
	}
	_ = g.Wait()
	return counts, ctx.Err()
}

// fetchOne performs req and decodes the payload into target. The returned
// kind is Success, NotFound or Permanent.
func (f *Fetcher) fetchOne(ctx context.Context, entity string, req tmdb.Request, target any) tmdb.OutcomeKind {
	out := f.source.Fetch(ctx, req)
	kind := out.Kind
	if out.Cancelled() {
		metrics.EntitiesFetched.WithLabelValues(entity, "cancelled").Inc()
		return kind
	}
	if out.OK() {
		if err := out.Decode(target); err != nil {
			slog.Debug("Dropping undecodable payload", "request", req.Hint, "error", err)
			kind = tmdb.OutcomePermanent
		}
	} else {
		slog.Debug("Dropping item", "request", req.Hint, "outcome", out.Kind, "error", out.Err())
	}
	metrics.EntitiesFetched.WithLabelValues(entity, kind.String()).Inc()
	return kind
}

func (f *Fetcher) report(label string, done, total int) {
	if f.progress != nil {
		f.progress(label, done, total)
	}
}
