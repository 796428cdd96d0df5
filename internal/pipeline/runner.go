// Package pipeline runs the ETL stages: reference dictionaries first, then
// movies, series and persons. Each content stage discovers IDs, fetches
// details, transforms them into rows and loads them in one transaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CHRISHLOH/tmdb-etl/internal/detail"
	"github.com/CHRISHLOH/tmdb-etl/internal/discovery"
	etlerrors "github.com/CHRISHLOH/tmdb-etl/internal/errors"
	"github.com/CHRISHLOH/tmdb-etl/internal/loader"
	"github.com/CHRISHLOH/tmdb-etl/internal/metrics"
	"github.com/CHRISHLOH/tmdb-etl/internal/store"
	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// API is the upstream surface a run reads from. *tmdb.Client implements it.
type API interface {
	discovery.PageSource
	detail.Source
	Genres(ctx context.Context, media tmdb.MediaType, language string) ([]tmdb.Genre, error)
	Countries(ctx context.Context) ([]tmdb.CountryInfo, error)
	Languages(ctx context.Context) ([]tmdb.LanguageInfo, error)
}

// Runner executes the stages of one run. Build a new Runner, with a fresh
// client and gates, for every run.
type Runner struct {
	api       API
	store     store.Store
	snapshots discovery.SnapshotSource
	locales   []string
	chunkSize int
	workers   int
	rps       int
	progress  detail.ProgressFunc
	runID     string
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithSnapshots enables the export strategy.
func WithSnapshots(source discovery.SnapshotSource) Option {
	return func(r *Runner) {
		r.snapshots = source
	}
}

// WithLocales sets the target locales.
func WithLocales(locales []string) Option {
	return func(r *Runner) {
		if len(locales) > 0 {
			r.locales = locales
		}
	}
}

// WithChunkSize sets the loader batch size.
func WithChunkSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// WithWorkers bounds the goroutines of each detail fan-out.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		r.workers = n
	}
}

// WithRequestRate sets the rate used for time estimates.
func WithRequestRate(rps int) Option {
	return func(r *Runner) {
		r.rps = rps
	}
}

// WithProgress reports fan-out progress.
func WithProgress(fn detail.ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// WithNow replaces the clock used for elapsed times.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a runner reading from api and writing to st.
func NewRunner(api API, st store.Store, opts ...Option) *Runner {
	r := &Runner{
		api:       api,
		store:     st,
		locales:   []string{"en"},
		chunkSize: loader.DefaultChunkSize,
		runID:     uuid.NewString(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID identifies this run in logs, reports and events.
func (r *Runner) RunID() string {
	return r.runID
}

// strategies holds the discovery strategy of every selected stage.
type strategies struct {
	movies  discovery.Strategy
	series  discovery.Strategy
	persons discovery.Strategy
}

// Run validates opts, then runs the selected stages in order. A failed
// dictionaries stage stops the run; other failures are recorded and the
// remaining stages still run. The summary is returned even on error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	plan, err := r.strategies(opts)
	if err != nil {
		return nil, err
	}

	summary := &Summary{RunID: r.runID, StartedAt: r.now()}
	logger := slog.With("run_id", r.runID)
	logger.Info("Starting run", "stages", opts.Stages, "target", opts.TargetCount, "strategy", opts.Strategy)

	var errs []error
	for i, stage := range opts.Stages {
		result, err := r.runStage(ctx, logger, stage, opts, plan)
		summary.Stages = append(summary.Stages, result)
		if err == nil {
			continue
		}

		fatal := stage == StageDictionaries
		errs = append(errs, etlerrors.NewStageError(string(stage), fatal, err))
		if fatal || ctx.Err() != nil {
			for _, rest := range opts.Stages[i+1:] {
				summary.Stages = append(summary.Stages, StageResult{Stage: rest, Status: StatusSkipped})
			}
			break
		}
	}

	summary.Duration = r.now().Sub(summary.StartedAt)
	logger.Info("Run finished", "duration", summary.Duration.Round(time.Millisecond), "failed", summary.Failed())
	return summary, errors.Join(errs...)
}

func (r *Runner) strategies(opts Options) (strategies, error) {
	var plan strategies
	var err error

	if opts.has(StageMovies) {
		if plan.movies, err = r.newStrategy(tmdb.MediaMovie, opts); err != nil {
			return plan, err
		}
	}
	if opts.has(StageSeries) {
		if plan.series, err = r.newStrategy(tmdb.MediaTV, opts); err != nil {
			return plan, err
		}
	}
	if opts.has(StagePersons) && opts.PersonsSource == PersonsFromPopular {
		plan.persons, err = discovery.NewDirect(discovery.DirectConfig{
			Path:          tmdb.PopularPersonPath,
			Target:        opts.TargetCount,
			MinPopularity: opts.MinPopularity,
		}, r.api)
		if err != nil {
			return plan, err
		}
	}
	return plan, nil
}

func (r *Runner) newStrategy(media tmdb.MediaType, opts Options) (discovery.Strategy, error) {
	filters := discovery.ListingFilters(media, opts.MinVotes, opts.MinVoteAverage)

	switch opts.Strategy {
	case discovery.KindDirect, "":
		// Listings are already filtered server side; MinPopularity only
		// applies to export ranking and popular persons.
		return discovery.NewDirect(discovery.DirectConfig{
			Path:    tmdb.DiscoverPath(media),
			Target:  opts.TargetCount,
			Filters: filters,
		}, r.api)
	case discovery.KindSegmented:
		return discovery.NewSegmented(discovery.SegmentedConfig{
			Media:    media,
			Target:   opts.TargetCount,
			YearFrom: opts.YearFrom,
			YearTo:   opts.YearTo,
			Filters:  filters,
		}, r.api)
	case discovery.KindBulkExport:
		if r.snapshots == nil {
			return nil, etlerrors.NewConfigurationError("strategy", "export strategy needs a snapshot directory")
		}
		return discovery.NewBulkExport(discovery.BulkExportConfig{
			Media:         media,
			Target:        opts.TargetCount,
			MinPopularity: opts.MinPopularity,
		}, r.snapshots)
	}
	return nil, etlerrors.NewConfigurationError("strategy", fmt.Sprintf("unknown strategy %q", opts.Strategy))
}

func (r *Runner) runStage(ctx context.Context, logger *slog.Logger, stage Stage, opts Options, plan strategies) (StageResult, error) {
	result := StageResult{Stage: stage}
	start := r.now()
	logger.Info("Starting stage", "stage", stage)

	var err error
	switch stage {
	case StageDictionaries:
		err = r.dictionaries(ctx, &result)
	case StageMovies:
		err = r.movies(ctx, plan.movies, &result)
	case StageSeries:
		err = r.series(ctx, plan.series, opts.LoadEpisodes, &result)
	case StagePersons:
		err = r.persons(ctx, opts, plan.persons, &result)
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}

	result.Elapsed = r.now().Sub(start)
	result.Status = StatusOK
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		logger.Error("Stage failed", "stage", stage, "elapsed", result.Elapsed.Round(time.Millisecond), "error", err)
	} else {
		logger.Info("Stage finished",
			"stage", stage,
			"elapsed", result.Elapsed.Round(time.Millisecond),
			"rows", result.Loaded,
			"dropped", result.Dropped,
		)
	}
	metrics.StageDuration.WithLabelValues(string(stage), string(result.Status)).Observe(result.Elapsed.Seconds())
	return result, err
}
