package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/CHRISHLOH/tmdb-etl/internal/cache"
	"github.com/CHRISHLOH/tmdb-etl/internal/config"
	"github.com/CHRISHLOH/tmdb-etl/internal/discovery"
	"github.com/CHRISHLOH/tmdb-etl/internal/metrics"
	"github.com/CHRISHLOH/tmdb-etl/internal/notify"
	"github.com/CHRISHLOH/tmdb-etl/internal/pipeline"
	"github.com/CHRISHLOH/tmdb-etl/internal/ratelimit"
	"github.com/CHRISHLOH/tmdb-etl/internal/snapshot"
	"github.com/CHRISHLOH/tmdb-etl/internal/store"
	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
	"github.com/CHRISHLOH/tmdb-etl/internal/tui"
)

const runCompletedEvent = "run.completed"

// RunCmd harvests and loads the selected stages.
type RunCmd struct {
	Stage          string  `help:"Stage to run" enum:"dictionaries,movies,series,persons,all" default:"all"`
	TargetCount    int     `help:"Number of titles or persons to harvest per stage" default:"100"`
	MinVotes       int     `help:"Minimum vote count for discovered titles" default:"100"`
	MinVoteAverage float64 `help:"Minimum vote average for discovered titles" default:"0"`
	MinPopularity  float64 `help:"Minimum popularity for export-based discovery and popular persons" default:"0"`
	Strategy       string  `help:"Discovery strategy" enum:"direct,segmented,export" default:"direct"`
	YearFrom       int     `help:"Oldest release year for segmented discovery" default:"2000"`
	YearTo         int     `help:"Newest release year for segmented discovery (defaults to the current year)"`
	LoadEpisodes   bool    `help:"Also fetch per-episode translations (slow)"`
	PersonsSource  string  `help:"Where person ids come from" enum:"popular,content" default:"popular"`
	Report         string  `help:"Write the run summary to this file (YAML, or JSON for a .json path)"`
	Progress       bool    `help:"Show a terminal progress view"`
}

// MigrateCmd applies the schema and prints the table counts.
type MigrateCmd struct{}

func (r *RunCmd) options() (pipeline.Options, error) {
	stages, err := pipeline.ParseStage(r.Stage)
	if err != nil {
		return pipeline.Options{}, err
	}
	kind, err := discovery.ParseKind(r.Strategy)
	if err != nil {
		return pipeline.Options{}, err
	}

	yearTo := r.YearTo
	if yearTo == 0 {
		yearTo = time.Now().Year()
	}

	opts := pipeline.Options{
		Stages:         stages,
		TargetCount:    r.TargetCount,
		MinVotes:       r.MinVotes,
		MinVoteAverage: r.MinVoteAverage,
		MinPopularity:  r.MinPopularity,
		Strategy:       kind,
		YearFrom:       r.YearFrom,
		YearTo:         yearTo,
		LoadEpisodes:   r.LoadEpisodes,
		PersonsSource:  r.PersonsSource,
	}
	return opts, opts.Validate()
}

func (r *RunCmd) Run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := r.options()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init("tmdb-etl", version)
	if cfg.MetricsAddr != "" {
		srv, err := metrics.Start(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Failed to stop metrics server", "error", err)
			}
		}()
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	client, closeCache, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	runnerOpts := []pipeline.Option{
		pipeline.WithLocales(cfg.TargetLocales),
		pipeline.WithChunkSize(cfg.ChunkSize),
		pipeline.WithWorkers(cfg.MaxConcurrent),
		pipeline.WithRequestRate(cfg.RequestsPerSecond),
	}
	if opts.Strategy == discovery.KindBulkExport {
		downloader, err := newDownloader(cfg)
		if err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, pipeline.WithSnapshots(downloader))
	}

	stopProgress := func() {}
	if r.Progress {
		view := tui.StartProgress(stop)
		stopProgress = view.Stop
		runnerOpts = append(runnerOpts, pipeline.WithProgress(view.Report))
	}

	runner := pipeline.NewRunner(client, st, runnerOpts...)
	summary, runErr := runner.Run(ctx, opts)
	stopProgress()
	if summary == nil {
		return runErr
	}

	fmt.Fprintln(stdout, summary.Render())

	stats := client.Stats()
	slog.Info("Request totals",
		"requests", humanize.Comma(stats.Requests),
		"throttled", stats.Throttled,
		"retries", stats.Retries,
		"cache_hits", stats.CacheHits,
		"throttle_waited", stats.ThrottleWaited.Round(time.Millisecond),
	)

	if r.Report != "" {
		if err := summary.WriteReport(r.Report); err != nil {
			slog.Error("Failed to write run report", "path", r.Report, "error", err)
		} else {
			slog.Info("Wrote run report", "path", r.Report)
		}
	}

	if cfg.NATSURL != "" {
		publishSummary(cfg, summary)
	}

	return runErr
}

func newClient(cfg *config.Config) (*tmdb.Client, func(), error) {
	gates := ratelimit.NewGates(ratelimit.GateConfig{
		MaxConcurrent:     cfg.MaxConcurrent,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})

	opts := []tmdb.Option{
		tmdb.WithBaseURL(cfg.APIBaseURL),
		tmdb.WithGates(gates),
		tmdb.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		tmdb.WithRetryAttempts(cfg.RetryAttempts),
		tmdb.WithThrottleBudget(cfg.ThrottleBudget),
	}
	if cfg.ReferenceRPS > 0 {
		opts = append(opts, tmdb.WithReferenceLimiter(ratelimit.New("TMDB reference", cfg.ReferenceRPS)))
	}

	closeCache := func() {}
	if cfg.CacheDBFile != "" {
		db, err := cache.NewCacheDB(cfg.CacheDBFile, cache.WithTTL(cfg.CacheTTL))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		opts = append(opts, tmdb.WithCache(db))
		closeCache = func() { _ = db.Close() }
	}

	return tmdb.NewClient(cfg.TMDBToken, opts...), closeCache, nil
}

func newDownloader(cfg *config.Config) (*snapshot.Downloader, error) {
	var opts []snapshot.Option
	if cfg.S3.Enabled() {
		mirror, err := snapshot.NewMinioMirror(snapshot.MinioConfig{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure export mirror: %w", err)
		}
		opts = append(opts, snapshot.WithMirror(mirror))
	}
	return snapshot.NewDownloader(cfg.ExportBaseURL, filepath.Join(cfg.DataDir, "exports"), opts...), nil
}

// publishSummary is best effort; a broker outage never fails a finished run.
func publishSummary(cfg *config.Config, summary *pipeline.Summary) {
	publisher, err := notify.Connect(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		slog.Warn("Failed to connect to NATS", "url", cfg.NATSURL, "error", err)
		return
	}
	defer publisher.Close()

	if err := publisher.Publish(runCompletedEvent, summary); err != nil {
		slog.Warn("Failed to publish run summary", "error", err)
	}
}

func (m *MigrateCmd) Run() error {
	cfg := config.Load()
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	counts, err := store.TableCounts(ctx, st)
	if err != nil {
		return err
	}
	for _, table := range store.Tables {
		fmt.Fprintf(stdout, "%-28s %s\n", table, humanize.Comma(counts[table]))
	}
	slog.Info("Migrations applied", "driver", st.Driver())
	return nil
}
