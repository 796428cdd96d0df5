package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/CHRISHLOH/tmdb-etl/internal/cache"
	"github.com/CHRISHLOH/tmdb-etl/internal/config"
	"github.com/CHRISHLOH/tmdb-etl/internal/detail"
)

// version is overridden at build time with -ldflags.
var version = "dev"

var stdout io.Writer = os.Stdout

// CLI represents the complete command structure for the tmdb-etl application
type CLI struct {
	LogLevel string `help:"Log level" enum:"debug,info,warn,error" default:"info"`
	LogJSON  bool   `name:"log-json" help:"Emit logs as JSON"`

	DatabaseURL    string `help:"Database connection string or SQLite file (DATABASE_URL)"`
	DatabaseDriver string `help:"Database driver: postgres or sqlite (DATABASE_DRIVER)"`
	CacheDB        string `name:"cache-db" help:"Path to the response cache database; empty disables caching"`
	MetricsAddr    string `help:"Serve Prometheus metrics on this address, e.g. :9090"`
	MaxConcurrent  int    `help:"Maximum concurrent TMDB connections"`
	RPS            int    `name:"rps" help:"Maximum TMDB requests per second"`

	Run      RunCmd      `cmd:"" help:"Harvest TMDB data and load it into the database"`
	Migrate  MigrateCmd  `cmd:"" help:"Apply database migrations"`
	Estimate EstimateCmd `cmd:"" help:"Estimate the request volume of a run without touching the network"`
	Cache    CacheCmd    `cmd:"" help:"Manage the response cache"`
}

// CacheCmd groups the cache maintenance commands.
type CacheCmd struct {
	Clear cache.ClearCacheCmd `cmd:"" help:"Remove cached responses"`
}

// EstimateCmd prints the expected request volume for a target count.
type EstimateCmd struct {
	TargetCount  int  `help:"Number of titles per media type" default:"100"`
	LoadEpisodes bool `help:"Include per-episode translation requests"`
}

func cliOptions() []kong.Option {
	return []kong.Option{
		kong.Name("tmdb-etl"),
		kong.Description("Harvest movies, series and persons from TMDB into the content database."),
		kong.UsageOnError(),
	}
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI
	ctx := kong.Parse(&cli, cliOptions()...)

	initLogging(logWriter(&cli), cli.LogLevel, cli.LogJSON)

	if err := initConfig(); err != nil {
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}
	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// initConfig registers defaults and environment bindings, then merges an
// optional config.yaml from the working directory.
func initConfig() error {
	config.SetDefaults()
	if err := config.BindEnv(); err != nil {
		return fmt.Errorf("failed to bind environment variables: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Debug("Config file not found, using defaults and environment")
			return nil
		}
		return err
	}
	slog.Debug("Loaded config file", "path", viper.ConfigFileUsed())
	return nil
}

// updateGlobalConfig lets explicitly passed flags win over the config file
// and environment.
func updateGlobalConfig(cli *CLI) {
	if cli.DatabaseURL != "" {
		viper.Set("database.url", cli.DatabaseURL)
	}
	if cli.DatabaseDriver != "" {
		viper.Set("database.driver", cli.DatabaseDriver)
	}
	if cli.CacheDB != "" {
		viper.Set("cache.dbfile", cli.CacheDB)
	}
	if cli.MetricsAddr != "" {
		viper.Set("metrics.addr", cli.MetricsAddr)
	}
	if cli.MaxConcurrent > 0 {
		viper.Set("tmdb.maxconcurrent", cli.MaxConcurrent)
	}
	if cli.RPS > 0 {
		viper.Set("tmdb.rps", cli.RPS)
	}
}

func (e *EstimateCmd) Run() error {
	if e.TargetCount <= 0 {
		return fmt.Errorf("target count must be positive, got %d", e.TargetCount)
	}
	cfg := config.Load()

	movies := detail.EstimateMovies(e.TargetCount, cfg.RequestsPerSecond)
	series := detail.EstimateSeries(e.TargetCount, e.LoadEpisodes, cfg.RequestsPerSecond)

	fmt.Fprintf(stdout, "Estimate for %s titles per media type at %d req/s\n",
		humanize.Comma(int64(e.TargetCount)), cfg.RequestsPerSecond)
	fmt.Fprintf(stdout, "  movies: %s requests, ~%s\n", humanize.Comma(movies.Requests), movies.Duration.Round(time.Second))
	fmt.Fprintf(stdout, "  series: %s requests, ~%s\n", humanize.Comma(series.Requests), series.Duration.Round(time.Second))
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logWriter keeps logs off stdout while the progress view owns the terminal.
func logWriter(cli *CLI) io.Writer {
	if cli.Run.Progress {
		return os.Stderr
	}
	return os.Stdout
}

func initLogging(w io.Writer, level string, asJSON bool) {
	var handler slog.Handler
	if asJSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	} else {
		// Create a human-readable handler for logging
		handler = humanlog.NewHandler(w, &humanlog.Options{
			Level: parseLevel(level),
		})
	}

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
