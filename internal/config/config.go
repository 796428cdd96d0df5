// Package config maps viper settings onto the typed run configuration.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	etlerrors "github.com/CHRISHLOH/tmdb-etl/internal/errors"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// S3Config points at an optional object store mirroring export snapshots.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether a mirror is configured.
func (s S3Config) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// Config is the resolved configuration for one process.
type Config struct {
	TMDBToken     string
	APIBaseURL    string
	ExportBaseURL string

	DatabaseURL    string
	DatabaseDriver string
	DatabaseSchema string
	ChunkSize      int

	TargetLocales []string
	DataDir       string

	MaxConcurrent     int
	RequestsPerSecond int
	ReferenceRPS      float64
	RequestTimeout    time.Duration
	RetryAttempts     int
	ThrottleBudget    time.Duration

	CacheDBFile string
	CacheTTL    time.Duration

	MetricsAddr string
	NATSURL     string
	NATSSubject string
	S3          S3Config
}

// SetDefaults registers every default with viper.
func SetDefaults() {
	viper.SetDefault("tmdb.baseurl", "https://api.themoviedb.org/3")
	viper.SetDefault("tmdb.exportbaseurl", "https://files.tmdb.org/p/exports")
	viper.SetDefault("tmdb.maxconcurrent", 18)
	viper.SetDefault("tmdb.rps", 45)
	viper.SetDefault("tmdb.referencerps", 9)
	viper.SetDefault("tmdb.timeout", "10s")
	viper.SetDefault("tmdb.retryattempts", 3)
	viper.SetDefault("tmdb.throttlebudget", "0s")

	viper.SetDefault("database.driver", DriverPostgres)
	viper.SetDefault("database.schema", "content_service")
	viper.SetDefault("database.chunksize", 1000)

	viper.SetDefault("locales", "en,ru")
	viper.SetDefault("datadir", "./data")

	viper.SetDefault("cache.ttl", "720h") // 30 days
	viper.SetDefault("nats.subject", "tmdb.etl.run.completed")
	viper.SetDefault("s3.usessl", true)
}

// BindEnv binds the environment variables the ETL has always read.
func BindEnv() error {
	viper.AutomaticEnv()
	bindings := map[string]string{
		"tmdb.token":      "TMDB_BEARER_TOKEN",
		"database.url":    "DATABASE_URL",
		"database.driver": "DATABASE_DRIVER",
		"locales":         "TARGET_LOCALES",
		"datadir":         "DATA_DIR",
		"nats.url":        "NATS_URL",
		"s3.endpoint":     "S3_ENDPOINT",
		"s3.accesskey":    "S3_ACCESS_KEY",
		"s3.secretkey":    "S3_SECRET_KEY",
		"s3.bucket":       "S3_BUCKET",
		"s3.region":       "S3_REGION",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the current viper state.
func Load() *Config {
	return &Config{
		TMDBToken:     viper.GetString("tmdb.token"),
		APIBaseURL:    viper.GetString("tmdb.baseurl"),
		ExportBaseURL: viper.GetString("tmdb.exportbaseurl"),

		DatabaseURL:    viper.GetString("database.url"),
		DatabaseDriver: strings.ToLower(viper.GetString("database.driver")),
		DatabaseSchema: viper.GetString("database.schema"),
		ChunkSize:      viper.GetInt("database.chunksize"),

		TargetLocales: ParseLocales(viper.GetString("locales")),
		DataDir:       viper.GetString("datadir"),

		MaxConcurrent:     viper.GetInt("tmdb.maxconcurrent"),
		RequestsPerSecond: viper.GetInt("tmdb.rps"),
		ReferenceRPS:      viper.GetFloat64("tmdb.referencerps"),
		RequestTimeout:    viper.GetDuration("tmdb.timeout"),
		RetryAttempts:     viper.GetInt("tmdb.retryattempts"),
		ThrottleBudget:    viper.GetDuration("tmdb.throttlebudget"),

		CacheDBFile: viper.GetString("cache.dbfile"),
		CacheTTL:    viper.GetDuration("cache.ttl"),

		MetricsAddr: viper.GetString("metrics.addr"),
		NATSURL:     viper.GetString("nats.url"),
		NATSSubject: viper.GetString("nats.subject"),
		S3: S3Config{
			Endpoint:  viper.GetString("s3.endpoint"),
			AccessKey: viper.GetString("s3.accesskey"),
			SecretKey: viper.GetString("s3.secretkey"),
			Bucket:    viper.GetString("s3.bucket"),
			Region:    viper.GetString("s3.region"),
			UseSSL:    viper.GetBool("s3.usessl"),
		},
	}
}

// ParseLocales splits a comma separated locale list, dropping blanks.
func ParseLocales(raw string) []string {
	var locales []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			locales = append(locales, part)
		}
	}
	return locales
}

// ValidateDatabase checks the settings every database command needs.
func (c *Config) ValidateDatabase() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return etlerrors.NewConfigurationError("database.driver", "must be postgres or sqlite, got "+c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return etlerrors.NewConfigurationError("database.url", "is required (DATABASE_URL)")
	}
	if c.ChunkSize <= 0 {
		return etlerrors.NewConfigurationError("database.chunksize", "must be positive")
	}
	return nil
}

// Validate checks everything a harvesting run needs before it touches the network.
func (c *Config) Validate() error {
	if c.TMDBToken == "" {
		return etlerrors.NewConfigurationError("tmdb.token", "is required (TMDB_BEARER_TOKEN)")
	}
	if len(c.TargetLocales) == 0 {
		return etlerrors.NewConfigurationError("locales", "at least one target locale is required")
	}
	if c.MaxConcurrent <= 0 {
		return etlerrors.NewConfigurationError("tmdb.maxconcurrent", "must be positive")
	}
	if c.RequestsPerSecond <= 0 {
		return etlerrors.NewConfigurationError("tmdb.rps", "must be positive")
	}
	return c.ValidateDatabase()
}
