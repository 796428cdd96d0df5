package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	etlerrors "github.com/CHRISHLOH/tmdb-etl/internal/errors"
	"github.com/CHRISHLOH/tmdb-etl/internal/testutil"
)

func TestLoadDefaults(t *testing.T) {
	testutil.ResetViper(t)
	SetDefaults()

	cfg := Load()

	assert.Equal(t, "https://api.themoviedb.org/3", cfg.APIBaseURL)
	assert.Equal(t, 18, cfg.MaxConcurrent)
	assert.Equal(t, 45, cfg.RequestsPerSecond)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Duration(0), cfg.ThrottleBudget)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, []string{"en", "ru"}, cfg.TargetLocales)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, "content_service", cfg.DatabaseSchema)
	assert.Equal(t, 720*time.Hour, cfg.CacheTTL)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	testutil.ResetViper(t)
	t.Setenv("TMDB_BEARER_TOKEN", "token-123")
	t.Setenv("DATABASE_URL", "postgres://localhost/catalog")
	t.Setenv("TARGET_LOCALES", " en , de ,,fr")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_BUCKET", "exports")

	SetDefaults()
	require.NoError(t, BindEnv())

	cfg := Load()
	assert.Equal(t, "token-123", cfg.TMDBToken)
	assert.Equal(t, "postgres://localhost/catalog", cfg.DatabaseURL)
	assert.Equal(t, []string{"en", "de", "fr"}, cfg.TargetLocales)
	assert.True(t, cfg.S3.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			TMDBToken:         "t",
			DatabaseURL:       "file:test.db",
			DatabaseDriver:    DriverSQLite,
			ChunkSize:         1000,
			TargetLocales:     []string{"en"},
			MaxConcurrent:     18,
			RequestsPerSecond: 45,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "missing token", mutate: func(c *Config) { c.TMDBToken = "" }, field: "tmdb.token"},
		{name: "no locales", mutate: func(c *Config) { c.TargetLocales = nil }, field: "locales"},
		{name: "zero concurrency", mutate: func(c *Config) { c.MaxConcurrent = 0 }, field: "tmdb.maxconcurrent"},
		{name: "zero rps", mutate: func(c *Config) { c.RequestsPerSecond = 0 }, field: "tmdb.rps"},
		{name: "unknown driver", mutate: func(c *Config) { c.DatabaseDriver = "mysql" }, field: "database.driver"},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = "" }, field: "database.url"},
		{name: "bad chunk size", mutate: func(c *Config) { c.ChunkSize = -1 }, field: "database.chunksize"},
	}

	require.NoError(t, base().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, etlerrors.IsConfigurationError(err))

			var cfgErr *etlerrors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseLocales(t *testing.T) {
	assert.Nil(t, ParseLocales(""))
	assert.Equal(t, []string{"en"}, ParseLocales("en"))
	assert.Equal(t, []string{"en", "ru"}, ParseLocales("en, ru ,"))
}

func TestViperOverrideWins(t *testing.T) {
	testutil.ResetViper(t)
	SetDefaults()
	viper.Set("tmdb.rps", 10)

	assert.Equal(t, 10, Load().RequestsPerSecond)
}
