package cache

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// ClearCacheCmd removes cached responses.
type ClearCacheCmd struct {
	Expired bool `help:"Only remove entries past their TTL"`
}

func (c *ClearCacheCmd) Run() error {
	cacheDB := viper.GetString("cache.dbfile")
	if cacheDB == "" {
		return fmt.Errorf("no cache database configured; set --cache-db or cache.dbfile")
	}

	slog.Info("Clearing cache", "database", cacheDB, "expired_only", c.Expired)

	ttl := viper.GetDuration("cache.ttl")
	db, err := NewCacheDB(cacheDB, WithTTL(ttl))
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = db.Close() }()

	var rowsDeleted int64
	if c.Expired {
		rowsDeleted, err = db.ClearExpired()
	} else {
		rowsDeleted, err = db.ClearAll()
	}
	if err != nil {
		return err
	}

	slog.Info("Cache cleared", "rows_deleted", humanize.Comma(rowsDeleted))
	return nil
}
