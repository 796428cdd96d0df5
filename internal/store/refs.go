package store

import (
	"context"
	"fmt"

	"github.com/CHRISHLOH/tmdb-etl/internal/transform"
)

// LoadReferenceMaps reads the dictionary tables the content and person
// transforms resolve against.
func LoadReferenceMaps(ctx context.Context, s Store) (transform.RefMaps, error) {
	var refs transform.RefMaps
	var err error

	if refs.Genres, err = s.QueryKeys(ctx, "SELECT id, genre FROM genres"); err != nil {
		return refs, fmt.Errorf("failed to load genres: %w", err)
	}
	if refs.Countries, err = s.QueryKeys(ctx, "SELECT id, iso_code FROM countries"); err != nil {
		return refs, fmt.Errorf("failed to load countries: %w", err)
	}
	if refs.Careers, err = s.QueryKeys(ctx, "SELECT id, career FROM careers"); err != nil {
		return refs, fmt.Errorf("failed to load careers: %w", err)
	}
	return refs, nil
}

// ContentIDs returns up to limit stored ids of contentType, lowest first.
func ContentIDs(ctx context.Context, s Store, contentType string, limit int) ([]int64, error) {
	return s.QueryIDs(ctx, "SELECT id FROM content WHERE content_type = $1 ORDER BY id LIMIT $2", contentType, limit)
}

// TableCounts returns the row count of every table.
func TableCounts(ctx context.Context, s Store) (map[string]int64, error) {
	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		n, err := s.Count(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
