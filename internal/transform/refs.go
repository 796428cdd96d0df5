package transform

import (
	"slices"
	"strings"

	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// RefMaps resolves reference data to stored ids.
type RefMaps struct {
	// Genres is keyed by machine name, see GenreKey.
	Genres map[string]int64
	// Countries is keyed by ISO 3166-1 code.
	Countries map[string]int64
	// Careers is keyed by career machine name.
	Careers map[string]int64
}

// GenreKey derives the machine name of a genre from its English name.
func GenreKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Transformer holds what every transform needs: the reference maps and
// the locales to keep.
type Transformer struct {
	refs    RefMaps
	locales []string
}

// New creates a Transformer. The first locale in locales is the default
// used for rows that have no translation of their own.
func New(refs RefMaps, locales []string) *Transformer {
	return &Transformer{refs: refs, locales: locales}
}

func (t *Transformer) wants(locale string) bool {
	return slices.Contains(t.locales, locale)
}

// defaultLocale prefers English when it is a target locale.
func (t *Transformer) defaultLocale() string {
	if t.wants("en") || len(t.locales) == 0 {
		return "en"
	}
	return t.locales[0]
}

// translationsByLocale keeps the first translation per target locale.
func (t *Transformer) translationsByLocale(list []tmdb.Translation) map[string]tmdb.TranslationData {
	out := make(map[string]tmdb.TranslationData)
	for _, tr := range list {
		if !t.wants(tr.ISO6391) {
			continue
		}
		if _, seen := out[tr.ISO6391]; !seen {
			out[tr.ISO6391] = tr.Data
		}
	}
	return out
}

// orderedLocales returns the target locales present in m, in target order.
func (t *Transformer) orderedLocales(m map[string]tmdb.TranslationData) []string {
	var out []string
	for _, locale := range t.locales {
		if _, ok := m[locale]; ok {
			out = append(out, locale)
		}
	}
	return out
}

func (t *Transformer) genres(contentID int64, genres []tmdb.Genre) []ContentGenreRow {
	var rows []ContentGenreRow
	seen := make(map[int64]bool)
	for idx, g := range genres {
		id, ok := t.refs.Genres[GenreKey(g.Name)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, ContentGenreRow{ContentID: contentID, GenreID: id, DisplayOrder: idx})
	}
	return rows
}

func (t *Transformer) countries(contentID int64, countries []tmdb.ProductionCountry) []ContentCountryRow {
	var rows []ContentCountryRow
	seen := make(map[int64]bool)
	for _, c := range countries {
		id, ok := t.refs.Countries[c.ISO31661]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, ContentCountryRow{ContentID: contentID, CountryID: id})
	}
	return rows
}
