package transform

import (
	"sort"

	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

type careerNames struct {
	career string
	en     string
	ru     string
}

var careers = []careerNames{
	{"actor", "Actor", "Актёр"},
	{"director", "Director", "Режиссёр"},
	{"writer", "Writer", "Сценарист"},
	{"producer", "Producer", "Продюсер"},
	{"cinematographer", "Cinematographer", "Оператор"},
	{"editor", "Editor", "Монтажёр"},
	{"composer", "Composer", "Композитор"},
	{"production_designer", "Production Designer", "Художник-постановщик"},
	{"costume_designer", "Costume Designer", "Художник по костюмам"},
	{"vfx_artist", "VFX Artist", "Художник по спецэффектам"},
	{"sound_designer", "Sound Designer", "Звукорежиссёр"},
	{"casting_director", "Casting Director", "Режиссёр по кастингу"},
	{"stunt_coordinator", "Stunt Coordinator", "Координатор трюков"},
	{"crew", "Crew", "Съёмочная группа"},
}

// fallbackCountries is loaded when the countries endpoint returns nothing.
var fallbackCountries = []CountryRow{
	{ISOCode: "US", Translations: map[string]string{"en": "United States", "ru": "США"}},
	{ISOCode: "GB", Translations: map[string]string{"en": "United Kingdom", "ru": "Великобритания"}},
	{ISOCode: "FR", Translations: map[string]string{"en": "France", "ru": "Франция"}},
	{ISOCode: "DE", Translations: map[string]string{"en": "Germany", "ru": "Германия"}},
	{ISOCode: "RU", Translations: map[string]string{"en": "Russia", "ru": "Россия"}},
	{ISOCode: "JP", Translations: map[string]string{"en": "Japan", "ru": "Япония"}},
	{ISOCode: "KR", Translations: map[string]string{"en": "South Korea", "ru": "Южная Корея"}},
	{ISOCode: "CN", Translations: map[string]string{"en": "China", "ru": "Китай"}},
	{ISOCode: "IN", Translations: map[string]string{"en": "India", "ru": "Индия"}},
	{ISOCode: "CA", Translations: map[string]string{"en": "Canada", "ru": "Канада"}},
}

// Careers returns the static career dictionary.
func Careers() []CareerRow {
	rows := make([]CareerRow, len(careers))
	for i, c := range careers {
		rows[i] = CareerRow{Career: c.career, Translations: map[string]string{"en": c.en, "ru": c.ru}}
	}
	return rows
}

// Genres merges genre lists fetched per locale by TMDB id. The machine
// name comes from the English name when one was fetched.
func Genres(byLocale map[string][]tmdb.Genre) []GenreRow {
	byID := make(map[int]map[string]string)

	locales := make([]string, 0, len(byLocale))
	for locale := range byLocale {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	for _, locale := range locales {
		for _, g := range byLocale[locale] {
			if g.Name == "" {
				continue
			}
			translations, ok := byID[g.ID]
			if !ok {
				translations = make(map[string]string)
				byID[g.ID] = translations
			}
			if _, seen := translations[locale]; !seen {
				translations[locale] = g.Name
			}
		}
	}

	byKey := make(map[string]GenreRow)
	for _, translations := range byID {
		english, ok := translations["en"]
		if !ok {
			for _, locale := range locales {
				if name, found := translations[locale]; found {
					english = name
					break
				}
			}
		}
		key := GenreKey(english)
		if existing, ok := byKey[key]; ok {
			for locale, name := range translations {
				if _, seen := existing.Translations[locale]; !seen {
					existing.Translations[locale] = name
				}
			}
			continue
		}
		byKey[key] = GenreRow{Genre: key, Translations: translations}
	}

	rows := make([]GenreRow, 0, len(byKey))
	for _, row := range byKey {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Genre < rows[j].Genre })
	return rows
}

// Countries converts the countries configuration, falling back to a small
// built-in list when it is empty.
func Countries(infos []tmdb.CountryInfo) []CountryRow {
	var rows []CountryRow
	seen := make(map[string]bool)
	for _, c := range infos {
		if c.ISO31661 == "" || seen[c.ISO31661] {
			continue
		}
		seen[c.ISO31661] = true
		translations := map[string]string{"en": c.EnglishName}
		if c.NativeName != "" {
			translations["native"] = c.NativeName
		}
		rows = append(rows, CountryRow{ISOCode: c.ISO31661, Translations: translations})
	}
	if len(rows) == 0 {
		rows = append(rows, fallbackCountries...)
	}
	return rows
}

// Languages converts the languages configuration.
func Languages(infos []tmdb.LanguageInfo) []LanguageRow {
	var rows []LanguageRow
	seen := make(map[string]bool)
	for _, l := range infos {
		if l.ISO6391 == "" || seen[l.ISO6391] {
			continue
		}
		seen[l.ISO6391] = true
		native := l.Name
		if native == "" {
			native = l.EnglishName
		}
		rows = append(rows, LanguageRow{
			ISOCode:      l.ISO6391,
			NativeName:   native,
			Translations: map[string]string{"en": l.EnglishName},
		})
	}
	return rows
}
