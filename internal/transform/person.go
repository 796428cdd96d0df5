package transform

import (
	"strings"

	"github.com/CHRISHLOH/tmdb-etl/internal/tmdb"
)

// DefaultCareer is used for departments without a mapping.
const DefaultCareer = "actor"

var careerByDepartment = map[string]string{
	"Acting":            "actor",
	"Directing":         "director",
	"Writing":           "writer",
	"Production":        "producer",
	"Camera":            "cinematographer",
	"Editing":           "editor",
	"Sound":             "composer",
	"Art":               "production_designer",
	"Costume & Make-Up": "costume_designer",
	"Visual Effects":    "vfx_artist",
	"Crew":              "crew",
}

// countryAliases maps the trailing part of a birth place onto an ISO code.
var countryAliases = map[string]string{
	"USA":            "US",
	"United States":  "US",
	"UK":             "GB",
	"United Kingdom": "GB",
	"England":        "GB",
	"Russia":         "RU",
	"USSR":           "RU",
	"France":         "FR",
	"Germany":        "DE",
	"Italy":          "IT",
	"Spain":          "ES",
	"Canada":         "CA",
	"Australia":      "AU",
	"Japan":          "JP",
	"China":          "CN",
	"India":          "IN",
	"South Korea":    "KR",
	"Mexico":         "MX",
	"Brazil":         "BR",
}

var genders = map[int]string{
	1: "female",
	2: "male",
	3: "other",
}

// CareerFor maps a TMDB department onto a career machine name.
func CareerFor(department string) string {
	if career, ok := careerByDepartment[department]; ok {
		return career
	}
	return DefaultCareer
}

// BirthCountry extracts an ISO country code from a place of birth such as
// "Brooklyn, New York, USA". Unknown names are returned as written.
func BirthCountry(place string) string {
	parts := strings.Split(place, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	if iso, ok := countryAliases[last]; ok {
		return iso
	}
	return last
}

// SplitName splits a display name on its first space.
func SplitName(name string) (first string, last *string) {
	first, rest, found := strings.Cut(strings.TrimSpace(name), " ")
	if !found {
		return first, nil
	}
	return first, nullString(strings.TrimSpace(rest))
}

// Persons builds the person row set.
func (t *Transformer) Persons(persons []tmdb.Person) PersonRows {
	var rows PersonRows
	for _, p := range persons {
		name := p.Name
		if name == "" {
			name = "Unknown"
		}
		first, last := SplitName(name)

		var countryID *int64
		if p.PlaceOfBirth != "" {
			if id, ok := t.refs.Countries[BirthCountry(p.PlaceOfBirth)]; ok {
				countryID = &id
			}
		}

		var gender *string
		if g, ok := genders[p.Gender]; ok {
			gender = &g
		}

		rows.Persons = append(rows.Persons, PersonRow{
			ID:               p.ID,
			OriginalName:     first,
			OriginalLastname: last,
			BirthDate:        nullString(p.Birthday),
			DeathDate:        nullString(p.Deathday),
			Gender:           gender,
			CountryID:        countryID,
			PhotoURL:         nullString(p.ProfilePath),
		})

		translations := t.translationsByLocale(p.Translations.Translations)
		for _, locale := range t.locales {
			localized := name
			if data, ok := translations[locale]; ok && locale != "en" && data.Name != "" {
				localized = data.Name
			}
			first, last := SplitName(localized)
			row := PersonTranslationRow{
				PersonID:       p.ID,
				Locale:         locale,
				LocaleName:     first,
				LocaleLastname: last,
			}
			if locale == "en" {
				row.Biography = nullString(p.Biography)
			}
			rows.Translations = append(rows.Translations, row)
		}

		department := p.KnownForDepartment
		if department == "" {
			department = "Acting"
		}
		if careerID, ok := t.refs.Careers[CareerFor(department)]; ok {
			rows.Careers = append(rows.Careers, PersonCareerRow{PersonID: p.ID, CareerID: careerID})
		}

		if countryID != nil {
			rows.Countries = append(rows.Countries, PersonCountryRow{PersonID: p.ID, CountryID: *countryID})
		}
	}
	return rows
}
