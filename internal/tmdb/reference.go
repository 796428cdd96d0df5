package tmdb

import (
	"context"
	"fmt"
	"net/url"
)

// Reference-data requests are sequential and paced by the reference limiter
// before they enter the gates.

// Genres returns the genre list of media in language.
func (c *Client) Genres(ctx context.Context, media MediaType, language string) ([]Genre, error) {
	if !media.Valid() {
		return nil, fmt.Errorf("unknown media type %q", media)
	}
	var payload struct {
		Genres []Genre `json:"genres"`
	}
	req := Request{
		Path:  fmt.Sprintf("/genre/%s/list", media),
		Query: url.Values{"language": {language}},
		Hint:  fmt.Sprintf("%s genres (%s)", media, language),
	}
	if err := c.fetchReference(ctx, req, &payload); err != nil {
		return nil, err
	}
	return payload.Genres, nil
}

// Countries returns the configured country list.
func (c *Client) Countries(ctx context.Context) ([]CountryInfo, error) {
	var countries []CountryInfo
	if err := c.fetchReference(ctx, Request{Path: "/configuration/countries", Hint: "countries"}, &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

// Languages returns the configured language list.
func (c *Client) Languages(ctx context.Context) ([]LanguageInfo, error) {
	var languages []LanguageInfo
	if err := c.fetchReference(ctx, Request{Path: "/configuration/languages", Hint: "languages"}, &languages); err != nil {
		return nil, err
	}
	return languages, nil
}

func (c *Client) fetchReference(ctx context.Context, req Request, target any) error {
	if err := c.reference.Wait(ctx); err != nil {
		return err
	}
	return c.Fetch(ctx, req).Decode(target)
}
