package tmdb

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
)

const (
	// PageSize is the fixed number of items per listing page.
	PageSize = 20
	// MaxPages is the highest page number a listing will serve.
	MaxPages = 500
)

// PageResult is one page of a listing endpoint.
type PageResult struct {
	Page         int        `json:"page"`
	Items        []ListItem `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

// IDs returns the item IDs in page order.
func (p PageResult) IDs() []int64 {
	ids := make([]int64, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// FetchPage fetches one page of the listing at path with the given filters.
// TotalPages is clamped to MaxPages. The bool is false when the page could
// not be fetched or decoded; the failure has already been logged.
func (c *Client) FetchPage(ctx context.Context, path string, page int, filters url.Values) (PageResult, bool) {
	if page < 1 || page > MaxPages {
		return PageResult{}, false
	}

	query := url.Values{}
	for k, v := range filters {
		query[k] = append([]string(nil), v...)
	}
	query.Set("page", strconv.Itoa(page))

	out := c.Fetch(ctx, Request{Path: path, Query: query, Hint: path + " page " + strconv.Itoa(page)})
	if !out.OK() {
		return PageResult{}, false
	}

	var result PageResult
	if err := out.Decode(&result); err != nil {
		slog.Warn("Failed to decode listing page", "path", path, "page", page, "error", err)
		return PageResult{}, false
	}
	if result.Page == 0 {
		result.Page = page
	}
	if result.TotalPages > MaxPages {
		result.TotalPages = MaxPages
	}
	return result, true
}
