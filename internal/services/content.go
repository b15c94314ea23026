package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/shared"
)

// Popular fetches one page of the most popular content of type ct.
func (b *BackendService) Popular(ctx context.Context, ct models.ContentType, page, limit int) (*models.ContentPage, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("type", string(ct))
	q.Set("page", strconv.Itoa(page))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out models.ContentPage
	err := b.do(ctx, request{
		endpoint: "content.popular", method: http.MethodGet, path: "/content/popular", query: q, cache: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Page == 0 {
		out.Page = page
	}
	return &out, nil
}

// Content fetches a single content item.
func (b *BackendService) Content(ctx context.Context, id string) (*models.Content, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: content id", shared.ErrMissingArgument)
	}

	var out models.Content
	err := b.do(ctx, request{
		endpoint: "content.get", method: http.MethodGet, path: "/content/" + url.PathEscape(id), cache: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a catalog search.
func (b *BackendService) Search(ctx context.Context, query string, page int) (*models.ContentPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("page", strconv.Itoa(page))

	var out models.ContentPage
	err := b.do(ctx, request{
		endpoint: "content.search", method: http.MethodGet, path: "/content/search", query: q, cache: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Page == 0 {
		out.Page = page
	}
	return &out, nil
}
