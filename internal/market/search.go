package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const DefaultBaseURL = "https://api.marketplace.example.com"

// SearchClient queries the marketplace search API for listings.
type SearchClient struct {
	httpClient *resty.Client
	baseURL    string
	auth       string
}

// ClientOpts configures a SearchClient. BaseURL defaults to DefaultBaseURL;
// Auth is the bearer token sent with each request.
type ClientOpts struct {
	BaseURL string
	Auth    string
}

// NewSearchClient creates a search client.
func NewSearchClient(opts ClientOpts) *SearchClient {
	c := SearchClient{baseURL: DefaultBaseURL}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.auth = opts.Auth
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")
	return &c
}

// SearchParams contains search query parameters.
type SearchParams struct {
	Query string // Free text search query
	Page  int    // Page number (starts at 0)
	Rows  int    // Results per page
}

// SearchResult is the response from the search API.
type SearchResult struct {
	Docs     []SearchDoc    `json:"docs"`
	Metadata SearchMetadata `json:"metadata"`
}

// SearchMetadata contains pagination info.
type SearchMetadata struct {
	MatchCount int `json:"match_count"`
	LastPage   int `json:"last_page"`
}

// SearchDoc is a single search result document.
type SearchDoc struct {
	Heading      string       `json:"heading"`
	Description  string       `json:"description"`
	Timestamp    int64        `json:"timestamp"`
	Image        *SearchImage `json:"image,omitempty"`
	Price        *SearchPrice `json:"price,omitempty"`
	CanonicalURL string       `json:"canonical_url"`
}

// SearchImage contains image info.
type SearchImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SearchPrice contains price info.
type SearchPrice struct {
	Amount float64 `json:"amount"`
	Listed float64 `json:"listed_amount,omitempty"`
}

func (c *SearchClient) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx)
	if c.auth != "" {
		request.SetHeader("Authorization", "Bearer "+c.auth)
	}
	if result != nil {
		request.SetResult(result)
	}
	return request
}

// Search performs a single-page search query.
func (c *SearchClient) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	rows := params.Rows
	if rows <= 0 {
		rows = 40
	}

	result := &SearchResult{}
	resp, err := c.req(ctx, result).
		SetQueryParam("q", params.Query).
		SetQueryParam("page", fmt.Sprintf("%d", params.Page)).
		SetQueryParam("rows", fmt.Sprintf("%d", rows)).
		Get("/v1/listings/search")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode())
	}
	return result, nil
}

// SearchAll fetches up to maxPages pages for the query concurrently and
// returns the merged listings in page order.
func (c *SearchClient) SearchAll(ctx context.Context, query string, maxPages int) ([]Listing, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	first, err := c.Search(ctx, SearchParams{Query: query, Page: 0})
	if err != nil {
		return nil, err
	}

	pages := first.Metadata.LastPage + 1
	if pages > maxPages {
		pages = maxPages
	}

	type page struct {
		n    int
		docs []SearchDoc
	}
	results := []page{{n: 0, docs: first.Docs}}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for n := 1; n < pages; n++ {
		g.Go(func() error {
			res, err := c.Search(ctx, SearchParams{Query: query, Page: n})
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, page{n: n, docs: res.Docs})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].n < results[j].n })

	var listings []Listing
	for _, p := range results {
		for _, doc := range p.docs {
			listings = append(listings, docToListing(doc))
		}
	}
	return listings, nil
}

func docToListing(doc SearchDoc) Listing {
	l := Listing{
		URL:         doc.CanonicalURL,
		Description: doc.Heading,
	}
	if doc.Description != "" {
		l.Description = doc.Heading + ". " + doc.Description
	}
	if doc.Price != nil {
		l.Price = doc.Price.Amount
		if doc.Price.Listed > 0 {
			listed := doc.Price.Listed
			l.ListedPrice = &listed
		}
	}
	if doc.Image != nil {
		l.ImageURL = doc.Image.URL
	}
	if doc.Timestamp > 0 {
		t := time.Unix(doc.Timestamp/1000, 0).UTC()
		l.PublishedAt = &t
	}
	return l
}
