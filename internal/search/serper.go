// File: internal/search/serper.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/raghavx92/dealpilot-cli/internal/config"
	"github.com/raghavx92/dealpilot-cli/internal/match"
)

// Listing is one ranked search result.
type Listing struct {
	Title      string
	Link       string
	Source     string
	PriceText  string
	PriceValue float64 // parsed value, +Inf when the text has no price
}

// Client queries the Serper shopping API for the starting candidates. It
// runs before the optimization loop; a failure here is a fatal
// precondition, not a loop concern.
type Client struct {
	cfg        config.SearchConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg config.SearchConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("search"),
	}
}

type serperRequest struct {
	Query    string `json:"q"`
	Country  string `json:"gl"`
	Language string `json:"hl"`
	Num      int    `json:"num"`
}

type serperItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Price   string `json:"price"`
	Snippet string `json:"snippet"`
}

type serperResponse struct {
	Shopping []serperItem `json:"shopping"`
	Organic  []serperItem `json:"organic"`
}

// SiteName maps a result link to a readable store name.
func SiteName(link string) string {
	switch {
	case strings.Contains(link, "flipkart.com"):
		return "Flipkart"
	case strings.Contains(link, "amazon.in"):
		return "Amazon"
	case strings.Contains(link, "myntra.com"):
		return "Myntra"
	default:
		return ""
	}
}

func (c *Client) onAllowedSite(link string) bool {
	for _, site := range c.cfg.Sites {
		if strings.Contains(link, site) {
			return true
		}
	}
	return false
}

func (c *Client) post(ctx context.Context, endpoint, query string) (*serperResponse, error) {
	body, err := json.Marshal(serperRequest{
		Query:    query,
		Country:  c.cfg.Country,
		Language: c.cfg.Language,
		Num:      c.cfg.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed serperResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding serper response: %w", err)
	}
	return &parsed, nil
}

// FindListings queries the shopping endpoint with site filters, tops up
// from organic results, and returns listings sorted ascending by parsed
// price. On a shopping-endpoint failure it falls back to the regular
// search endpoint before giving up.
func (c *Client) FindListings(ctx context.Context, product string) ([]Listing, error) {
	siteFilter := make([]string, len(c.cfg.Sites))
	for i, s := range c.cfg.Sites {
		siteFilter[i] = "site:" + s
	}
	query := product + " " + strings.Join(siteFilter, " OR ")

	resp, err := c.post(ctx, c.cfg.ShoppingEndpoint, query)
	if err != nil {
		c.logger.Warn("shopping search failed, falling back to regular search", zap.Error(err))
		return c.fallbackSearch(ctx, product)
	}

	var listings []Listing
	for _, item := range resp.Shopping {
		if !c.onAllowedSite(item.Link) {
			continue
		}
		price := item.Price
		if price == "" {
			price = "N/A"
		}
		listings = append(listings, Listing{
			Title:      item.Title,
			Link:       item.Link,
			Source:     SiteName(item.Link),
			PriceText:  price,
			PriceValue: match.PriceOrInf(price),
		})
	}

	// Top up from organic results, whose snippets sometimes carry a price.
	for _, item := range resp.Organic {
		if len(listings) >= c.cfg.MaxResults {
			break
		}
		if !c.onAllowedSite(item.Link) {
			continue
		}
		price := item.Snippet
		if price == "" {
			price = "Check on site"
		}
		listings = append(listings, Listing{
			Title:      item.Title,
			Link:       item.Link,
			Source:     SiteName(item.Link),
			PriceText:  price,
			PriceValue: match.PriceOrInf(price),
		})
	}

	if len(listings) == 0 {
		return c.fallbackSearch(ctx, product)
	}

	sortListings(listings)
	if len(listings) > c.cfg.MaxResults {
		listings = listings[:c.cfg.MaxResults]
	}
	c.logger.Info("search complete",
		zap.Int("results", len(listings)),
		zap.String("cheapest", listings[0].PriceText),
		zap.String("source", listings[0].Source))
	return listings, nil
}

// fallbackSearch hits the regular search endpoint when the shopping one
// fails or returns nothing usable.
func (c *Client) fallbackSearch(ctx context.Context, product string) ([]Listing, error) {
	query := fmt.Sprintf("%s buy online india price %s", product, strings.Join(c.cfg.Sites, " OR "))
	resp, err := c.post(ctx, c.cfg.SearchEndpoint, query)
	if err != nil {
		return nil, fmt.Errorf("fallback search failed: %w", err)
	}

	var listings []Listing
	for _, item := range resp.Organic {
		if len(listings) >= c.cfg.MaxResults {
			break
		}
		if !c.onAllowedSite(item.Link) {
			continue
		}
		price := item.Snippet
		if price == "" {
			price = "Check on site"
		}
		listings = append(listings, Listing{
			Title:      item.Title,
			Link:       item.Link,
			Source:     SiteName(item.Link),
			PriceText:  price,
			PriceValue: match.PriceOrInf(price),
		})
	}
	sortListings(listings)
	return listings, nil
}

// sortListings orders ascending by price, unknown prices last; ties keep
// API order.
func sortListings(listings []Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].PriceValue < listings[j].PriceValue
	})
}

// languageCodes are the regional URL path segments that make listing pages
// render in a non-English locale the inspector's phrase lists can't read.
var languageCodes = []string{"/mr", "/hi", "/ta", "/te", "/bn", "/kn", "/ml", "/gu", "/pa", "/or"}

// CleanURL strips the first regional language code from a listing URL so
// the page opens in English.
func CleanURL(url string) string {
	for _, code := range languageCodes {
		if strings.Contains(url, code+"/") {
			return strings.Replace(url, code+"/", "/", 1)
		}
	}
	return url
}
