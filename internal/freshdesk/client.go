// Package freshdesk is the read-only client for the helpdesk API: typed
// fetches, Link-header pagination, and TTL caching of responses. Fetch
// failures surface as absent results; callers treat runs as best-effort
// over whatever was obtainable.
package freshdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/made-media/billdesk/internal/cache"
	"github.com/made-media/billdesk/internal/models"
)

// Directory data (agents, groups, companies, products, contacts) changes
// rarely; tickets and time entries move during the day.
const (
	DefaultTicketTTL    = time.Hour
	DefaultDirectoryTTL = 7 * 24 * time.Hour
)

const perPage = 100

// Config holds the connection settings for one helpdesk account.
type Config struct {
	// Domain is the account subdomain, e.g. "mademedia" for
	// mademedia.freshdesk.com. BaseURL overrides the derived URL and is
	// mainly for tests.
	Domain  string
	BaseURL string
	APIKey  string

	TicketTTL    time.Duration
	DirectoryTTL time.Duration
}

// Client talks to the helpdesk API. Safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	store        cache.Store
	ticketTTL    time.Duration
	directoryTTL time.Duration
}

// NewClient builds a client over the given cache store. A nil store
// disables caching.
func NewClient(config Config, store cache.Store) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.freshdesk.com/api/v2", config.Domain)
	}
	if config.TicketTTL <= 0 {
		config.TicketTTL = DefaultTicketTTL
	}
	if config.DirectoryTTL <= 0 {
		config.DirectoryTTL = DefaultDirectoryTTL
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       config.APIKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		store:        store,
		ticketTTL:    config.TicketTTL,
		directoryTTL: config.DirectoryTTL,
	}
}

// GetTicket fetches one ticket, or nil when it cannot be retrieved.
func (c *Client) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	return fetchOne[models.Ticket](ctx, c, fmt.Sprintf("%s/tickets/%d", c.baseURL, id), c.ticketTTL)
}

// GetAgent fetches one agent, or nil when it cannot be retrieved.
func (c *Client) GetAgent(ctx context.Context, id int64) (*models.Agent, error) {
	return fetchOne[models.Agent](ctx, c, fmt.Sprintf("%s/agents/%d", c.baseURL, id), c.directoryTTL)
}

// GetRequester fetches one contact, or nil when it cannot be retrieved.
func (c *Client) GetRequester(ctx context.Context, id int64) (*models.Contact, error) {
	return fetchOne[models.Contact](ctx, c, fmt.Sprintf("%s/contacts/%d", c.baseURL, id), c.directoryTTL)
}

// GetGroup fetches one group, or nil when it cannot be retrieved.
func (c *Client) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	return fetchOne[models.Group](ctx, c, fmt.Sprintf("%s/groups/%d", c.baseURL, id), c.directoryTTL)
}

// ListCompanies fetches all companies, following pagination to the end.
func (c *Client) ListCompanies(ctx context.Context) ([]models.Company, error) {
	return fetchAll[models.Company](ctx, c, c.baseURL+"/companies", c.directoryTTL)
}

// ListProducts fetches all products.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	return fetchAll[models.Product](ctx, c, c.baseURL+"/products", c.directoryTTL)
}

// ListTimeEntries fetches the time entries executed inside [start, end).
// Pass companyID 0 for all companies.
func (c *Client) ListTimeEntries(ctx context.Context, start, end time.Time, companyID int64) ([]models.TimeEntry, error) {
	params := url.Values{}
	params.Set("executed_after", start.Format("2006-01-02"))
	params.Set("executed_before", end.Format("2006-01-02"))
	if companyID != 0 {
		params.Set("company_id", fmt.Sprintf("%d", companyID))
	}
	return fetchAll[models.TimeEntry](ctx, c, c.baseURL+"/time_entries?"+params.Encode(), c.ticketTTL)
}

// ListTickets fetches tickets updated since the given time, newest first,
// optionally filtered to one company.
func (c *Client) ListTickets(ctx context.Context, updatedSince time.Time, companyID int64) ([]models.Ticket, error) {
	params := url.Values{}
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	params.Set("order_by", "updated_at")
	params.Set("order_type", "desc")
	params.Set("updated_since", updatedSince.UTC().Format(time.RFC3339))
	if companyID != 0 {
		params.Set("company_id", fmt.Sprintf("%d", companyID))
	}
	return fetchAll[models.Ticket](ctx, c, c.baseURL+"/tickets?"+params.Encode(), c.ticketTTL)
}

// ClearCache drops all cached responses.
func (c *Client) ClearCache() {
	if c.store != nil {
		c.store.Clear()
	}
}

func fetchOne[T any](ctx context.Context, c *Client, requestURL string, ttl time.Duration) (*T, error) {
	body, _, err := c.getPage(ctx, requestURL, ttl)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", requestURL, err)
	}
	return &out, nil
}

// fetchAll follows the Link header until exhausted and returns the
// materialized collection. A mid-pagination failure yields the pages
// fetched so far: a truncated collection, not an error.
func fetchAll[T any](ctx context.Context, c *Client, requestURL string, ttl time.Duration) ([]T, error) {
	var out []T
	for next := requestURL; next != ""; {
		body, link, err := c.getPage(ctx, next, ttl)
		if err != nil {
			if len(out) > 0 {
				log.Printf("freshdesk: pagination truncated at %s: %v", next, err)
				return out, nil
			}
			return nil, err
		}
		if body == nil {
			return out, nil
		}
		var page []T
		if err := json.Unmarshal(body, &page); err != nil {
			return out, fmt.Errorf("decode %s: %w", next, err)
		}
		out = append(out, page...)
		next = link
	}
	return out, nil
}

// cachedPage is what gets stored per URL: the response body plus the
// next-page link, so cached pagination replays without the headers.
type cachedPage struct {
	Body json.RawMessage `json:"body"`
	Next string          `json:"next"`
}

// getPage returns one page's body and next-page URL. A non-success
// response is an absent result (nil body, nil error); only transport and
// decode failures are errors.
func (c *Client) getPage(ctx context.Context, requestURL string, ttl time.Duration) ([]byte, string, error) {
	if c.store != nil {
		if raw, ok := c.store.Get(requestURL); ok {
			var page cachedPage
			if err := json.Unmarshal(raw, &page); err == nil {
				return page.Body, page.Next, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	// Freshdesk basic auth: the API key as username, any password.
	req.SetBasicAuth(c.apiKey, "X")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", requestURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("freshdesk: %s returned %d", requestURL, resp.StatusCode)
		return nil, "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", requestURL, err)
	}
	next := parseNextLink(resp.Header.Get("Link"))

	if c.store != nil {
		if raw, err := json.Marshal(cachedPage{Body: body, Next: next}); err == nil {
			c.store.Set(requestURL, raw, ttl)
		}
	}

	return body, next, nil
}

// parseNextLink extracts the URL from a `<url>; rel="next"` Link header.
func parseNextLink(header string) string {
	if header == "" {
		return ""
	}
	part, _, _ := strings.Cut(header, ";")
	part = strings.TrimSpace(part)
	part = strings.TrimPrefix(part, "<")
	return strings.TrimSuffix(part, ">")
}
