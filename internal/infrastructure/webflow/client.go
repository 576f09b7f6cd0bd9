// Package webflow implements the rate-limited destination CMS client.
package webflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"PressMonitor/internal/config"
	"PressMonitor/internal/domain"
	"PressMonitor/internal/ports"
)

const (
	acceptVersion = "1.0.0"
	pageLimit     = 100
	slugMaxLen    = 50
)

// Client talks to the Webflow content API. All requests share one token
// bucket guaranteeing at most one request per configured interval, which
// keeps the client under the API's request-rate ceiling without fixed sleeps.
type Client struct {
	baseURL      string
	apiToken     string
	siteID       string
	collectionID string
	httpClient   *http.Client
	limiter      *rate.Limiter
	cooldown     time.Duration
	logger       *slog.Logger

	// sleep is swapped in tests to keep the cooldown path fast.
	sleep func(ctx context.Context, d time.Duration)
}

var _ ports.Publisher = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.WebflowConfig, logger *slog.Logger) *Client {
	interval := cfg.RequestInterval()
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiToken:     cfg.APIToken,
		siteID:       cfg.SiteID,
		collectionID: cfg.CollectionID,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(interval), 1),
		cooldown:     cfg.RateCooldown(),
		logger:       logger,
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
			}
		},
	}
}

// Item is an existing collection item as the destination reports it.
type Item struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Date string `json:"date"`
}

// ItemFields is the create-item payload; the destination expects field names
// from the collection schema and draft-first creation.
type ItemFields struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Date         string `json:"date"`
	Content      string `json:"content"`
	ReadMoreLink string `json:"read-more-link"`
	Archived     bool   `json:"_archived"`
	Draft        bool   `json:"_draft"`
}

// ListItems returns every existing collection item as one logical sequence,
// paginating internally.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var all []Item
	offset := 0
	for {
		var page struct {
			Items []Item `json:"items"`
			Count int    `json:"count"`
			Total int    `json:"total"`
		}
		path := fmt.Sprintf("/collections/%s/items?offset=%d&limit=%d", c.collectionID, offset, pageLimit)
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}

		all = append(all, page.Items...)
		offset += len(page.Items)
		if len(page.Items) < pageLimit || (page.Total > 0 && offset >= page.Total) {
			break
		}
	}
	return all, nil
}

// FindDuplicate matches on case-folded display name plus the same calendar
// date, ignoring time-of-day. This is a second dedup layer independent of the
// state store, protecting against loss or reset of the store.
func (c *Client) FindDuplicate(ctx context.Context, release domain.PressRelease) (*Item, error) {
	items, err := c.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	wantName := strings.ToLower(strings.TrimSpace(release.Title))
	wantDay := release.PublishedAt.UTC().Format("2006-01-02")

	for i := range items {
		item := items[i]
		if strings.ToLower(strings.TrimSpace(item.Name)) != wantName {
			continue
		}
		itemDate, err := time.Parse(time.RFC3339, item.Date)
		if err != nil {
			continue
		}
		if itemDate.UTC().Format("2006-01-02") == wantDay {
			return &item, nil
		}
	}
	return nil, nil
}

// BuildItem maps a release onto the destination schema. Items are always
// created as drafts; publishing is a deliberate separate action.
func (c *Client) BuildItem(release domain.PressRelease) ItemFields {
	content := release.Content.HTML
	if content == "" {
		content = release.Content.Text
	}
	return ItemFields{
		Name:         release.Title,
		Slug:         Slugify(release.Title),
		Date:         release.PublishedAt.UTC().Format(time.RFC3339),
		Content:      content,
		ReadMoreLink: release.Link,
		Archived:     false,
		Draft:        true,
	}
}

// CreateItem runs the duplicate check, then creates the draft item. A failed
// duplicate check falls through to creation rather than dropping the item.
func (c *Client) CreateItem(ctx context.Context, release domain.PressRelease) domain.PublishOutcome {
	duplicate, err := c.FindDuplicate(ctx, release)
	if err != nil {
		c.warn("duplicate check failed, continuing with creation", "title", release.Title, "error", err)
	}
	if duplicate != nil {
		c.info("skipping duplicate item", "title", release.Title, "existingId", duplicate.ID)
		return domain.PublishOutcome{Status: domain.StatusSkipped, ItemID: duplicate.ID}
	}

	body := map[string]ItemFields{"fields": c.BuildItem(release)}
	var created struct {
		ID string `json:"_id"`
	}
	path := fmt.Sprintf("/collections/%s/items", c.collectionID)
	if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
		c.warn("create item failed", "title", release.Title, "error", err)
		return domain.PublishOutcome{Status: domain.StatusFailed, Error: err.Error()}
	}

	c.info("created item", "title", release.Title, "id", created.ID)
	return domain.PublishOutcome{Status: domain.StatusCreated, ItemID: created.ID}
}

// ProcessBatch creates items strictly sequentially, pacing every request
// through the shared limiter. One item's failure never unwinds the batch.
func (c *Client) ProcessBatch(ctx context.Context, releases []domain.PressRelease) ([]domain.PublishOutcome, domain.BatchSummary) {
	outcomes := make([]domain.PublishOutcome, 0, len(releases))
	summary := domain.BatchSummary{Total: len(releases)}

	for _, release := range releases {
		outcome := c.CreateItem(ctx, release)
		outcomes = append(outcomes, outcome)
		switch outcome.Status {
		case domain.StatusCreated:
			summary.Created++
		case domain.StatusSkipped:
			summary.Skipped++
		case domain.StatusFailed:
			summary.Failed++
		}
	}

	c.info("batch complete", "total", summary.Total, "created", summary.Created,
		"skipped", summary.Skipped, "failed", summary.Failed)
	return outcomes, summary
}

// PublishItem promotes a draft item to the live collection.
func (c *Client) PublishItem(ctx context.Context, itemID string) error {
	path := fmt.Sprintf("/collections/%s/items/%s/publish", c.collectionID, itemID)
	if err := c.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("publish item %s: %w", itemID, err)
	}
	return nil
}

// PublishSite triggers a site-wide publish of all staged changes.
func (c *Client) PublishSite(ctx context.Context) error {
	path := fmt.Sprintf("/sites/%s/publish", c.siteID)
	body := map[string][]string{"domains": {}}
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("publish site: %w", err)
	}
	return nil
}

// Ping verifies the token can see the configured site.
func (c *Client) Ping(ctx context.Context) error {
	var sites []struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, "/sites", nil, &sites); err != nil {
		return fmt.Errorf("list sites: %w", err)
	}
	for _, site := range sites {
		if site.ID == c.siteID {
			return nil
		}
	}
	return fmt.Errorf("site %s not visible to this token", c.siteID)
}

// Slugify lowercases the title, strips characters outside letters, digits,
// spaces and hyphens, collapses whitespace to single hyphens, and truncates.
func Slugify(title string) string {
	lower := strings.ToLower(title)
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '-':
			b.WriteRune(r)
		}
	}
	slug := strings.Join(strings.Fields(b.String()), "-")
	if len(slug) > slugMaxLen {
		slug = slug[:slugMaxLen]
	}
	return slug
}

// do issues one paced request. A rate-limit response triggers a fixed
// cooldown and a single transparent retry of the identical request; any other
// failure surfaces to the caller.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	retried := false
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("limiter: %w", err)
		}

		status, respBody, err := c.roundTrip(ctx, method, path, body)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests && !retried {
			retried = true
			c.warn("rate limit exceeded, cooling down", "path", path, "cooldown", c.cooldown)
			c.sleep(ctx, c.cooldown)
			continue
		}

		if status >= http.StatusBadRequest {
			return fmt.Errorf("webflow %s %s: status %d: %s", method, path, status, strings.TrimSpace(string(respBody)))
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept-Version", acceptVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
