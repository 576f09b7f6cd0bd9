// Package euronext scrapes the company press-release listing and the per-item
// detail pages.
package euronext

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PressMonitor/internal/domain"
	"PressMonitor/internal/ports"
)

const (
	userAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	dateLayout = "2 Jan 2006, 15:04"
)

// Listing rows carry "16 Aug 2025, 00:14 CEST"; the trailing zone token is
// dropped and the instant is interpreted in the configured location.
var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}, \d{2}:\d{2}`)

// Scanner crawls the listing page and extracts full press releases.
type Scanner struct {
	client     *http.Client
	listingURL string
	cutoff     time.Time
	location   *time.Location
	delay      time.Duration
	extractor  ports.ContentExtractor
	logger     *slog.Logger

	// sleep is swapped in tests to keep them fast.
	sleep func(ctx context.Context, d time.Duration)
}

var _ ports.ReleaseSource = (*Scanner)(nil)

// Options configures a Scanner.
type Options struct {
	ListingURL string
	Cutoff     time.Time
	Location   *time.Location
	Delay      time.Duration
	NavTimeout time.Duration
}

// NewScanner wires an HTTP client with the per-navigation timeout.
func NewScanner(client *http.Client, opts Options, extractor ports.ContentExtractor, logger *slog.Logger) *Scanner {
	if client == nil {
		timeout := opts.NavTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	if extractor == nil {
		extractor = NewPageExtractor()
	}
	return &Scanner{
		client:     client,
		listingURL: opts.ListingURL,
		cutoff:     opts.Cutoff,
		location:   loc,
		delay:      opts.Delay,
		extractor:  extractor,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// FetchAll loads the listing and hydrates each candidate with detail content,
// strictly one item at a time with a politeness delay between navigations.
func (s *Scanner) FetchAll(ctx context.Context) ([]domain.PressRelease, error) {
	releases, err := s.FetchListing(ctx)
	if err != nil {
		return nil, err
	}

	for i := range releases {
		if i > 0 && s.delay > 0 {
			s.sleep(ctx, s.delay)
		}
		releases[i] = s.FetchDetail(ctx, releases[i])
	}

	return releases, nil
}

// FetchListing parses the listing table into summary candidates, keeping only
// rows published strictly after the cutoff. Rows missing a title, date, or
// link are dropped; extraction is best-effort, not validating.
func (s *Scanner) FetchListing(ctx context.Context) ([]domain.PressRelease, error) {
	doc, err := s.fetchDocument(ctx, s.listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	var releases []domain.PressRelease
	doc.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		company := strings.TrimSpace(cells.Eq(1).Text())
		title := strings.TrimSpace(cells.Eq(2).Text())
		industry := strings.TrimSpace(cells.Eq(3).Text())
		topic := strings.TrimSpace(cells.Eq(4).Text())
		link, _ := cells.Eq(2).Find("a").First().Attr("href")

		if title == "" || dateText == "" || link == "" {
			return
		}

		publishedAt, err := s.parseListingDate(dateText)
		if err != nil {
			s.debug("drop row with unparseable date", "dateText", dateText)
			return
		}
		if !publishedAt.After(s.cutoff) {
			return
		}

		releases = append(releases, domain.PressRelease{
			Title:       title,
			Company:     company,
			PublishedAt: publishedAt,
			DateText:    dateText,
			Industry:    industry,
			Topic:       topic,
			Link:        s.absoluteLink(link),
			Fingerprint: domain.NewFingerprint(title, company, dateText),
		})
	})

	s.debug("listing parsed", "candidates", len(releases))
	return releases, nil
}

// FetchDetail navigates to the release page and fills in the content body.
// A failed fetch or parse degrades to a placeholder body carrying the reason
// so the item still reaches dedup and publish with a non-empty payload.
func (s *Scanner) FetchDetail(ctx context.Context, release domain.PressRelease) domain.PressRelease {
	doc, err := s.fetchDocument(ctx, release.Link)
	if err != nil {
		s.debug("detail fetch failed", "title", release.Title, "error", err)
		release.Content = placeholderContent(release.Title, err)
		return release
	}

	release.Content = s.extractor.ExtractContent(doc)
	if release.Content.Text == "" {
		release.Content = placeholderContent(release.Title, fmt.Errorf("no content located"))
	}
	return release
}

// Ping issues a lightweight request against the listing URL.
func (s *Scanner) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.listingURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("listing unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("listing returned %s", resp.Status)
	}
	return nil
}

func (s *Scanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (s *Scanner) parseListingDate(dateText string) (time.Time, error) {
	match := dateExpr.FindString(dateText)
	if match == "" {
		return time.Time{}, fmt.Errorf("no date in %q", dateText)
	}
	t, err := time.ParseInLocation(dateLayout, match, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", match, err)
	}
	return t, nil
}

func (s *Scanner) absoluteLink(link string) string {
	if strings.HasPrefix(link, "http") {
		return link
	}
	base, err := url.Parse(s.listingURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

func placeholderContent(title string, cause error) domain.ReleaseContent {
	text := fmt.Sprintf("Content extraction failed. Title: %s. Reason: %v", title, cause)
	return domain.ReleaseContent{Text: text, HTML: "<p>" + text + "</p>"}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (s *Scanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
