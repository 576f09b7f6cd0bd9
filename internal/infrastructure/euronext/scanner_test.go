package euronext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PressMonitor/internal/domain"
)

const listingHTML = `
<table>
  <tbody>
    <tr>
      <td>16 Aug 2025, 00:14 CEST</td>
      <td>Protect AS</td>
      <td><a href="/en/press-release/1">Fresh Announcement</a></td>
      <td>Technology</td>
      <td>Results</td>
    </tr>
    <tr>
      <td>10 May 2025, 09:00 CEST</td>
      <td>Old Corp</td>
      <td><a href="/en/press-release/2">Before Cutoff</a></td>
      <td>Finance</td>
      <td>Other</td>
    </tr>
    <tr>
      <td>17 Aug 2025, 12:00 CEST</td>
      <td>NoLink AS</td>
      <td>Missing Anchor</td>
      <td>Energy</td>
      <td>Results</td>
    </tr>
    <tr>
      <td>not a date</td>
      <td>BadDate AS</td>
      <td><a href="/en/press-release/3">Unparseable Row</a></td>
      <td>Energy</td>
      <td>Results</td>
    </tr>
  </tbody>
</table>`

func newTestScanner(serverURL string, delay time.Duration) *Scanner {
	cutoff := time.Date(2025, time.May, 12, 0, 0, 0, 0, time.UTC)
	return NewScanner(nil, Options{
		ListingURL: serverURL + "/listing",
		Cutoff:     cutoff,
		Location:   time.UTC,
		Delay:      delay,
	}, NewPageExtractor(), nil)
}

func TestFetchListing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer server.Close()

	sc := newTestScanner(server.URL, 0)

	releases, err := sc.FetchListing(context.Background())
	if err != nil {
		t.Fatalf("FetchListing error: %v", err)
	}

	if len(releases) != 1 {
		t.Fatalf("expected 1 release, got %d", len(releases))
	}

	got := releases[0]
	if got.Title != "Fresh Announcement" {
		t.Fatalf("unexpected title: %s", got.Title)
	}
	if got.Company != "Protect AS" {
		t.Fatalf("unexpected company: %s", got.Company)
	}
	if got.Industry != "Technology" || got.Topic != "Results" {
		t.Fatalf("unexpected category fields: %s / %s", got.Industry, got.Topic)
	}
	if !strings.HasPrefix(got.Link, server.URL) || !strings.HasSuffix(got.Link, "/en/press-release/1") {
		t.Fatalf("link not absolutized: %s", got.Link)
	}
	if got.Fingerprint == "" {
		t.Fatalf("fingerprint missing")
	}

	want := time.Date(2025, time.August, 16, 0, 14, 0, 0, time.UTC)
	if !got.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published time: %v", got.PublishedAt)
	}
}

func TestFetchDetailThirdContainer(t *testing.T) {
	t.Parallel()

	detail := `
	<html><body>
	  <div class="row mb-5">header</div>
	  <div class="row mb-5">nav</div>
	  <div class="row mb-5">
	    <script>tracker()</script>
	    <p>The   actual   release body.</p>
	    <p>  </p>
	  </div>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detail))
	}))
	defer server.Close()

	sc := newTestScanner(server.URL, 0)

	got := sc.FetchDetail(context.Background(), domain.PressRelease{Title: "x", Link: server.URL + "/pr/1"})
	if got.Content.Text != "The actual release body." {
		t.Fatalf("unexpected text: %q", got.Content.Text)
	}
	if strings.Contains(got.Content.HTML, "tracker()") {
		t.Fatalf("script not stripped: %q", got.Content.HTML)
	}
	if !strings.Contains(got.Content.HTML, "<p>") {
		t.Fatalf("expected minimal HTML preserved: %q", got.Content.HTML)
	}
}

func TestFetchDetailFallback(t *testing.T) {
	t.Parallel()

	detail := `
	<html><body>
	  <div class="row mb-5">only one</div>
	  <div class="container-fluid"><p>Fallback body text.</p></div>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detail))
	}))
	defer server.Close()

	sc := newTestScanner(server.URL, 0)

	got := sc.FetchDetail(context.Background(), domain.PressRelease{Title: "x", Link: server.URL + "/pr/1"})
	if got.Content.Text != "Fallback body text." {
		t.Fatalf("unexpected fallback text: %q", got.Content.Text)
	}
}

func TestFetchDetailFailureYieldsPlaceholder(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	sc := newTestScanner(server.URL, 0)

	got := sc.FetchDetail(context.Background(), domain.PressRelease{Title: "Lost Release", Link: server.URL + "/pr/404"})
	if !strings.Contains(got.Content.Text, "Content extraction failed") {
		t.Fatalf("expected placeholder body, got %q", got.Content.Text)
	}
	if !strings.Contains(got.Content.Text, "Lost Release") {
		t.Fatalf("placeholder should carry the title: %q", got.Content.Text)
	}
}

func TestFetchAllSequentialWithDelay(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/listing", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<table><tbody>
		  <tr>
		    <td>16 Aug 2025, 00:14 CEST</td><td>A</td>
		    <td><a href="/pr/1">First</a></td><td>T</td><td>R</td>
		  </tr>
		  <tr>
		    <td>17 Aug 2025, 10:00 CEST</td><td>B</td>
		    <td><a href="/pr/2">Second</a></td><td>T</td><td>R</td>
		  </tr>
		</tbody></table>`))
	})
	mux.HandleFunc("/pr/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div class="container-fluid"><p>body</p></div>`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	sc := newTestScanner(server.URL, 2*time.Second)

	var pauses []time.Duration
	sc.sleep = func(ctx context.Context, d time.Duration) {
		pauses = append(pauses, d)
	}

	releases, err := sc.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}
	if len(releases) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(releases))
	}
	for _, r := range releases {
		if r.Content.Text == "" {
			t.Fatalf("release %s missing content", r.Title)
		}
	}

	// One politeness pause between two navigations, none before the first.
	if len(pauses) != 1 || pauses[0] != 2*time.Second {
		t.Fatalf("unexpected pauses: %v", pauses)
	}
}

func TestExtractContentBodyFallback(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><p>bare page</p></body></html>`))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	content := NewPageExtractor().ExtractContent(doc)
	if content.Text != "bare page" {
		t.Fatalf("unexpected body fallback: %q", content.Text)
	}
}
