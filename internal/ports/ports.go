package ports

import (
	"context"
	"time"

	"PressMonitor/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// ReleaseSource pulls fresh press releases from the upstream listing.
type ReleaseSource interface {
	// FetchAll returns candidates published after the cutoff, each hydrated
	// with its detail-page content. Per-item extraction failures degrade to a
	// placeholder body instead of an error so the item keeps flowing.
	FetchAll(ctx context.Context) ([]domain.PressRelease, error)
	// Ping verifies the listing endpoint is reachable.
	Ping(ctx context.Context) error
}

// ContentExtractor locates the primary content block on a detail page. The
// pipeline depends on this narrow seam, not on the DOM traversal behind it.
type ContentExtractor interface {
	ExtractContent(doc *goquery.Document) domain.ReleaseContent
}

// StateStore persists processed-release and run-metadata records for
// deduplication and observability.
type StateStore interface {
	Exists(ctx context.Context, fingerprint string) (bool, error)
	FilterUnprocessed(ctx context.Context, releases []domain.PressRelease) ([]domain.PressRelease, error)
	MarkProcessed(ctx context.Context, release domain.ProcessedRelease) error
	SaveRunMetadata(ctx context.Context, meta domain.RunMetadata) error
	GetStats(ctx context.Context, windowDays int) (domain.ProcessingStats, error)
	GetLastRunTime(ctx context.Context) (time.Time, bool, error)
	Ping(ctx context.Context) error
}

// Publisher maps releases onto the destination CMS and creates draft items.
type Publisher interface {
	ProcessBatch(ctx context.Context, releases []domain.PressRelease) ([]domain.PublishOutcome, domain.BatchSummary)
	Ping(ctx context.Context) error
}

// Scheduler controls when pipeline runs execute in serve mode.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
