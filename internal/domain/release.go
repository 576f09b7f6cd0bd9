package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// PressRelease is a core entity describing one announcement extracted from the
// source listing. It is rebuilt on every run and never persisted directly.
type PressRelease struct {
	Title       string
	Company     string
	PublishedAt time.Time
	DateText    string
	Industry    string
	Topic       string
	Link        string
	Content     ReleaseContent
	Fingerprint string
}

// ReleaseContent carries the extracted body in two renditions: fully stripped
// plain text and a minimal HTML subset for rich-text destinations.
type ReleaseContent struct {
	Text string
	HTML string
}

// PublishStatus enumerates the outcome of a single publish attempt.
type PublishStatus string

const (
	StatusCreated PublishStatus = "created"
	StatusSkipped PublishStatus = "skipped"
	StatusFailed  PublishStatus = "failed"
)

// PublishOutcome records what happened to one release at the destination.
// ItemID is set for created and skipped (the pre-existing duplicate) items.
type PublishOutcome struct {
	Status PublishStatus
	ItemID string
	Error  string
}

// BatchSummary aggregates per-item outcomes of one publish batch.
type BatchSummary struct {
	Total   int
	Created int
	Skipped int
	Failed  int
}

// ProcessedRelease is the persisted dedup snapshot, keyed by fingerprint.
// Written once per fingerprint after the publish attempt completes, whatever
// its outcome, so permanently failing items are not reprocessed forever.
type ProcessedRelease struct {
	Fingerprint string
	Title       string
	Company     string
	Date        time.Time
	DateText    string
	Link        string
	ProcessedAt time.Time
	Outcome     PublishOutcome
}

// RunResults holds the per-run outcome counters.
type RunResults struct {
	Found     int `json:"found"`
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// RunMetadata is written exactly once per orchestrator run, immutable after.
type RunMetadata struct {
	StartTime    time.Time
	EndTime      time.Time
	WithinWindow bool
	Skipped      bool
	SkipReason   string
	Success      bool
	Error        string
	Results      *RunResults
}

// ProcessingStats aggregates recent processed-release outcomes.
type ProcessingStats struct {
	WindowDays int `json:"windowDays"`
	Total      int `json:"total"`
	Created    int `json:"created"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// NewFingerprint derives the dedup key from the normalized title, company and
// raw date text. Identical inputs always yield the identical digest; any one
// differing field yields a different one. Normalization is case folding plus
// non-alphanumeric stripping only; near-duplicate titles differing in
// punctuation intentionally map to distinct fingerprints.
func NewFingerprint(title, company, dateText string) string {
	sum := sha256.Sum256([]byte(normalizeField(title) + "|" + normalizeField(company) + "|" + normalizeField(dateText)))
	return hex.EncodeToString(sum[:])
}

func normalizeField(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
